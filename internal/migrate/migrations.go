// Package migrate brings the workspace state database up to the
// current schema. Migrations are embedded SQL files named
// NNN_description.sql and applied in version order inside one
// transaction; the applied version is tracked in schema_version.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/go-faster/errors"
)

//go:embed sql/*.sql
var schemaFS embed.FS

type migration struct {
	version int
	name    string
	stmt    string
}

func load() ([]migration, error) {
	entries, err := fs.ReadDir(schemaFS, "sql")
	if err != nil {
		return nil, errors.Wrap(err, "read embedded schema")
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := schemaFS.ReadFile("sql/" + e.Name())
		if err != nil {
			return nil, errors.Wrap(err, e.Name())
		}
		var v int
		if _, err := fmt.Sscanf(e.Name(), "%d_", &v); err != nil {
			return nil, errors.Wrapf(err, "migration %s: name must start with a version", e.Name())
		}
		out = append(out, migration{version: v, name: e.Name(), stmt: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// Migrate applies any pending migrations. Versions at or below the
// recorded one are skipped, so running it on every startup is safe.
func Migrate(db *sql.DB) error {
	migrations, err := load()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin migration tx")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL);`); err != nil {
		return errors.Wrap(err, "ensure schema_version")
	}

	var current int
	err = tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	if err == sql.ErrNoRows {
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return errors.Wrap(err, "seed schema_version")
		}
	} else if err != nil {
		return errors.Wrap(err, "read schema_version")
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			return errors.Wrapf(err, "apply %s", m.name)
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version=?`, m.version); err != nil {
			return errors.Wrapf(err, "record %s", m.name)
		}
		current = m.version
	}
	return tx.Commit()
}
