// Package db opens the per-workspace SQLite database that backs the
// durable client state (credential and identity snapshot). The file
// lives under the workspace's .questlog directory.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	_ "modernc.org/sqlite"
)

const stateDir = ".questlog"

type Config struct {
	Workspace string
}

func dbPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, stateDir, "questlog.db")
}

// EnsureWorkspace creates the state directory if missing and returns
// its path.
func EnsureWorkspace(workspace string) (string, error) {
	dir := filepath.Join(workspace, stateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create state dir")
	}
	return dir, nil
}

// Open ensures the workspace exists and opens its state database with
// foreign keys enabled.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", dbPath(cfg.Workspace))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open state db")
	}
	return conn, nil
}

// Path returns where the state database lives for a workspace.
func Path(workspace string) string {
	return dbPath(workspace)
}
