// Package credential persists the bearer token and the cached identity
// snapshot across CLI invocations, and answers the local, best-effort
// liveness question: is there a stored token whose expiry claim is still
// in the future? No signature verification happens here; authorization
// is enforced server-side.
package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"questlog/internal/domain"
)

const (
	keyToken = "token"
	keyUser  = "authenticated_user"
)

// Store is a durable key/value slot backed by the workspace SQLite DB.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Token returns the stored token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.get(ctx, keyToken)
}

// SetToken stores the bearer token, replacing any previous one.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, keyToken, token)
}

// Clear removes the token and the cached identity snapshot.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_state WHERE key IN (?,?)`, keyToken, keyUser)
	if err != nil {
		return errors.Wrap(err, "clear credential")
	}
	return nil
}

// IsAuthenticated reports whether a stored token exists and its expiry
// claim is in the future. Absent, malformed, or expired tokens all
// report false; decoding failures are never surfaced as errors.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	if err != nil || token == "" {
		return false
	}
	return TokenLive(token, s.now())
}

// TokenLive decodes the token payload without verifying its signature
// and checks the exp claim against now. A tampered-but-unexpired token
// passes; this is a UI hint, not an authorization decision.
func TokenLive(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(now)
}

// BearerToken returns the stored token when it passes the local
// liveness check. It satisfies the API client's token source contract:
// when ok is false the request goes out unauthenticated.
func (s *Store) BearerToken(ctx context.Context) (string, bool) {
	token, err := s.Token(ctx)
	if err != nil || token == "" {
		return "", false
	}
	if !TokenLive(token, s.now()) {
		return "", false
	}
	return token, true
}

// SaveUser stores the denormalized identity snapshot for fast reload.
func (s *Store) SaveUser(ctx context.Context, u domain.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "marshal user snapshot")
	}
	return s.set(ctx, keyUser, string(data))
}

// CachedUser returns the stored identity snapshot, or nil when absent.
func (s *Store) CachedUser(ctx context.Context) (*domain.User, error) {
	raw, err := s.get(ctx, keyUser)
	if err != nil || raw == "" {
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, errors.Wrap(err, "decode user snapshot")
	}
	return &u, nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_state WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read local state")
	}
	return value, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	now := s.now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO local_state(key, value, updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, now)
	if err != nil {
		return errors.Wrap(err, "write local state")
	}
	return nil
}
