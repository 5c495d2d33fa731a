package credential

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"questlog/internal/db"
	"questlog/internal/domain"
	"questlog/internal/migrate"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return conn
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func tokenWithoutExp(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestEmptyStoreNotAuthenticated(t *testing.T) {
	s := NewStore(setupDB(t))
	ctx := context.Background()

	require.False(t, s.IsAuthenticated(ctx))
	token, err := s.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
	_, ok := s.BearerToken(ctx)
	require.False(t, ok)
}

func TestTokenRoundtrip(t *testing.T) {
	s := NewStore(setupDB(t))
	ctx := context.Background()
	token := signedToken(t, time.Now().Add(time.Hour))

	require.NoError(t, s.SetToken(ctx, token))
	got, err := s.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, token, got)
	require.True(t, s.IsAuthenticated(ctx))

	bearer, ok := s.BearerToken(ctx)
	require.True(t, ok)
	require.Equal(t, token, bearer)
}

func TestExpiredTokenNotAuthenticated(t *testing.T) {
	s := NewStore(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, signedToken(t, time.Now().Add(-time.Minute))))
	require.False(t, s.IsAuthenticated(ctx))
	_, ok := s.BearerToken(ctx)
	require.False(t, ok)
}

func TestMalformedTokenNotAuthenticated(t *testing.T) {
	s := NewStore(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "not.a.jwt"))
	require.False(t, s.IsAuthenticated(ctx))
}

func TestTokenLive(t *testing.T) {
	now := time.Now()
	require.True(t, TokenLive(signedToken(t, now.Add(time.Hour)), now))
	require.False(t, TokenLive(signedToken(t, now.Add(-time.Hour)), now))
	require.False(t, TokenLive(tokenWithoutExp(t), now))
	require.False(t, TokenLive("garbage", now))
	require.False(t, TokenLive("", now))
}

func TestClearRemovesTokenAndSnapshot(t *testing.T) {
	s := NewStore(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, signedToken(t, time.Now().Add(time.Hour))))
	require.NoError(t, s.SaveUser(ctx, domain.User{ID: 7, Nickname: "ana"}))
	require.NoError(t, s.Clear(ctx))

	require.False(t, s.IsAuthenticated(ctx))
	cached, err := s.CachedUser(ctx)
	require.NoError(t, err)
	require.Nil(t, cached)
}

func TestUserSnapshotRoundtrip(t *testing.T) {
	s := NewStore(setupDB(t))
	ctx := context.Background()

	u := domain.User{ID: 7, Name: "Ana", Nickname: "ana", Level: 3, TotalCoins: 45}
	require.NoError(t, s.SaveUser(ctx, u))

	cached, err := s.CachedUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, u, *cached)

	// Overwrite replaces the snapshot in place.
	u.TotalCoins = 90
	require.NoError(t, s.SaveUser(ctx, u))
	cached, err = s.CachedUser(ctx)
	require.NoError(t, err)
	require.Equal(t, 90, cached.TotalCoins)
}

func TestSetTokenReplaces(t *testing.T) {
	s := NewStore(setupDB(t))
	ctx := context.Background()

	first := signedToken(t, time.Now().Add(time.Minute))
	second := signedToken(t, time.Now().Add(2*time.Hour))
	require.NoError(t, s.SetToken(ctx, first))
	require.NoError(t, s.SetToken(ctx, second))

	got, err := s.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, second, got)
}
