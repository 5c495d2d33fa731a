package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"questlog/internal/api"
	"questlog/internal/collection"
	"questlog/internal/credential"
	"questlog/internal/db"
	"questlog/internal/domain"
	"questlog/internal/migrate"
	"questlog/internal/session"
)

const testSecret = "test-secret"

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler, err := New(Config{JWTSecret: testSecret})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newClientSession(t *testing.T, baseURL string) (*api.Client, *session.Session, *credential.Store) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	creds := credential.NewStore(conn)
	client := api.New(baseURL+"/api", creds)
	return client, session.New(client, creds, nil), creds
}

func registerAndLogin(t *testing.T, s *session.Session) domain.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, domain.UserCreateRequest{
		Name: "Ana", Nickname: "ana", Email: "ana@example.com", Password: "secret",
	}))
	require.NoError(t, s.Login(ctx, "ana", "secret"))
	u, ok := s.User()
	require.True(t, ok)
	return u
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestRegisterLoginProfile(t *testing.T) {
	srv := startServer(t)
	_, sess, creds := newClientSession(t, srv.URL)
	ctx := context.Background()

	u := registerAndLogin(t, sess)
	require.Equal(t, "ana", u.Nickname)
	require.Equal(t, 1, u.Level)
	require.Equal(t, session.StateAuthenticated, sess.State())
	require.True(t, creds.IsAuthenticated(ctx))

	// A duplicate registration surfaces as 409.
	err := sess.Register(ctx, domain.UserCreateRequest{
		Name: "Other", Nickname: "ana", Email: "other@example.com", Password: "x",
	})
	require.True(t, api.IsStatus(err, http.StatusConflict))
}

func TestLoginBadCredentials(t *testing.T) {
	srv := startServer(t)
	_, sess, _ := newClientSession(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, sess.Register(ctx, domain.UserCreateRequest{
		Name: "Ana", Nickname: "ana", Email: "ana@example.com", Password: "secret",
	}))
	err := sess.Login(ctx, "ana", "wrong")
	require.Error(t, err)
	require.Equal(t, session.StateAnonymous, sess.State())
}

func TestProfileRequiresToken(t *testing.T) {
	srv := startServer(t)
	client := api.New(srv.URL+"/api", nil)

	_, err := client.GetProfile(context.Background())
	require.True(t, api.IsStatus(err, http.StatusUnauthorized))
}

func TestForgedTokenRejected(t *testing.T) {
	srv := startServer(t)
	_, sess, creds := newClientSession(t, srv.URL)
	ctx := context.Background()

	// Live but signed with the wrong secret: the client's local
	// liveness check accepts it, the server must not.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "5",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tok, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	require.NoError(t, creds.SetToken(ctx, tok))

	err = sess.Restore(ctx)
	require.Error(t, err)
	require.Equal(t, session.StateAnonymous, sess.State())
	require.False(t, creds.IsAuthenticated(ctx), "rejected token is cleared on the way down")
}

func TestSessionRestoreAcrossProcesses(t *testing.T) {
	srv := startServer(t)
	workspace := t.TempDir()

	open := func() (*session.Session, func()) {
		conn, err := db.Open(db.Config{Workspace: workspace})
		require.NoError(t, err)
		require.NoError(t, migrate.Migrate(conn))
		creds := credential.NewStore(conn)
		client := api.New(srv.URL+"/api", creds)
		return session.New(client, creds, nil), func() { conn.Close() }
	}

	ctx := context.Background()
	sess, done := open()
	registerAndLogin(t, sess)
	done()

	// A fresh process sees the stored token and resolves the identity.
	sess2, done2 := open()
	defer done2()
	require.NoError(t, sess2.Restore(ctx))
	require.Equal(t, session.StateAuthenticated, sess2.State())
	u, ok := sess2.User()
	require.True(t, ok)
	require.Equal(t, "ana", u.Nickname)
}

func TestQuestFlow(t *testing.T) {
	srv := startServer(t)
	client, sess, _ := newClientSession(t, srv.URL)
	ctx := context.Background()
	u := registerAndLogin(t, sess)

	cols := collection.NewSet(client, u.ID, nil)

	_, err := client.CreateSkill(ctx, domain.SkillCreateRequest{Name: "math", Icon: "M"})
	require.NoError(t, err)
	require.NoError(t, cols.Skills.Refresh(ctx))
	require.Len(t, cols.Skills.Items(), 1)

	task, err := client.CreateTask(ctx, domain.TaskCreateRequest{
		Title: "solve exercises", Difficulty: domain.DifficultyHard, SkillName: "math",
	})
	require.NoError(t, err)
	require.Equal(t, 50, task.TaskXP)

	require.NoError(t, client.CompleteTask(ctx, task.ID))
	require.NoError(t, cols.Tasks.Refresh(ctx))
	require.Equal(t, domain.TaskStatusCompleted, cols.Tasks.Items()[0].Status)

	require.NoError(t, sess.Refresh(ctx))
	fresh, _ := sess.User()
	require.Equal(t, 50, fresh.TotalXP)
	require.Equal(t, 25, fresh.TotalCoins)

	require.NoError(t, cols.Skills.Refresh(ctx))
	require.Equal(t, 50, cols.Skills.Items()[0].TotalXP)
}

func TestRewardFlow(t *testing.T) {
	srv := startServer(t)
	client, sess, _ := newClientSession(t, srv.URL)
	ctx := context.Background()
	u := registerAndLogin(t, sess)
	cols := collection.NewSet(client, u.ID, nil)

	r, err := client.CreateReward(ctx, domain.RewardCreateRequest{Title: "movie night", LikeLevel: 3})
	require.NoError(t, err)
	require.Equal(t, 75, r.Price)

	// Claiming with no coins fails and changes nothing.
	err = client.BuyReward(ctx, r.ID)
	require.True(t, api.IsStatus(err, http.StatusBadRequest))

	for i := 0; i < 3; i++ {
		task, err := client.CreateTask(ctx, domain.TaskCreateRequest{
			Title: "quest", Difficulty: domain.DifficultyHard, SkillName: "math",
		})
		require.NoError(t, err)
		require.NoError(t, client.CompleteTask(ctx, task.ID))
	}

	require.NoError(t, cols.Rewards.Refresh(ctx))
	require.Equal(t, domain.RewardStatusAvailable, cols.Rewards.Items()[0].Status)

	require.NoError(t, client.BuyReward(ctx, r.ID))
	require.NoError(t, sess.Refresh(ctx))
	fresh, _ := sess.User()
	require.Equal(t, 0, fresh.TotalCoins)

	require.NoError(t, cols.Rewards.Refresh(ctx))
	require.Equal(t, domain.RewardStatusClaimed, cols.Rewards.Items()[0].Status)
}

func TestAvatarFlow(t *testing.T) {
	srv := startServer(t)
	client, sess, _ := newClientSession(t, srv.URL)
	ctx := context.Background()
	u := registerAndLogin(t, sess)
	cols := collection.NewSet(client, u.ID, nil)

	require.NoError(t, cols.Avatars.Refresh(ctx))
	owned := collection.OwnedAvatars(cols.Avatars.Items())
	require.Len(t, owned, 1)
	require.Equal(t, "knight", owned[0].IconName)

	var wizard domain.Avatar
	for _, a := range cols.Avatars.Items() {
		if a.IconName == "wizard" {
			wizard = a
		}
	}

	err := client.BuyAvatar(ctx, wizard.ID)
	require.True(t, api.IsStatus(err, http.StatusBadRequest))

	for i := 0; i < 4; i++ {
		task, err := client.CreateTask(ctx, domain.TaskCreateRequest{
			Title: "quest", Difficulty: domain.DifficultyHard, SkillName: "math",
		})
		require.NoError(t, err)
		require.NoError(t, client.CompleteTask(ctx, task.ID))
	}

	require.NoError(t, client.BuyAvatar(ctx, wizard.ID))
	require.NoError(t, client.SelectAvatar(ctx, "wizard"))
	require.NoError(t, sess.Refresh(ctx))
	fresh, _ := sess.User()
	require.Equal(t, "wizard", fresh.CurrentAvatarName)
	require.Equal(t, 20, fresh.TotalCoins)

	require.NoError(t, cols.Avatars.Refresh(ctx))
	require.Len(t, collection.OwnedAvatars(cols.Avatars.Items()), 2)
}

func TestProfileUpdateAndPasswordChange(t *testing.T) {
	srv := startServer(t)
	client, sess, _ := newClientSession(t, srv.URL)
	ctx := context.Background()
	u := registerAndLogin(t, sess)

	require.NoError(t, client.UpdateUser(ctx, u.ID, domain.UserUpdateRequest{Name: "Ana Clara"}))
	require.NoError(t, sess.Refresh(ctx))
	fresh, _ := sess.User()
	require.Equal(t, "Ana Clara", fresh.Name)

	err := client.ChangePassword(ctx, u.ID, domain.ChangePasswordRequest{
		CurrentPassword: "secret", NewPassword: "secret",
	})
	require.True(t, api.IsStatus(err, http.StatusBadRequest))

	require.NoError(t, client.ChangePassword(ctx, u.ID, domain.ChangePasswordRequest{
		CurrentPassword: "secret", NewPassword: "next",
	}))
	require.NoError(t, sess.Logout(ctx))
	require.Error(t, sess.Login(ctx, "ana", "secret"))
	require.NoError(t, sess.Login(ctx, "ana", "next"))
}
