package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"questlog/internal/domain"
)

type staticTokens struct {
	token string
	ok    bool
}

func (s staticTokens) BearerToken(context.Context) (string, bool) { return s.token, s.ok }

func TestBearerAttachedWhenLive(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(domain.User{ID: 1})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens{token: "tok123", ok: true})
	_, err := c.GetProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok123", gotAuth)
}

func TestNoBearerWhenNotLive(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(domain.User{})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens{ok: false})
	_, err := c.GetProfile(context.Background())
	require.NoError(t, err)
	require.Empty(t, gotAuth)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		var req domain.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ana", req.Username)
		json.NewEncoder(w).Encode(domain.LoginResponse{JWTToken: "jwt-abc"})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	resp, err := c.Login(context.Background(), "ana", "secret")
	require.NoError(t, err)
	require.Equal(t, "jwt-abc", resp.JWTToken)
}

func TestAPIErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such user", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.GetProfile(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "no such user")

	require.True(t, IsStatus(err, http.StatusNotFound))
	require.False(t, IsStatus(err, http.StatusConflict))
	require.False(t, IsStatus(nil, http.StatusNotFound))
}

func TestEndpointPaths(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL+"/", nil) // trailing slash must not double up

	require.NoError(t, c.CompleteTask(ctx, 12))
	require.NoError(t, c.BlockTask(ctx, 12))
	require.NoError(t, c.DeleteTask(ctx, 12))
	require.NoError(t, c.SelectAvatar(ctx, "wizard"))
	require.NoError(t, c.BuyReward(ctx, 3))
	require.NoError(t, c.BuyAvatar(ctx, 4))

	require.Equal(t, []string{
		"PATCH /tasks/12/complete",
		"PATCH /tasks/12/block",
		"DELETE /tasks/12",
		"PATCH /users/avatar/wizard",
		"PATCH /store/buy/reward/3",
		"PATCH /store/buy/avatar/4",
	}, got)
}
