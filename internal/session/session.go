// Package session owns the authenticated identity and the credential
// lifecycle. It is a small state machine: anonymous (no valid
// credential) -> loading (identity fetch in flight) -> authenticated,
// falling back to anonymous on logout or on a failed identity fetch.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"questlog/internal/credential"
	"questlog/internal/domain"
)

// State of the session.
type State int

const (
	StateAnonymous State = iota
	StateLoading
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// ErrNotAuthenticated is returned when an operation needs a resolved
// identity and the session is anonymous.
var ErrNotAuthenticated = errors.New("not authenticated")

// API is the slice of the HTTP client the session depends on.
type API interface {
	Login(ctx context.Context, username, password string) (domain.LoginResponse, error)
	RegisterUser(ctx context.Context, req domain.UserCreateRequest) error
	GetProfile(ctx context.Context) (domain.User, error)
}

// Session is constructed once per process and passed to consumers;
// there is no ambient global.
type Session struct {
	api   API
	creds *credential.Store
	log   *zap.Logger

	mu    sync.Mutex
	state State
	user  *domain.User
}

func New(api API, creds *credential.Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{api: api, creds: creds, log: log}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns a copy of the resolved identity. Consumers that want to
// show a predicted value (optimistic update) work on the copy and let
// the next Refresh supersede it; the shared identity is never mutated
// from outside.
func (s *Session) User() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// UserID returns the resolved identity's id, required by the per-user
// collection constructors.
func (s *Session) UserID() (int64, error) {
	u, ok := s.User()
	if !ok {
		return 0, ErrNotAuthenticated
	}
	return u.ID, nil
}

// Login authenticates, stores the returned token, and runs the
// identity fetch cycle. A fetch failure after a successful login rolls
// the session back to anonymous.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return errors.New("username and password are required")
	}
	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		return errors.Wrap(err, "login")
	}
	if err := s.creds.SetToken(ctx, resp.JWTToken); err != nil {
		return err
	}
	s.log.Info("credential stored, resolving identity", zap.String("username", username))
	return s.loadUser(ctx)
}

// Register creates an account. It does not authenticate; callers log
// in separately.
func (s *Session) Register(ctx context.Context, req domain.UserCreateRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return errors.New("name is required")
	case strings.TrimSpace(req.Nickname) == "":
		return errors.New("nickname is required")
	case strings.TrimSpace(req.Email) == "":
		return errors.New("email is required")
	case req.Password == "":
		return errors.New("password is required")
	}
	if err := s.api.RegisterUser(ctx, req); err != nil {
		return errors.Wrap(err, "register")
	}
	return nil
}

// Logout clears the credential and identity synchronously and returns
// the session to anonymous.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateAnonymous
	s.user = nil
	s.mu.Unlock()
	return s.creds.Clear(ctx)
}

// Refresh re-fetches the identity without touching the token. Used
// after actions that mutate the identity server-side (task completion,
// purchases).
func (s *Session) Refresh(ctx context.Context) error {
	if s.State() != StateAuthenticated {
		return ErrNotAuthenticated
	}
	u, err := s.api.GetProfile(ctx)
	if err != nil {
		return errors.Wrap(err, "refresh identity")
	}
	s.setUser(ctx, u)
	return nil
}

// Restore replays the startup path: if a live token is stored, seed
// the identity from the cached snapshot and fetch the authoritative
// one. The in-memory identity is always the render source of truth;
// the snapshot only bridges the gap until the fetch lands.
func (s *Session) Restore(ctx context.Context) error {
	if !s.creds.IsAuthenticated(ctx) {
		s.mu.Lock()
		s.state = StateAnonymous
		s.user = nil
		s.mu.Unlock()
		return nil
	}
	if cached, err := s.creds.CachedUser(ctx); err == nil && cached != nil {
		s.mu.Lock()
		s.user = cached
		s.mu.Unlock()
	}
	return s.loadUser(ctx)
}

// loadUser runs the loading -> fetch cycle. A failure here is the one
// automatic recovery path for an invalid, expired, or rejected token:
// the session logs out internally.
func (s *Session) loadUser(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	u, err := s.api.GetProfile(ctx)
	if err != nil {
		s.log.Warn("identity fetch failed, logging out", zap.Error(err))
		if lerr := s.Logout(ctx); lerr != nil {
			s.log.Warn("logout after failed fetch", zap.Error(lerr))
		}
		return errors.Wrap(err, "resolve identity")
	}
	s.setUser(ctx, u)
	return nil
}

func (s *Session) setUser(ctx context.Context, u domain.User) {
	s.mu.Lock()
	s.user = &u
	s.state = StateAuthenticated
	s.mu.Unlock()
	// Snapshot failures are not fatal; the in-memory copy stays valid.
	if err := s.creds.SaveUser(ctx, u); err != nil {
		s.log.Warn("persist identity snapshot", zap.Error(err))
	}
	s.log.Info("identity resolved", zap.String("nickname", u.Nickname), zap.Int64("user_id", u.ID))
}
