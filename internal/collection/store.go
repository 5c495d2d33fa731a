// Package collection implements the domain collection pattern: one
// in-memory list per resource, scoped to a resolved identity, replaced
// wholesale by Refresh. Mutations happen elsewhere (through the API
// client); consumers call Refresh afterwards.
package collection

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"questlog/internal/api"
	"questlog/internal/domain"
)

// Fetch retrieves the server's current full list.
type Fetch[T any] func(ctx context.Context) ([]T, error)

// Store holds one collection. Concurrent Refresh calls race on the
// network, so each request carries a monotonic sequence number and a
// response is discarded when a newer request has been issued since —
// last request wins, not last response.
type Store[T any] struct {
	name  string
	fetch Fetch[T]
	log   *zap.Logger

	mu     sync.Mutex
	items  []T
	loaded bool
	issued uint64
}

func NewStore[T any](name string, fetch Fetch[T], log *zap.Logger) *Store[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store[T]{name: name, fetch: fetch, log: log}
}

// Items returns a copy of the current collection.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Loaded reports whether at least one refresh has succeeded.
func (s *Store[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Refresh fetches the full collection and replaces the in-memory copy.
// On failure the previous collection stays in place (stale but
// available) and the error is returned for the caller to report; on a
// superseded response the result is dropped silently.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	items, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("collection refresh failed, keeping stale copy",
			zap.String("collection", s.name), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.issued {
		s.log.Debug("discarding superseded refresh response",
			zap.String("collection", s.name), zap.Uint64("seq", seq), zap.Uint64("latest", s.issued))
		return nil
	}
	s.items = items
	s.loaded = true
	return nil
}

// Set is the composition root for the per-identity collections. The
// user id is a constructor argument, making the identity-first fetch
// order a parameter-level contract.
type Set struct {
	Tasks   *Store[domain.Task]
	Skills  *Store[domain.Skill]
	Rewards *Store[domain.Reward]
	Avatars *Store[domain.Avatar]
}

// NewSet builds the four collection stores for a resolved identity.
// Avatars is the one global collection; the rest are scoped to userID.
func NewSet(client *api.Client, userID int64, log *zap.Logger) *Set {
	return &Set{
		Tasks: NewStore("tasks", func(ctx context.Context) ([]domain.Task, error) {
			return client.ListTasksByUser(ctx, userID)
		}, log),
		Skills: NewStore("skills", func(ctx context.Context) ([]domain.Skill, error) {
			return client.ListSkillsByUser(ctx, userID)
		}, log),
		Rewards: NewStore("rewards", func(ctx context.Context) ([]domain.Reward, error) {
			return client.ListRewardsByUser(ctx, userID)
		}, log),
		Avatars: NewStore("avatars", func(ctx context.Context) ([]domain.Avatar, error) {
			return client.ListAvatars(ctx)
		}, log),
	}
}
