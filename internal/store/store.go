// Package store holds the single source of truth for the card being edited
// and the collection of saved cards.
//
// State changes only through Dispatch with one of the Command variants. Each
// dispatch runs to completion under a mutex and produces a new snapshot with
// a higher Version; snapshots handed to callers are deep copies and never
// change afterwards. Whenever the saved cards change, the full collection is
// queued for a background write to the repository.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/clock"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/repository"
)

// State is an immutable snapshot of the store.
//
// Version increases by one with every dispatch that changed something, so
// observers can detect change by comparing versions.
type State struct {
	Current model.Card
	Saved   []model.Card
	Version uint64
}

func (s State) clone() State {
	out := s
	out.Current = s.Current.Clone()
	out.Saved = make([]model.Card, len(s.Saved))
	for i, c := range s.Saved {
		out.Saved[i] = c.Clone()
	}
	return out
}

// Store is constructed once at process start and passed to every consumer.
type Store struct {
	mu    sync.Mutex
	state State
	env   env

	namespace string
	repo      repository.SavedCardRepository
	writer    *persister
	logger    *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithIDGenerator replaces model.NewID, mainly for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.env.newID = fn }
}

// New creates a store with a fresh current card and no saved cards. Call
// Restore to load previously persisted cards and Close to stop the writer.
func New(repo repository.SavedCardRepository, namespace string, clk clock.Clock, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		state: State{
			Current: model.NewCard(clock.Year(clk)),
			Saved:   []model.Card{},
		},
		env: env{
			now:   clk.Now,
			newID: model.NewID,
		},
		namespace: namespace,
		repo:      repo,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = newPersister(repo, namespace, logger)
	return s
}

// Restore loads the persisted saved cards. On failure the store keeps
// running in memory with no saved cards and a PersistenceError is returned.
func (s *Store) Restore(ctx context.Context) error {
	rec, err := s.repo.LoadSavedCards(ctx, s.namespace)
	s.writer.advanceTo(rec.Seq)
	if err != nil {
		s.writer.loadFailed(err)
		s.logger.Error("restoring saved cards failed, continuing in memory",
			slog.String("namespace", s.namespace),
			slog.String("error", err.Error()),
		)
		return apperror.Persistence("loaded", err)
	}

	if rec.Cards == nil {
		rec.Cards = []model.Card{}
	}

	s.mu.Lock()
	s.state.Saved = rec.Cards
	s.state.Version++
	s.mu.Unlock()

	s.logger.Info("saved cards restored",
		slog.String("namespace", s.namespace),
		slog.Int("count", len(rec.Cards)),
	)
	return nil
}

// Dispatch applies cmd and returns the resulting snapshot. It never fails;
// persistence of the saved cards happens in the background (see Flush).
func (s *Store) Dispatch(cmd Command) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, eff := cmd.apply(s.state, s.env)
	if eff == unchanged {
		return s.state.clone()
	}

	next.Version = s.state.Version + 1
	s.state = next

	if eff&changedSaved != 0 {
		// Enqueued under the lock so queue order matches dispatch order.
		s.writer.enqueue(s.state.clone().Saved)
	}

	s.logger.Debug("command applied",
		slog.String("kind", cmd.Kind()),
		slog.Uint64("version", next.Version),
	)
	return s.state.clone()
}

// Snapshot returns the latest state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Current returns a copy of the card being edited.
func (s *Store) Current() model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Current.Clone()
}

// SavedCard returns the saved card with the given id.
func (s *Store) SavedCard(id string) (model.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.state.Saved {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return model.Card{}, false
}

// Flush waits until every queued write has been attempted. It returns a
// PersistenceError when the most recent write failed.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Degraded reports whether durable storage is failing: the last write failed,
// or the restore failed and nothing has been written since. Saved cards may
// not survive a restart while it is true.
func (s *Store) Degraded() bool {
	return s.writer.degraded()
}

// Close writes any pending snapshot and stops the background writer.
func (s *Store) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}
