package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/repository"
)

// writeTimeout bounds a single background write.
const writeTimeout = 5 * time.Second

var errWriterClosed = errors.New("store: writer closed")

// persister is the single background writer for the saved-cards record.
//
// Only the newest queued snapshot matters: if several snapshots are queued
// while a write is in flight, the intermediate ones are skipped and the next
// write carries the latest collection. Every snapshot gets a strictly
// increasing seq that the repository uses to reject stale writes.
type persister struct {
	repo      repository.SavedCardRepository
	namespace string
	logger    *slog.Logger

	mu      sync.Mutex
	seq     int64        // last seq handed out
	pending []model.Card // newest snapshot not yet written, nil when idle
	pendSeq int64
	done    int64 // highest seq attempted
	lastErr error // result of the write that produced done
	loadErr error // failed restore, cleared by the next successful write
	changed chan struct{}
	closed  bool

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

func newPersister(repo repository.SavedCardRepository, namespace string, logger *slog.Logger) *persister {
	p := &persister{
		repo:      repo,
		namespace: namespace,
		logger:    logger,
		changed:   make(chan struct{}),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go p.run()
	return p
}

// advanceTo moves the seq counter past the seq already stored, so writes
// after a restart are newer than the record they replace.
func (p *persister) advanceTo(stored int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stored > p.seq {
		p.seq = stored
		p.done = max(p.done, stored)
	}
}

func (p *persister) enqueue(cards []model.Card) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("saved cards changed after the writer was closed, change is kept in memory only",
			slog.String("namespace", p.namespace),
		)
		return
	}
	p.seq++
	p.pending = cards
	p.pendSeq = p.seq
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default: // a wake-up is already pending
	}
}

func (p *persister) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.writePending()
		case <-p.stop:
			p.writePending()
			return
		}
	}
}

func (p *persister) writePending() {
	p.mu.Lock()
	cards, seq := p.pending, p.pendSeq
	p.pending = nil
	p.mu.Unlock()

	if cards == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	err := p.repo.SaveSavedCards(ctx, p.namespace, seq, cards)
	cancel()

	if err != nil {
		p.logger.Error("persisting saved cards failed, continuing in memory",
			slog.String("namespace", p.namespace),
			slog.Int64("seq", seq),
			slog.String("error", err.Error()),
		)
	} else {
		p.logger.Debug("saved cards persisted",
			slog.String("namespace", p.namespace),
			slog.Int64("seq", seq),
			slog.Int("count", len(cards)),
		)
	}

	p.mu.Lock()
	p.done = seq
	p.lastErr = err
	if err == nil {
		p.loadErr = nil
	}
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

func (p *persister) flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.done >= p.seq {
			err := p.lastErr
			p.mu.Unlock()
			if err != nil {
				return apperror.Persistence("saved", err)
			}
			return nil
		}
		ch := p.changed
		p.mu.Unlock()

		select {
		case <-ch:
		case <-p.stopped:
			p.mu.Lock()
			finished := p.done >= p.seq
			p.mu.Unlock()
			if !finished {
				return apperror.Persistence("saved", errWriterClosed)
			}
		case <-ctx.Done():
			return apperror.Persistence("saved", ctx.Err())
		}
	}
}

// loadFailed records a failed restore until a write succeeds.
func (p *persister) loadFailed(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadErr = err
}

func (p *persister) degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr != nil || p.loadErr != nil
}

func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.stopped
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)

	select {
	case <-p.stopped:
	case <-ctx.Done():
		return apperror.Persistence("saved", ctx.Err())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastErr != nil {
		return apperror.Persistence("saved", p.lastErr)
	}
	return nil
}
