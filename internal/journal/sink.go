package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"go.uber.org/zap"
)

const (
	eventMoveCompleted = "move_completed"
	eventMoveAbandoned = "move_abandoned"
	eventSessionReset  = "session_reset"

	defaultWriteTimeout = 3 * time.Second
)

// Record is one observed event plus the snapshot taken right after it.
type Record struct {
	Event    boarddto.Event
	Snapshot *boarddto.Snapshot
}

// Sink writes records to whichever of the store and repository are set.
// Either may be nil.
type Sink struct {
	store   *Store
	repo    *Repository
	logger  *zap.Logger
	timeout time.Duration

	mu    sync.Mutex
	epoch map[string]int
}

func NewSink(store *Store, repo *Repository, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		store:   store,
		repo:    repo,
		logger:  logger,
		timeout: defaultWriteTimeout,
		epoch:   make(map[string]int),
	}
}

// Enabled reports whether the sink writes anywhere.
func (s *Sink) Enabled() bool { return s != nil && (s.store != nil || s.repo != nil) }

// Epoch is the number of resets seen for a session.
func (s *Sink) Epoch(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch[sessionID]
}

// Write persists rec. Failures of one backend do not stop the other.
func (s *Sink) Write(ctx context.Context, rec Record) error {
	if !s.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id := rec.Event.State.SessionID
	s.mu.Lock()
	if rec.Event.Type == eventSessionReset {
		s.epoch[id]++
	}
	epoch := s.epoch[id]
	s.mu.Unlock()

	var errs []error
	if s.store != nil {
		if err := s.store.PublishEvent(ctx, rec.Event); err != nil {
			errs = append(errs, err)
		}
		if rec.Snapshot != nil {
			if err := s.store.SaveSnapshot(ctx, *rec.Snapshot); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if s.repo != nil {
		if err := s.repo.SaveMove(ctx, rec.Event, epoch); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("journal_write_failed",
			zap.String("session", id),
			zap.String("event", rec.Event.Type),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.repo != nil {
		errs = append(errs, s.repo.Close())
	}
	return errors.Join(errs...)
}
