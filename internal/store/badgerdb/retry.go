package badgerdb

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkcircle/inkcircle-server/internal/store"
)

// maxBackoffShift caps the exponential growth of the retry sleep.
const maxBackoffShift = 6

// update runs fn in a read-write transaction, retrying on badger.ErrConflict.
// Badger detects a conflict when a key read by fn was committed by another
// transaction after this one started, so a retried fn sees the winner's write.
func (s *Store) update(ctx context.Context, entity, id string, fn func(txn *badger.Txn) error) error {
	span := trace.SpanFromContext(ctx)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			if err == nil && attempt > 1 {
				span.SetAttributes(attribute.Int("store.attempts", attempt))
			}
			return err
		}

		span.AddEvent("transaction conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
		if s.opts.OnConflict != nil {
			s.opts.OnConflict(entity)
		}

		if attempt >= s.opts.MaxAttempts {
			s.logger.Warn("update retries exhausted",
				"entity", entity,
				"id", id,
				"attempts", attempt,
			)
			return store.ErrConflictRetriesExhausted.WithCause(err)
		}

		if err := s.backoff(ctx, attempt); err != nil {
			return err
		}
	}
}

// backoff sleeps for a jittered duration that grows with attempt.
func (s *Store) backoff(ctx context.Context, attempt int) error {
	ceiling := s.opts.BaseBackoff << min(attempt-1, maxBackoffShift)
	timer := time.NewTimer(rand.N(ceiling) + 1)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
