package events

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/models"
)

const DefaultCursorKey = "relay:ledger:cursor"

// Source is the read side of the journal.
type Source interface {
	Load(ctx context.Context, afterSeq int64, limit int) ([]models.LedgerEvent, error)
}

type Cursor interface {
	Get(ctx context.Context) (int64, error)
	Set(ctx context.Context, seq int64) error
}

// Relay tails the journal and publishes every event to ChannelLedger and to
// the channel of the holder it concerns. Delivery is at least once: the
// cursor advances only after a whole page was published.
type Relay struct {
	source    Source
	publisher Publisher
	cursor    Cursor
	interval  time.Duration
	batchSize int
	log       *zap.Logger

	// maxElapsed bounds the retries of one page before the cycle gives up.
	maxElapsed time.Duration
}

func NewRelay(source Source, publisher Publisher, cursor Cursor, interval time.Duration, batchSize int, log *zap.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{
		source:     source,
		publisher:  publisher,
		cursor:     cursor,
		interval:   interval,
		batchSize:  batchSize,
		log:        log,
		maxElapsed: time.Minute,
	}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.log.Error("relay cycle failed", zap.Error(err))
				}
				break
			}
			if n < r.batchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce publishes at most one page of new events and returns how many it
// relayed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	after, err := r.cursor.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}

	page, err := r.source.Load(ctx, after, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load events after %d: %w", after, err)
	}
	if len(page) == 0 {
		return 0, nil
	}

	for _, ev := range page {
		if err := r.publish(ctx, ev); err != nil {
			return 0, fmt.Errorf("publish event %d: %w", ev.Seq, err)
		}
	}

	last := page[len(page)-1].Seq
	if err := r.cursor.Set(ctx, last); err != nil {
		return 0, fmt.Errorf("store cursor: %w", err)
	}
	r.log.Debug("relayed events", zap.Int("count", len(page)), zap.Int64("last_seq", last))
	return len(page), nil
}

func (r *Relay) publish(ctx context.Context, ev models.LedgerEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = r.maxElapsed

	var attempts int
	operation := func() error {
		if err := r.publisher.Publish(ctx, ChannelLedger, ev); err != nil {
			return err
		}
		for _, holder := range ev.Parties() {
			if err := r.publisher.Publish(ctx, HolderChannel(holder), ev); err != nil {
				return err
			}
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		attempts++
		r.log.Warn("publish failed, retrying",
			zap.Error(err),
			zap.Int64("seq", ev.Seq),
			zap.Int("attempt", attempts),
			zap.Duration("next_retry_in", next),
		)
	}
	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
}
