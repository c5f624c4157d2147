package services

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
)

// SettlementAPI is the part of the ledger API the sweeper drives.
type SettlementAPI interface {
	Due(ctx context.Context) (*dto.DueResponse, error)
	Conclude(ctx context.Context, propertyID uuid.UUID) error
	Finalize(ctx context.Context, proposalID uuid.UUID) error
}

// SweepResult counts the outcome of one cycle.
type SweepResult struct {
	Concluded int32
	Finalized int32
	Skipped   int32
	Failed    int32
}

// SettlementSweeper triggers every passed time gate. Sales and proposals are
// independent, so triggers run concurrently on a pond pool.
type SettlementSweeper struct {
	api         SettlementAPI
	concurrency int
	log         *zap.Logger
}

func NewSettlementSweeper(api SettlementAPI, concurrency int, log *zap.Logger) *SettlementSweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SettlementSweeper{api: api, concurrency: concurrency, log: log}
}

// Sweep runs a single cycle.
func (s *SettlementSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	due, err := s.api.Due(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	if len(due.Sales) == 0 && len(due.Proposals) == 0 {
		return SweepResult{}, nil
	}

	var concluded, finalized, skipped, failed atomic.Int32
	pool := pond.NewPool(s.concurrency, pond.WithContext(ctx))

	trigger := func(kind string, id uuid.UUID, fn func(context.Context, uuid.UUID) error, done *atomic.Int32) {
		pool.Submit(func() {
			err := fn(ctx, id)
			switch {
			case err == nil:
				done.Add(1)
				s.log.Info("time gate triggered", zap.String("kind", kind), zap.String("id", id.String()))
			case errors.Is(err, ErrAlreadySettled):
				skipped.Add(1)
				s.log.Debug("time gate already settled", zap.String("kind", kind), zap.String("id", id.String()))
			default:
				failed.Add(1)
				s.log.Error("failed to trigger time gate", zap.String("kind", kind), zap.String("id", id.String()), zap.Error(err))
			}
		})
	}
	for _, id := range due.Sales {
		trigger("sale", id, s.api.Conclude, &concluded)
	}
	for _, id := range due.Proposals {
		trigger("proposal", id, s.api.Finalize, &finalized)
	}
	pool.StopAndWait()

	res := SweepResult{
		Concluded: concluded.Load(),
		Finalized: finalized.Load(),
		Skipped:   skipped.Load(),
		Failed:    failed.Load(),
	}
	s.log.Info("sweep cycle completed",
		zap.Int32("concluded", res.Concluded),
		zap.Int32("finalized", res.Finalized),
		zap.Int32("skipped", res.Skipped),
		zap.Int32("failed", res.Failed),
	)
	return res, nil
}
