package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/models"
)

// AuditStore persists audit runs.
type AuditStore interface {
	Save(ctx context.Context, run models.AuditRun) error
}

// Auditor rebuilds the ledger from its journal into a fresh engine and
// checks the conservation rules against the result.
type Auditor struct {
	journal  ledger.Journal
	store    AuditStore
	pageSize int
	log      *zap.Logger
}

func NewAuditor(journal ledger.Journal, store AuditStore, pageSize int, log *zap.Logger) *Auditor {
	return &Auditor{journal: journal, store: store, pageSize: pageSize, log: log}
}

func (a *Auditor) Run(ctx context.Context) (models.AuditRun, error) {
	run := models.AuditRun{ID: uuid.New(), StartedAt: time.Now().UTC()}

	opts := ledger.DefaultOptions()
	if a.pageSize > 0 {
		opts.ReplayPageSize = a.pageSize
	}
	engine := ledger.New(a.journal, nil, nil, nil, opts, a.log)
	n, err := engine.Replay(ctx)
	run.Events = n
	run.LastSeq = engine.LastSeq()

	// a journal that cannot be replayed is reported like any other violation
	if err != nil {
		run.Violations = []string{fmt.Sprintf("replay: %v", err)}
	} else if err := engine.CheckInvariants(); err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, v := range joined.Unwrap() {
				run.Violations = append(run.Violations, v.Error())
			}
		} else {
			run.Violations = []string{err.Error()}
		}
	}
	run.OK = len(run.Violations) == 0
	run.FinishedAt = time.Now().UTC()

	if run.OK {
		a.log.Info("audit passed", zap.Int("events", run.Events), zap.Int64("last_seq", run.LastSeq))
	} else {
		a.log.Error("audit found violations",
			zap.Int64("last_seq", run.LastSeq),
			zap.Strings("violations", run.Violations),
		)
	}

	if a.store != nil {
		if err := a.store.Save(ctx, run); err != nil {
			return run, fmt.Errorf("save audit run: %w", err)
		}
	}
	return run, nil
}
