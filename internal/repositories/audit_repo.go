package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/property-shares/backend/internal/models"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Save(ctx context.Context, run models.AuditRun) error {
	violations := run.Violations
	if violations == nil {
		violations = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_runs (id, last_seq, events, ok, violations, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, run.ID, run.LastSeq, run.Events, run.OK, violations, run.StartedAt, run.FinishedAt)
	return err
}

func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]models.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, last_seq, events, ok, violations, started_at, finished_at
		FROM audit_runs ORDER BY finished_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.AuditRun
	for rows.Next() {
		var run models.AuditRun
		if err := rows.Scan(&run.ID, &run.LastSeq, &run.Events, &run.OK, &run.Violations, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
