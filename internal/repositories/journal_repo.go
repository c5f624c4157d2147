package repositories

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/property-shares/backend/internal/models"
)

// journalLockKey serializes appends so that sequence numbers become visible
// in commit order and a tailing reader never skips a lower seq.
const journalLockKey = 727_100_001

// JournalRepo stores ledger events in postgres.
type JournalRepo struct {
	pool *pgxpool.Pool
}

func NewJournalRepo(pool *pgxpool.Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

func (r *JournalRepo) Append(ctx context.Context, batch []models.LedgerEvent) ([]models.LedgerEvent, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", journalLockKey); err != nil {
		return nil, err
	}

	stored := make([]models.LedgerEvent, len(batch))
	for i, ev := range batch {
		err := tx.QueryRow(ctx, `
			INSERT INTO ledger_events (type, property_id, holder, amount, payload, created_at)
			VALUES ($1, $2, $3, $4::numeric, $5, $6)
			RETURNING seq
		`, ev.Type, ev.PropertyID, ev.Holder, strconv.FormatUint(ev.Amount, 10), []byte(ev.Payload), ev.CreatedAt).Scan(&ev.Seq)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", ev.Type, err)
		}
		stored[i] = ev
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *JournalRepo) Load(ctx context.Context, afterSeq int64, limit int) ([]models.LedgerEvent, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT seq, type, property_id, holder, amount::text, payload, created_at
		FROM ledger_events WHERE seq > $1
		ORDER BY seq LIMIT $2
	`, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ByProperty returns the events of one property, newest first.
func (r *JournalRepo) ByProperty(ctx context.Context, propertyID string, limit, offset int) ([]models.LedgerEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT seq, type, property_id, holder, amount::text, payload, created_at
		FROM ledger_events WHERE property_id = $1
		ORDER BY seq DESC LIMIT $2 OFFSET $3
	`, propertyID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ByHolder returns the events a holder took part in, newest first.
func (r *JournalRepo) ByHolder(ctx context.Context, holder string, limit, offset int) ([]models.LedgerEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT seq, type, property_id, holder, amount::text, payload, created_at
		FROM ledger_events WHERE holder = $1
		ORDER BY seq DESC LIMIT $2 OFFSET $3
	`, holder, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]models.LedgerEvent, error) {
	defer rows.Close()

	var out []models.LedgerEvent
	for rows.Next() {
		var (
			ev      models.LedgerEvent
			amount  string
			payload []byte
		)
		if err := rows.Scan(&ev.Seq, &ev.Type, &ev.PropertyID, &ev.Holder, &amount, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		v, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("event %d amount %q: %w", ev.Seq, amount, err)
		}
		ev.Amount = v
		ev.Payload = payload
		out = append(out, ev)
	}
	return out, rows.Err()
}
