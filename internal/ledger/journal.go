package ledger

import (
	"context"
	"sync"

	"github.com/property-shares/backend/internal/models"
)

// Journal is the append-only event log the ledger state is projected from.
// Append stores a batch atomically and returns it with sequence numbers set;
// either every event of the batch is stored or none is.
type Journal interface {
	Append(ctx context.Context, batch []models.LedgerEvent) ([]models.LedgerEvent, error)
	Load(ctx context.Context, afterSeq int64, limit int) ([]models.LedgerEvent, error)
}

// MemoryJournal keeps events in process memory.
type MemoryJournal struct {
	mu     sync.RWMutex
	events []models.LedgerEvent
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(ctx context.Context, batch []models.LedgerEvent) ([]models.LedgerEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	stored := make([]models.LedgerEvent, len(batch))
	next := int64(len(j.events))
	for i, ev := range batch {
		next++
		ev.Seq = next
		stored[i] = ev
	}
	j.events = append(j.events, stored...)
	return stored, nil
}

func (j *MemoryJournal) Load(ctx context.Context, afterSeq int64, limit int) ([]models.LedgerEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	if afterSeq < 0 {
		afterSeq = 0
	}
	if afterSeq >= int64(len(j.events)) {
		return nil, nil
	}
	end := len(j.events)
	if limit > 0 && int(afterSeq)+limit < end {
		end = int(afterSeq) + limit
	}
	out := make([]models.LedgerEvent, end-int(afterSeq))
	copy(out, j.events[afterSeq:end])
	return out, nil
}

// Len returns the number of stored events.
func (j *MemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.events)
}
