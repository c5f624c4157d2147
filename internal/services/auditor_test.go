package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/models"
)

type memAuditStore struct {
	runs []models.AuditRun
}

func (s *memAuditStore) Save(_ context.Context, run models.AuditRun) error {
	s.runs = append(s.runs, run)
	return nil
}

func TestAuditorReplaysJournal(t *testing.T) {
	ctx := context.Background()
	journal := ledger.NewMemoryJournal()
	live := ledger.New(journal, nil, nil, nil, ledger.DefaultOptions(), zap.NewNop())
	require.NoError(t, live.Bootstrap(ctx, "owner", []string{"admin"}))
	_, err := live.SetPaused(ctx, "admin", true)
	require.NoError(t, err)

	store := &memAuditStore{}
	run, err := NewAuditor(journal, store, 1, zap.NewNop()).Run(ctx)
	require.NoError(t, err)
	assert.True(t, run.OK)
	assert.Empty(t, run.Violations)
	assert.Equal(t, live.LastSeq(), run.LastSeq)
	assert.Equal(t, journal.Len(), run.Events)
	require.Len(t, store.runs, 1)
	assert.Equal(t, run.ID, store.runs[0].ID)
}

func TestAuditorReportsTamperedJournal(t *testing.T) {
	ctx := context.Background()
	journal := ledger.NewMemoryJournal()
	ghost := uuid.New()
	_, err := journal.Append(ctx, []models.LedgerEvent{{
		Type:       models.EventTransferSingle,
		PropertyID: &ghost,
		Holder:     "mallory",
		Amount:     10,
		Payload:    []byte(`{}`),
	}})
	require.NoError(t, err)

	store := &memAuditStore{}
	run, err := NewAuditor(journal, store, 0, zap.NewNop()).Run(ctx)
	require.NoError(t, err)
	assert.False(t, run.OK)
	require.Len(t, run.Violations, 1)
	assert.Contains(t, run.Violations[0], "replay")
	require.Len(t, store.runs, 1)
	assert.False(t, store.runs[0].OK)
}
