package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/models"
)

type memCursor struct {
	mu  sync.Mutex
	seq int64
}

func (c *memCursor) Get(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq, nil
}

func (c *memCursor) Set(_ context.Context, seq int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = seq
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	failures int
	sent     map[string][]int64
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, ev models.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("redis unavailable")
	}
	if p.sent == nil {
		p.sent = map[string][]int64{}
	}
	p.sent[channel] = append(p.sent[channel], ev.Seq)
	return nil
}

func seedJournal(t *testing.T, holders ...string) *ledger.MemoryJournal {
	t.Helper()
	j := ledger.NewMemoryJournal()
	batch := make([]models.LedgerEvent, len(holders))
	for i, h := range holders {
		batch[i] = models.LedgerEvent{Type: models.EventTransferSingle, Holder: h, Payload: []byte(`{}`), CreatedAt: time.Now()}
	}
	_, err := j.Append(context.Background(), batch)
	require.NoError(t, err)
	return j
}

func TestRelayPagesAndAdvancesCursor(t *testing.T) {
	j := seedJournal(t, "alice", "", "bob", "alice", "carol")
	pub := &recordingPublisher{}
	cur := &memCursor{}
	relay := NewRelay(j, pub, cur, time.Second, 2, zap.NewNop())
	ctx := context.Background()

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), cur.seq)

	for {
		n, err = relay.RunOnce(ctx)
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}
	assert.Equal(t, int64(5), cur.seq)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, pub.sent[ChannelLedger])
	assert.Equal(t, []int64{1, 4}, pub.sent[HolderChannel("alice")])
	assert.Equal(t, []int64{3}, pub.sent[HolderChannel("bob")])
}

func TestRelayPublishesToBothTradeSides(t *testing.T) {
	j := ledger.NewMemoryJournal()
	_, err := j.Append(context.Background(), []models.LedgerEvent{{
		Type:      models.EventTransferSingle,
		Holder:    "carol",
		Payload:   []byte(`{"operator":"carol","from":"bob","to":"carol","amount":10}`),
		CreatedAt: time.Now(),
	}})
	require.NoError(t, err)
	pub := &recordingPublisher{}
	relay := NewRelay(j, pub, &memCursor{}, time.Second, 10, zap.NewNop())

	_, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, pub.sent[HolderChannel("carol")])
	assert.Equal(t, []int64{1}, pub.sent[HolderChannel("bob")])
}

func TestRelayRetriesPublish(t *testing.T) {
	j := seedJournal(t, "alice")
	pub := &recordingPublisher{failures: 2}
	cur := &memCursor{}
	relay := NewRelay(j, pub, cur, time.Second, 10, zap.NewNop())

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, pub.sent[ChannelLedger])
}

func TestRelayKeepsCursorOnFailure(t *testing.T) {
	j := seedJournal(t, "alice", "bob")
	pub := &recordingPublisher{failures: 1 << 20}
	cur := &memCursor{}
	relay := NewRelay(j, pub, cur, time.Second, 10, zap.NewNop())
	relay.maxElapsed = 50 * time.Millisecond

	_, err := relay.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(0), cur.seq)
}
