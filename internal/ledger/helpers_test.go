package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/models"
)

const (
	testOwner  = "owner"
	testAdmin  = "admin"
	testIssuer = "issuer"
	saleWindow = 24 * time.Hour
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type identityFunc func(holder string) bool

func (f identityFunc) IsVerified(_ context.Context, holder string) (bool, error) {
	return f(holder), nil
}

type fixedRates map[string]models.Rate

func (r fixedRates) Rate(_ context.Context, currency string) (models.Rate, bool, error) {
	rate, ok := r[currency]
	return rate, ok, nil
}

// failingJournal rejects appends while fail is set.
type failingJournal struct {
	*MemoryJournal
	fail atomic.Bool
}

var errJournalDown = errors.New("journal unavailable")

func (j *failingJournal) Append(ctx context.Context, batch []models.LedgerEvent) ([]models.LedgerEvent, error) {
	if j.fail.Load() {
		return nil, errJournalDown
	}
	return j.MemoryJournal.Append(ctx, batch)
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	engine  *Engine
	clock   *fakeClock
	journal *failingJournal
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, DefaultOptions(), nil)
}

func newHarnessWith(t *testing.T, opts Options, identity IdentityChecker) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		clock:   newFakeClock(),
		journal: &failingJournal{MemoryJournal: NewMemoryJournal()},
	}
	rates := fixedRates{models.CurrencyNative: {Num: 2, Den: 1}}
	h.engine = New(h.journal, h.clock, identity, rates, opts, zap.NewNop())
	require.NoError(t, h.engine.Bootstrap(h.ctx, testOwner, []string{testAdmin}))
	return h
}

var refSeq atomic.Int64

func pay(payer string, amount uint64) models.Payment {
	return models.Payment{
		Amount:    amount,
		Currency:  models.CurrencyStable,
		Payer:     payer,
		Reference: fmt.Sprintf("ref-%d", refSeq.Add(1)),
	}
}

// listProperty registers and approves a property whose sale is open.
func (h *harness) listProperty(price, total uint64) uuid.UUID {
	h.t.Helper()
	req, err := h.engine.SubmitRequest(h.ctx, SubmitRequestInput{
		Requester:     testIssuer,
		PricePerShare: price,
		TotalShares:   total,
		SaleWindow:    saleWindow,
		MetadataURI:   "https://example.com/property/1",
	})
	require.NoError(h.t, err)
	_, prop, err := h.engine.ResolveRequest(h.ctx, testAdmin, req.ID, true, nil)
	require.NoError(h.t, err)
	require.NotNil(h.t, prop)
	return prop.ID
}

func (h *harness) buy(buyer string, propertyID uuid.UUID, shares uint64) *models.Order {
	h.t.Helper()
	prop, err := h.engine.Property(propertyID)
	require.NoError(h.t, err)
	order, err := h.engine.Buy(h.ctx, buyer, propertyID, shares, pay(buyer, shares*prop.PricePerShare))
	require.NoError(h.t, err)
	return order
}

// settle concludes a sale after its deadline and claims every pending claim.
func (h *harness) settle(propertyID uuid.UUID) {
	h.t.Helper()
	h.clock.Advance(saleWindow)
	_, err := h.engine.Conclude(h.ctx, propertyID)
	require.NoError(h.t, err)
	sale, err := h.engine.Sale(propertyID)
	require.NoError(h.t, err)
	seen := map[string]bool{}
	for _, o := range sale.Orders {
		if seen[o.Buyer] {
			continue
		}
		seen[o.Buyer] = true
		_, err := h.engine.Claim(h.ctx, o.Buyer, propertyID)
		require.NoError(h.t, err)
	}
}

// soldProperty returns a concluded property with the given final holdings.
func (h *harness) soldProperty(price, total uint64, holdings map[string]uint64) uuid.UUID {
	h.t.Helper()
	id := h.listProperty(price, total)
	for buyer, shares := range holdings {
		h.buy(buyer, id, shares)
	}
	h.settle(id)
	return id
}

func (h *harness) balance(holder string, propertyID uuid.UUID) uint64 {
	h.t.Helper()
	b, err := h.engine.BalanceOf(holder, propertyID)
	require.NoError(h.t, err)
	return b
}
