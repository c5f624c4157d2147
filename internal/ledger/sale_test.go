package ledger

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/property-shares/backend/internal/models"
)

func TestOversubscribedSaleAllocatesProRata(t *testing.T) {
	h := newHarness(t)
	id := h.listProperty(10, 100)

	first := h.buy("alice", id, 70)
	second := h.buy("bob", id, 50)
	assert.False(t, first.Oversubscribed)
	assert.True(t, second.Oversubscribed)

	h.clock.Advance(saleWindow)
	sale, err := h.engine.Conclude(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusConcluded, sale.Property.Status)
	assert.True(t, sale.Oversubscribed)
	assert.Equal(t, uint64(120), sale.TotalReserved)

	alice, err := h.engine.Claim(h.ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(58), alice.SharesOwed)
	assert.Equal(t, uint64(700-580), alice.RefundOwed)

	bob, err := h.engine.Claim(h.ctx, "bob", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), bob.SharesOwed)
	assert.Equal(t, uint64(500-420), bob.RefundOwed)

	assert.Equal(t, uint64(58), h.balance("alice", id))
	assert.Equal(t, uint64(42), h.balance("bob", id))

	// every unit paid is either honored or refunded
	assert.Equal(t, uint64(1200), 580+alice.RefundOwed+420+bob.RefundOwed)
	require.NoError(t, h.engine.CheckInvariants())
}

func TestClaimIsIdempotent(t *testing.T) {
	h := newHarness(t)
	id := h.listProperty(10, 100)
	h.buy("alice", id, 30)
	h.clock.Advance(saleWindow)
	_, err := h.engine.Conclude(h.ctx, id)
	require.NoError(t, err)

	_, err = h.engine.Claim(h.ctx, "alice", id)
	require.NoError(t, err)
	before := h.journal.Len()

	_, err = h.engine.Claim(h.ctx, "alice", id)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, KindState, KindOf(err))
	assert.Equal(t, uint64(30), h.balance("alice", id))
	assert.Equal(t, before, h.journal.Len(), "failed claim must not journal anything")
}

func TestUndersubscribedSaleHonorsEveryOrder(t *testing.T) {
	h := newHarness(t)
	id := h.listProperty(5, 100)
	h.buy("alice", id, 30)
	h.buy("alice", id, 10)
	h.buy("bob", id, 20)
	h.settle(id)

	assert.Equal(t, uint64(40), h.balance("alice", id))
	assert.Equal(t, uint64(20), h.balance("bob", id))
	sale, err := h.engine.Sale(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), sale.Issued)
	assert.Equal(t, 0, sale.PendingClaims)
	assert.Equal(t, uint64(300), sale.Proceeds[models.CurrencyStable])
	require.NoError(t, h.engine.CheckInvariants())
}

func TestBuyRejections(t *testing.T) {
	h := newHarness(t)
	id := h.listProperty(10, 100)

	tests := []struct {
		name    string
		buyer   string
		shares  uint64
		payment models.Payment
		want    error
	}{
		{"zero shares", "alice", 0, pay("alice", 0), ErrInvalidParams},
		{"short payment", "alice", 10, pay("alice", 99), ErrPaymentMismatch},
		{"foreign payer", "alice", 10, pay("bob", 100), ErrPaymentMismatch},
		{"unknown currency", "alice", 10, models.Payment{Amount: 100, Currency: "EUR", Payer: "alice", Reference: "eur-1"}, ErrUnsupportedCurrency},
		{"missing reference", "alice", 10, models.Payment{Amount: 100, Currency: models.CurrencyStable, Payer: "alice"}, ErrPaymentMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Buy(h.ctx, tt.buyer, id, tt.shares, tt.payment)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	sale, err := h.engine.Sale(id)
	require.NoError(t, err)
	assert.Empty(t, sale.Orders)
}

func TestSingleOrderAboveCapacity(t *testing.T) {
	h := newHarness(t)
	id := h.listProperty(10, 100)

	order, err := h.engine.Buy(h.ctx, "alice", id, 150, pay("alice", 1500))
	require.NoError(t, err)
	assert.True(t, order.Oversubscribed)

	h.clock.Advance(saleWindow)
	_, err = h.engine.Conclude(h.ctx, id)
	require.NoError(t, err)

	claim, err := h.engine.Claim(h.ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), claim.SharesOwed)
	assert.Equal(t, uint64(50*10), claim.RefundOwed)
	assert.Equal(t, uint64(100), h.balance("alice", id))
	require.NoError(t, h.engine.CheckInvariants())
}

func TestPaymentReferenceIsSpentOnce(t *testing.T) {
	h := newHarness(t)
	id := h.listProperty(10, 100)
	p := pay("alice", 100)

	_, err := h.engine.Buy(h.ctx, "alice", id, 10, p)
	require.NoError(t, err)
	_, err = h.engine.Buy(h.ctx, "alice", id, 10, p)
	assert.ErrorIs(t, err, ErrPaymentMismatch)
}

func TestNativeCurrencyQuote(t *testing.T) {
	h := newHarness(t)
	id := h.listProperty(10, 100)

	q, err := h.engine.Quote(h.ctx, id, 3, models.CurrencyNative)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), q.UnitCost)
	assert.Equal(t, uint64(60), q.Cost)

	order, err := h.engine.Buy(h.ctx, "alice", id, 3, models.Payment{
		Amount: 60, Currency: models.CurrencyNative, Payer: "alice", Reference: "native-1",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), order.UnitCost)

	_, err = h.engine.Buy(h.ctx, "alice", id, 1, pay("alice", 10))
	assert.ErrorIs(t, err, ErrInvalidParams, "one buyer cannot mix currencies in a sale")
}

func TestSaleTimeGates(t *testing.T) {
	h := newHarness(t)
	id := h.listProperty(10, 100)
	h.buy("alice", id, 10)

	_, err := h.engine.Claim(h.ctx, "alice", id)
	assert.ErrorIs(t, err, ErrNotConcluded)
	_, err = h.engine.Conclude(h.ctx, id)
	assert.ErrorIs(t, err, ErrSaleActive)
	assert.Empty(t, h.engine.DueSales(h.clock.Now()))

	h.clock.Advance(saleWindow)
	_, err = h.engine.Buy(h.ctx, "bob", id, 1, pay("bob", 10))
	assert.ErrorIs(t, err, ErrSaleClosed)
	assert.Equal(t, []uuid.UUID{id}, h.engine.DueSales(h.clock.Now()))

	_, err = h.engine.Conclude(h.ctx, id)
	require.NoError(t, err)
	_, err = h.engine.Conclude(h.ctx, id)
	assert.ErrorIs(t, err, ErrNotSelling)
	assert.Empty(t, h.engine.DueSales(h.clock.Now()))
}

func TestClaimAllMintsAcrossProperties(t *testing.T) {
	h := newHarness(t)
	a := h.listProperty(10, 100)
	b := h.listProperty(20, 50)
	h.buy("alice", a, 10)
	h.buy("alice", b, 5)
	h.clock.Advance(saleWindow)
	_, err := h.engine.Conclude(h.ctx, a)
	require.NoError(t, err)
	_, err = h.engine.Conclude(h.ctx, b)
	require.NoError(t, err)
	assert.Len(t, h.engine.PendingClaimsOf("alice"), 2)

	claims, err := h.engine.ClaimAll(h.ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, claims, 2)
	assert.Equal(t, uint64(10), h.balance("alice", a))
	assert.Equal(t, uint64(5), h.balance("alice", b))

	_, err = h.engine.ClaimAll(h.ctx, "alice")
	assert.ErrorIs(t, err, ErrNothingToClaim)
	assert.Empty(t, h.engine.PendingClaimsOf("alice"))

	holdings := h.engine.HoldingsOf("alice")
	assert.Len(t, holdings, 2)
	require.NoError(t, h.engine.CheckInvariants())
}

func TestIdentityGate(t *testing.T) {
	verified := identityFunc(func(holder string) bool { return holder != "mallory" })
	h := newHarnessWith(t, DefaultOptions(), verified)
	id := h.listProperty(10, 100)

	_, err := h.engine.Buy(h.ctx, "mallory", id, 1, pay("mallory", 10))
	assert.ErrorIs(t, err, ErrIdentityNotVerified)
	assert.Equal(t, KindAuthorization, KindOf(err))
	h.buy("alice", id, 1)
}

func TestConcurrentOrdersKeepReservationsConsistent(t *testing.T) {
	h := newHarness(t)
	properties := []uuid.UUID{h.listProperty(1, 1000), h.listProperty(1, 1000)}
	buyers := []string{"alice", "bob", "carol"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, id := range properties {
			wg.Add(1)
			go func(buyer string, propertyID uuid.UUID) {
				defer wg.Done()
				_, err := h.engine.Buy(h.ctx, buyer, propertyID, 30, pay(buyer, 30))
				assert.NoError(t, err)
			}(buyers[i%len(buyers)], id)
		}
	}
	wg.Wait()

	for _, id := range properties {
		sale, err := h.engine.Sale(id)
		require.NoError(t, err)
		assert.Len(t, sale.Orders, 50)
		assert.Equal(t, uint64(1500), sale.TotalReserved)
		h.settle(id)

		holders, err := h.engine.Holders(id)
		require.NoError(t, err)
		var total uint64
		for _, hd := range holders {
			total += hd.Shares
		}
		assert.Equal(t, uint64(1000), total)
	}

	// bootstrap 2, per property: submit, approve, 50 orders, conclude, 3 x (claim + mint)
	assert.Equal(t, 2+2*59, h.journal.Len())
	require.NoError(t, h.engine.CheckInvariants())
}
