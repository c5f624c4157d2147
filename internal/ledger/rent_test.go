package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentIsPaidProRataFromCheckpoint(t *testing.T) {
	h := newHarness(t)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 30, "bob": 70})

	period, err := h.engine.DepositRent(h.ctx, testIssuer, id, 1000, pay(testIssuer, 1000))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), period.PerShareRate)
	assert.Equal(t, uint64(0), period.Dust)
	assert.Equal(t, map[string]uint64{"alice": 30, "bob": 70}, period.Checkpoint)

	claimable, err := h.engine.Claimable("alice", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), claimable)

	paid, err := h.engine.Withdraw(h.ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), paid)

	_, err = h.engine.Withdraw(h.ctx, "alice", id)
	assert.ErrorIs(t, err, ErrNothingToClaim)
	require.NoError(t, h.engine.CheckInvariants())
}

func TestRentFollowsBalanceAtDeposit(t *testing.T) {
	h := newHarness(t)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 30, "bob": 70})

	_, err := h.engine.DepositRent(h.ctx, testIssuer, id, 1000, pay(testIssuer, 1000))
	require.NoError(t, err)

	// alice sells everything before the second deposit
	listing, err := h.engine.List(h.ctx, "alice", id, 30, 12)
	require.NoError(t, err)
	_, err = h.engine.BuyListing(h.ctx, "carol", listing.ID, pay("carol", 360))
	require.NoError(t, err)

	_, err = h.engine.DepositRent(h.ctx, testAdmin, id, 2005, pay(testAdmin, 2005))
	require.NoError(t, err)

	tests := []struct {
		holder string
		want   uint64
	}{
		{"alice", 300},
		{"bob", 700 + 1400},
		{"carol", 600},
		{"dave", 0},
	}
	for _, tt := range tests {
		t.Run(tt.holder, func(t *testing.T) {
			got, err := h.engine.Claimable(tt.holder, id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	summary, err := h.engine.RentSummary(id)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Periods)
	assert.Equal(t, uint64(3005), summary.TotalDeposited)
	assert.Equal(t, uint64(5), summary.TotalDust)
	require.NoError(t, h.engine.CheckInvariants())
}

func TestRentOnPartiallySoldProperty(t *testing.T) {
	h := newHarness(t)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 40})

	period, err := h.engine.DepositRent(h.ctx, testIssuer, id, 1000, pay(testIssuer, 1000))
	require.NoError(t, err)
	assert.Equal(t, uint64(600), period.Unallocated, "rent on unsold shares is not claimable")

	got, err := h.engine.Claimable("alice", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), got)
}

func TestDepositRentRejections(t *testing.T) {
	h := newHarness(t)
	selling := h.listProperty(10, 100)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 10})

	_, err := h.engine.DepositRent(h.ctx, testIssuer, id, 0, pay(testIssuer, 0))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = h.engine.DepositRent(h.ctx, "alice", id, 100, pay("alice", 100))
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = h.engine.DepositRent(h.ctx, testIssuer, id, 100, pay(testIssuer, 90))
	assert.ErrorIs(t, err, ErrPaymentMismatch)

	_, err = h.engine.DepositRent(h.ctx, testIssuer, selling, 100, pay(testIssuer, 100))
	assert.ErrorIs(t, err, ErrNotConcluded)

	periods, err := h.engine.RentPeriods(id)
	require.NoError(t, err)
	assert.Empty(t, periods)
}
