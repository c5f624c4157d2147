package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/models"
)

func TestReplayRebuildsIdenticalState(t *testing.T) {
	h := newHarness(t)
	sold := h.soldProperty(10, 100, map[string]uint64{"alice": 70, "bob": 50})
	selling := h.listProperty(20, 10)
	h.buy("carol", selling, 4)

	_, err := h.engine.DepositRent(h.ctx, testIssuer, sold, 1003, pay(testIssuer, 1003))
	require.NoError(t, err)
	_, err = h.engine.Withdraw(h.ctx, "alice", sold)
	require.NoError(t, err)
	listing, err := h.engine.List(h.ctx, "bob", sold, 10, 11)
	require.NoError(t, err)
	fill := pay("carol", 110)
	_, err = h.engine.BuyListing(h.ctx, "carol", listing.ID, fill)
	require.NoError(t, err)
	open, err := h.engine.List(h.ctx, "bob", sold, 5, 12)
	require.NoError(t, err)
	proposal, err := h.propose("alice", sold, 2*time.Hour, models.Payment{})
	require.NoError(t, err)
	_, err = h.engine.Vote(h.ctx, "carol", proposal.ID, true)
	require.NoError(t, err)
	_, err = h.engine.SetAPR(h.ctx, testAdmin, sold, 450)
	require.NoError(t, err)

	// small pages exercise the paging loop
	opts := DefaultOptions()
	opts.ReplayPageSize = 3
	rebuilt := New(h.journal, h.clock, nil, nil, opts, zap.NewNop())
	n, err := rebuilt.Replay(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, h.journal.Len(), n)
	assert.Equal(t, h.engine.LastSeq(), rebuilt.LastSeq())

	assert.Equal(t, h.engine.Settings(), rebuilt.Settings())
	assert.Equal(t, h.engine.Requests(""), rebuilt.Requests(""))
	assert.Equal(t, h.engine.Properties(""), rebuilt.Properties(""))

	for _, pid := range []uuid.UUID{sold, selling} {
		wantHolders, err := h.engine.Holders(pid)
		require.NoError(t, err)
		gotHolders, err := rebuilt.Holders(pid)
		require.NoError(t, err)
		assert.Equal(t, wantHolders, gotHolders)

		wantSale, err := h.engine.Sale(pid)
		require.NoError(t, err)
		gotSale, err := rebuilt.Sale(pid)
		require.NoError(t, err)
		assert.Equal(t, wantSale, gotSale)
	}

	wantPeriods, _ := h.engine.RentPeriods(sold)
	gotPeriods, _ := rebuilt.RentPeriods(sold)
	assert.Equal(t, wantPeriods, gotPeriods)
	wantClaimable, _ := h.engine.Claimable("bob", sold)
	gotClaimable, _ := rebuilt.Claimable("bob", sold)
	assert.Equal(t, wantClaimable, gotClaimable)

	wantProposal, _ := h.engine.Proposal(proposal.ID)
	gotProposal, err := rebuilt.Proposal(proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, wantProposal, gotProposal)

	gotListing, err := rebuilt.Listing(open.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusOpen, gotListing.Status)
	require.NoError(t, rebuilt.CheckInvariants())

	// consumed payment references survive the rebuild
	_, err = rebuilt.BuyListing(h.ctx, "dave", open.ID, models.Payment{
		Amount: 60, Currency: models.CurrencyStable, Payer: "dave", Reference: fill.Reference,
	})
	assert.ErrorIs(t, err, ErrPaymentMismatch)
}

func TestJournalFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 40})
	before := h.journal.Len()

	h.journal.fail.Store(true)
	listing, err := h.engine.List(h.ctx, "alice", id, 10, 10)
	assert.ErrorIs(t, err, errJournalDown)
	assert.Nil(t, listing)
	rent := pay(testIssuer, 500)
	_, err = h.engine.DepositRent(h.ctx, testIssuer, id, 500, rent)
	assert.ErrorIs(t, err, errJournalDown)
	_, err = h.engine.Withdraw(h.ctx, "alice", id)
	assert.ErrorIs(t, err, ErrNothingToClaim)
	h.journal.fail.Store(false)

	assert.Equal(t, before, h.journal.Len())
	open, err := h.engine.Listings(id, "")
	require.NoError(t, err)
	assert.Empty(t, open)
	periods, err := h.engine.RentPeriods(id)
	require.NoError(t, err)
	assert.Empty(t, periods)

	// the reference of the failed deposit was released, not consumed
	_, err = h.engine.DepositRent(h.ctx, testIssuer, id, 500, rent)
	require.NoError(t, err)
	require.NoError(t, h.engine.CheckInvariants())
}
