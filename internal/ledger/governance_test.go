package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/property-shares/backend/internal/models"
)

func (h *harness) propose(proposer string, propertyID uuid.UUID, duration time.Duration, payment models.Payment) (*models.Proposal, error) {
	return h.engine.CreateProposal(h.ctx, CreateProposalInput{
		Proposer:   proposer,
		PropertyID: propertyID,
		Title:      "Replace the roof",
		Duration:   duration,
		Payment:    payment,
	})
}

func TestSecondVoteIsRejected(t *testing.T) {
	h := newHarness(t)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 60, "bob": 40})

	proposal, err := h.propose("alice", id, 48*time.Hour, models.Payment{})
	require.NoError(t, err)

	_, err = h.engine.Vote(h.ctx, "bob", proposal.ID, false)
	require.NoError(t, err)
	_, err = h.engine.Vote(h.ctx, "bob", proposal.ID, true)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	got, err := h.engine.Proposal(proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.VotesFor)
	assert.Equal(t, uint64(40), got.VotesAgainst)
	assert.Equal(t, 1, got.Voters)
}

func TestProposalLifecycle(t *testing.T) {
	h := newHarness(t)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 60, "bob": 40})

	proposal, err := h.propose("bob", id, 24*time.Hour, models.Payment{})
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusOpen, proposal.Status)

	_, err = h.engine.Vote(h.ctx, "carol", proposal.ID, true)
	assert.ErrorIs(t, err, ErrNoStake)

	vote, err := h.engine.Vote(h.ctx, "alice", proposal.ID, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), vote.Weight)
	_, err = h.engine.Vote(h.ctx, "bob", proposal.ID, false)
	require.NoError(t, err)

	_, err = h.engine.Finalize(h.ctx, proposal.ID)
	assert.ErrorIs(t, err, ErrVotingActive)

	h.clock.Advance(24 * time.Hour)
	assert.Len(t, h.engine.DueProposals(h.clock.Now()), 1)
	_, err = h.engine.Vote(h.ctx, "alice", proposal.ID, false)
	assert.ErrorIs(t, err, ErrVotingClosed)

	final, err := h.engine.Finalize(h.ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusPassed, final.Status)
	assert.NotNil(t, final.FinalizedAt)

	_, err = h.engine.Finalize(h.ctx, proposal.ID)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.Empty(t, h.engine.DueProposals(h.clock.Now()))

	v, err := h.engine.VoteOf("bob", proposal.ID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.False(t, v.InFavor)
	require.NoError(t, h.engine.CheckInvariants())
}

func TestTiedVoteFails(t *testing.T) {
	h := newHarness(t)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 50, "bob": 50})
	proposal, err := h.propose("alice", id, time.Hour, models.Payment{})
	require.NoError(t, err)
	_, err = h.engine.Vote(h.ctx, "alice", proposal.ID, true)
	require.NoError(t, err)
	_, err = h.engine.Vote(h.ctx, "bob", proposal.ID, false)
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	final, err := h.engine.Finalize(h.ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusFailed, final.Status)
}

func TestCreateProposalRejections(t *testing.T) {
	h := newHarness(t)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 100})
	_, err := h.engine.SetProposalFee(h.ctx, testAdmin, 5)
	require.NoError(t, err)

	_, err = h.propose("carol", id, 24*time.Hour, pay("carol", 5))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = h.propose("alice", id, time.Minute, pay("alice", 5))
	assert.ErrorIs(t, err, ErrInvalidParams)

	// no payment at all while a fee is due
	_, err = h.propose("alice", id, 24*time.Hour, models.Payment{})
	assert.ErrorIs(t, err, ErrInsufficientFee)

	_, err = h.propose("alice", id, 24*time.Hour, pay("bob", 5))
	assert.ErrorIs(t, err, ErrPaymentMismatch)

	// 25h spans two fee days
	assert.Equal(t, uint64(10), h.engine.ProposalFee(25*time.Hour))
	_, err = h.propose("alice", id, 25*time.Hour, pay("alice", 5))
	assert.ErrorIs(t, err, ErrInsufficientFee)
	assert.Equal(t, KindValidation, KindOf(err))

	proposal, err := h.propose("alice", id, 25*time.Hour, pay("alice", 10))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), proposal.FeePaid)
	assert.Equal(t, uint64(10), h.engine.Settings().FeesCollected)
}

func TestCreationSnapshotWeights(t *testing.T) {
	opts := DefaultOptions()
	opts.WeightPolicy = models.WeightAtCreation
	h := newHarnessWith(t, opts, nil)
	id := h.soldProperty(10, 100, map[string]uint64{"alice": 60, "bob": 40})

	proposal, err := h.propose("alice", id, 24*time.Hour, models.Payment{})
	require.NoError(t, err)

	// bob's shares move to carol after the snapshot
	listing, err := h.engine.List(h.ctx, "bob", id, 40, 10)
	require.NoError(t, err)
	_, err = h.engine.BuyListing(h.ctx, "carol", listing.ID, pay("carol", 400))
	require.NoError(t, err)

	_, err = h.engine.Vote(h.ctx, "carol", proposal.ID, true)
	assert.ErrorIs(t, err, ErrNoStake)
	vote, err := h.engine.Vote(h.ctx, "bob", proposal.ID, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), vote.Weight)
}
