package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
)

const feeDay = 24 * time.Hour

type CreateProposalInput struct {
	Proposer    string
	PropertyID  uuid.UUID
	Title       string
	Description string
	Duration    time.Duration
	Payment     models.Payment
}

// ProposalFee is the fee due for a voting window of duration.
func (e *Engine) ProposalFee(duration time.Duration) uint64 {
	perDay := e.Settings().ProposalFeePerDay
	if duration <= 0 || perDay == 0 {
		return 0
	}
	days := ceilDiv(uint64(duration), uint64(feeDay))
	fee, ok := mul(perDay, days)
	if !ok {
		return ^uint64(0)
	}
	return fee
}

// CreateProposal opens a vote scoped to a property. Only holders may propose.
func (e *Engine) CreateProposal(ctx context.Context, in CreateProposalInput) (*models.Proposal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fail(ErrInvalidParams, "title is required")
	}
	if in.Duration < e.opts.MinProposalDuration || in.Duration > e.opts.MaxProposalDuration {
		return nil, fail(ErrInvalidParams, "duration %s outside [%s, %s]", in.Duration, e.opts.MinProposalDuration, e.opts.MaxProposalDuration)
	}
	ps, err := e.lookup(in.PropertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	if ps.property.Status == models.PropertyStatusDelisted {
		return nil, fail(ErrPropertyDelisted, "property %s is delisted", in.PropertyID)
	}
	if ps.balances[in.Proposer] == 0 {
		return nil, fail(ErrUnauthorized, "%s holds no shares of %s", in.Proposer, in.PropertyID)
	}
	fee := e.ProposalFee(in.Duration)
	if in.Payment.Amount < fee {
		return nil, fail(ErrInsufficientFee, "fee of %d paid, %d due", in.Payment.Amount, fee)
	}
	if in.Payment.Amount > 0 {
		if in.Payment.Currency != models.CurrencyStable || in.Payment.Payer != in.Proposer {
			return nil, fail(ErrPaymentMismatch, "proposal fee must be paid in %s by the proposer", models.CurrencyStable)
		}
	}
	release, err := e.reserveReference(in.Payment)
	if err != nil {
		return nil, err
	}
	defer release()

	b := e.newBatch()
	proposal := models.Proposal{
		ID:           uuid.New(),
		PropertyID:   in.PropertyID,
		Proposer:     in.Proposer,
		Title:        title,
		Description:  in.Description,
		FeePaid:      in.Payment.Amount,
		WeightPolicy: e.opts.WeightPolicy,
		Status:       models.ProposalStatusOpen,
		CreatedAt:    b.at,
		EndTime:      b.at.Add(in.Duration),
	}
	payload := models.ProposalStatusPayload{Proposal: proposal}
	if in.Payment.Amount > 0 {
		payment := in.Payment
		payload.Payment = &payment
	}
	if proposal.WeightPolicy == models.WeightAtCreation {
		payload.Snapshot = make(map[string]uint64, len(ps.balances))
		for holder, shares := range ps.balances {
			payload.Snapshot[holder] = shares
		}
	}
	b.add(models.EventProposalStatus, idRef(in.PropertyID), in.Proposer, in.Payment.Amount, payload)
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// Vote records holder's single vote, weighted by shares.
func (e *Engine) Vote(ctx context.Context, holder string, proposalID uuid.UUID, inFavor bool) (*models.Vote, error) {
	if holder == "" {
		return nil, fail(ErrInvalidParams, "holder is required")
	}
	if err := e.requireVerified(ctx, holder); err != nil {
		return nil, err
	}
	ps, err := e.proposalProperty(proposalID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	st := ps.proposals[proposalID]
	now := e.clock.Now()
	if st.proposal.Status != models.ProposalStatusOpen || !now.Before(st.proposal.EndTime) {
		return nil, fail(ErrVotingClosed, "voting on %s is closed", proposalID)
	}
	if _, voted := st.votes[holder]; voted {
		return nil, fail(ErrAlreadyVoted, "%s already voted on %s", holder, proposalID)
	}
	weight := ps.balances[holder]
	if st.proposal.WeightPolicy == models.WeightAtCreation {
		weight = st.snapshot[holder]
	}
	if weight == 0 {
		return nil, fail(ErrNoStake, "%s has no voting weight on %s", holder, proposalID)
	}

	b := e.newBatch()
	vote := models.Vote{
		ProposalID: proposalID,
		Holder:     holder,
		InFavor:    inFavor,
		Weight:     weight,
		CastAt:     b.at,
	}
	b.add(models.EventVoted, idRef(ps.property.ID), holder, weight, models.VotedPayload{Vote: vote})
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return &vote, nil
}

// Finalize closes a proposal after its end time. It passes on a strict
// majority of weight.
func (e *Engine) Finalize(ctx context.Context, proposalID uuid.UUID) (*models.Proposal, error) {
	ps, err := e.proposalProperty(proposalID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	st := ps.proposals[proposalID]
	if st.proposal.Status != models.ProposalStatusOpen {
		return nil, fail(ErrAlreadyFinalized, "proposal %s is %s", proposalID, st.proposal.Status)
	}
	now := e.clock.Now()
	if now.Before(st.proposal.EndTime) {
		return nil, fail(ErrVotingActive, "voting on %s runs until %s", proposalID, st.proposal.EndTime.Format(time.RFC3339))
	}

	b := e.newBatch()
	final := st.proposal
	final.Status = models.ProposalStatusFailed
	if final.VotesFor > final.VotesAgainst {
		final.Status = models.ProposalStatusPassed
	}
	final.FinalizedAt = timeRef(b.at)
	b.add(models.EventProposalStatus, idRef(ps.property.ID), "", 0, models.ProposalStatusPayload{Proposal: final})
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return &final, nil
}

func (e *Engine) proposalProperty(proposalID uuid.UUID) (*propertyState, error) {
	e.mu.RLock()
	propertyID, ok := e.proposalIndex[proposalID]
	e.mu.RUnlock()
	if !ok {
		return nil, fail(ErrProposalNotFound, "proposal %s", proposalID)
	}
	return e.lookup(propertyID)
}

func (e *Engine) Proposal(proposalID uuid.UUID) (*models.Proposal, error) {
	ps, err := e.proposalProperty(proposalID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := ps.proposals[proposalID].proposal
	return &out, nil
}

// Proposals returns a property's proposals in creation order, optionally
// filtered by status.
func (e *Engine) Proposals(propertyID uuid.UUID, status string) ([]models.Proposal, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]models.Proposal, 0, len(ps.proposalOrder))
	for _, id := range ps.proposalOrder {
		p := ps.proposals[id].proposal
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// VoteOf returns holder's vote on a proposal, or nil if none was cast.
func (e *Engine) VoteOf(holder string, proposalID uuid.UUID) (*models.Vote, error) {
	ps, err := e.proposalProperty(proposalID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	v, ok := ps.proposals[proposalID].votes[holder]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// DueProposals lists open proposals whose end time has passed at now.
func (e *Engine) DueProposals(now time.Time) []uuid.UUID {
	var out []uuid.UUID
	for _, ps := range e.snapshotProperties() {
		ps.mu.RLock()
		for _, id := range ps.proposalOrder {
			p := ps.proposals[id].proposal
			if p.Status == models.ProposalStatusOpen && !now.Before(p.EndTime) {
				out = append(out, id)
			}
		}
		ps.mu.RUnlock()
	}
	return out
}
