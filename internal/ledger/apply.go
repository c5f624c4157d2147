package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
)

func decode[T any](ev *models.LedgerEvent) (T, error) {
	var p T
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", ev.Type, err)
	}
	return p, nil
}

// apply projects one journaled event onto the state. Property-scoped events
// expect the caller to hold that property's lock; shared maps are guarded
// here by mu.
func (e *Engine) apply(ev *models.LedgerEvent) error {
	if err := e.dispatch(ev); err != nil {
		return err
	}
	e.mu.Lock()
	if ev.Seq > e.lastSeq {
		e.lastSeq = ev.Seq
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) dispatch(ev *models.LedgerEvent) error {
	switch ev.Type {
	case models.EventRequestSubmitted:
		p, err := decode[models.RequestSubmittedPayload](ev)
		if err != nil {
			return err
		}
		return e.applyRequestSubmitted(p)
	case models.EventRequestStatus:
		p, err := decode[models.RequestStatusPayload](ev)
		if err != nil {
			return err
		}
		return e.applyRequestStatus(p)
	case models.EventTransferBatch:
		p, err := decode[models.TransferBatchPayload](ev)
		if err != nil {
			return err
		}
		return e.applyTransferBatch(p)
	case models.EventFeesChanged:
		p, err := decode[models.FeesChangedPayload](ev)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.settings.ProposalFeePerDay = p.ProposalFeePerDay
		e.mu.Unlock()
		return nil
	case models.EventRegistrationFeesChanged:
		p, err := decode[models.RegistrationFeesChangedPayload](ev)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.settings.RegistrationFee = p.RegistrationFee
		e.mu.Unlock()
		return nil
	case models.EventPausedStatus:
		p, err := decode[models.PausedStatusPayload](ev)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.settings.Paused = p.Paused
		e.mu.Unlock()
		return nil
	case models.EventOwnershipTransferred:
		p, err := decode[models.OwnershipTransferredPayload](ev)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.settings.Owner = p.To
		e.mu.Unlock()
		return nil
	case models.EventRoleChanged:
		p, err := decode[models.RoleChangedPayload](ev)
		if err != nil {
			return err
		}
		e.applyRoleChanged(p)
		return nil
	}

	if ev.PropertyID == nil {
		return fmt.Errorf("%s event without property", ev.Type)
	}
	ps, err := e.lookup(*ev.PropertyID)
	if err != nil {
		return err
	}

	switch ev.Type {
	case models.EventOrderPlaced:
		p, err := decode[models.OrderPlacedPayload](ev)
		if err != nil {
			return err
		}
		return e.applyOrderPlaced(ps, p)
	case models.EventSaleConcluded:
		p, err := decode[models.SaleConcludedPayload](ev)
		if err != nil {
			return err
		}
		return applySaleConcluded(ps, p)
	case models.EventPropertyReset:
		p, err := decode[models.PropertyResetPayload](ev)
		if err != nil {
			return err
		}
		applyPropertyReset(ps, p)
		return nil
	case models.EventPropertyDelisted:
		ps.property.Status = models.PropertyStatusDelisted
		return nil
	case models.EventSaleClaimed:
		p, err := decode[models.SaleClaimedPayload](ev)
		if err != nil {
			return err
		}
		if _, ok := ps.claims[p.Holder]; !ok {
			return fmt.Errorf("no pending claim for %s", p.Holder)
		}
		delete(ps.claims, p.Holder)
		return nil
	case models.EventTransferSingle:
		p, err := decode[models.TransferSinglePayload](ev)
		if err != nil {
			return err
		}
		return ps.move(p.From, p.To, p.Amount)
	case models.EventListingCreated:
		p, err := decode[models.ListingCreatedPayload](ev)
		if err != nil {
			return err
		}
		e.applyListingCreated(ps, p)
		return nil
	case models.EventListingFilled:
		p, err := decode[models.ListingFilledPayload](ev)
		if err != nil {
			return err
		}
		l, err := ps.closeListing(p.ListingID, models.ListingStatusFilled)
		if err != nil {
			return err
		}
		l.Buyer = p.Buyer
		l.ClosedAt = timeRef(p.FilledAt)
		e.consumeReference(p.Payment)
		return nil
	case models.EventListingCancelled:
		p, err := decode[models.ListingCancelledPayload](ev)
		if err != nil {
			return err
		}
		l, err := ps.closeListing(p.ListingID, models.ListingStatusCancelled)
		if err != nil {
			return err
		}
		l.ClosedAt = timeRef(p.CancelledAt)
		return nil
	case models.EventRentStatus:
		p, err := decode[models.RentStatusPayload](ev)
		if err != nil {
			return err
		}
		period := p.Period
		ps.periods = append(ps.periods, &period)
		e.consumeReference(p.Payment)
		return nil
	case models.EventRentWithdrawn:
		p, err := decode[models.RentWithdrawnPayload](ev)
		if err != nil {
			return err
		}
		ps.rentClaimed[p.Holder] += p.Amount
		if ps.rentClaimed[p.Holder] != p.CumulativeClaimed {
			return fmt.Errorf("rent claimed by %s is %d, event says %d", p.Holder, ps.rentClaimed[p.Holder], p.CumulativeClaimed)
		}
		return nil
	case models.EventProposalStatus:
		p, err := decode[models.ProposalStatusPayload](ev)
		if err != nil {
			return err
		}
		e.applyProposalStatus(ps, p)
		return nil
	case models.EventVoted:
		p, err := decode[models.VotedPayload](ev)
		if err != nil {
			return err
		}
		return applyVoted(ps, p)
	case models.EventAPRChanged:
		p, err := decode[models.APRChangedPayload](ev)
		if err != nil {
			return err
		}
		ps.property.APRBps = p.APRBps
		return nil
	}
	return fmt.Errorf("unknown event type %q", ev.Type)
}

// consumeReference records a payment reference as spent.
func (e *Engine) consumeReference(p models.Payment) {
	if p.Reference == "" {
		return
	}
	e.mu.Lock()
	e.paymentRefs[p.Reference] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) applyRequestSubmitted(p models.RequestSubmittedPayload) error {
	req := p.Request
	e.mu.Lock()
	if _, exists := e.requests[req.ID]; exists {
		e.mu.Unlock()
		return fmt.Errorf("request %s already exists", req.ID)
	}
	e.requests[req.ID] = &req
	e.requestOrder = append(e.requestOrder, req.ID)
	e.settings.FeesCollected += req.FeePaid
	e.mu.Unlock()
	e.consumeReference(p.Payment)
	return nil
}

func (e *Engine) applyRequestStatus(p models.RequestStatusPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	req, ok := e.requests[p.RequestID]
	if !ok {
		return fmt.Errorf("request %s not found", p.RequestID)
	}
	req.Status = p.Status
	req.Resolver = p.Resolver
	req.ResolvedAt = timeRef(p.ResolvedAt)
	if p.Property != nil {
		prop := *p.Property
		req.PropertyID = idRef(prop.ID)
		e.properties[prop.ID] = newPropertyState(prop)
		e.propertyOrder = append(e.propertyOrder, prop.ID)
	}
	return nil
}

func (e *Engine) applyOrderPlaced(ps *propertyState, p models.OrderPlacedPayload) error {
	order := p.Order
	reserved, ok := add(ps.reserved, order.Shares)
	if !ok {
		return errors.New("reserved shares overflow")
	}
	ps.orders = append(ps.orders, &order)
	ps.reserved = reserved
	e.consumeReference(order.Payment)
	return nil
}

func applySaleConcluded(ps *propertyState, p models.SaleConcludedPayload) error {
	byID := make(map[uuid.UUID]*models.Order, len(ps.orders))
	for _, o := range ps.orders {
		byID[o.ID] = o
	}
	for _, a := range p.Allocations {
		o, ok := byID[a.OrderID]
		if !ok {
			return fmt.Errorf("allocation for unknown order %s", a.OrderID)
		}
		o.Honored = a.Honored
		o.Refund = a.Refund
	}
	ps.claims = make(map[string]*models.PendingClaim, len(p.Claims))
	for _, c := range p.Claims {
		claim := c
		ps.claims[c.Holder] = &claim
	}
	ps.property.Status = models.PropertyStatusConcluded
	return nil
}

func applyPropertyReset(ps *propertyState, p models.PropertyResetPayload) {
	for _, o := range ps.orders {
		o.Honored = 0
		o.Refund = o.Payment.Amount
	}
	ps.claims = make(map[string]*models.PendingClaim, len(p.Claims))
	for _, c := range p.Claims {
		claim := c
		ps.claims[c.Holder] = &claim
	}
}

// applyTransferBatch expects the caller to hold every listed property's lock.
func (e *Engine) applyTransferBatch(p models.TransferBatchPayload) error {
	if len(p.PropertyIDs) != len(p.Amounts) {
		return errors.New("transfer batch ids and amounts differ in length")
	}
	for i, id := range p.PropertyIDs {
		ps, err := e.lookup(id)
		if err != nil {
			return err
		}
		if err := ps.move(p.From, p.To, p.Amounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyListingCreated(ps *propertyState, p models.ListingCreatedPayload) {
	l := p.Listing
	ps.listings[l.ID] = &l
	ps.listingOrder = append(ps.listingOrder, l.ID)
	ps.listed[l.Seller] += l.Shares

	e.mu.Lock()
	e.listingIndex[l.ID] = l.PropertyID
	e.mu.Unlock()
}

func (e *Engine) applyProposalStatus(ps *propertyState, p models.ProposalStatusPayload) {
	if st, ok := ps.proposals[p.Proposal.ID]; ok {
		st.proposal.Status = p.Proposal.Status
		st.proposal.FinalizedAt = p.Proposal.FinalizedAt
		return
	}
	st := &proposalState{
		proposal: p.Proposal,
		votes:    make(map[string]models.Vote),
		snapshot: p.Snapshot,
	}
	ps.proposals[p.Proposal.ID] = st
	ps.proposalOrder = append(ps.proposalOrder, p.Proposal.ID)

	e.mu.Lock()
	e.proposalIndex[p.Proposal.ID] = p.Proposal.PropertyID
	e.settings.FeesCollected += p.Proposal.FeePaid
	e.mu.Unlock()
	if p.Payment != nil {
		e.consumeReference(*p.Payment)
	}
}

func applyVoted(ps *propertyState, p models.VotedPayload) error {
	st, ok := ps.proposals[p.Vote.ProposalID]
	if !ok {
		return fmt.Errorf("vote on unknown proposal %s", p.Vote.ProposalID)
	}
	if _, voted := st.votes[p.Vote.Holder]; voted {
		return fmt.Errorf("%s already voted on %s", p.Vote.Holder, p.Vote.ProposalID)
	}
	st.votes[p.Vote.Holder] = p.Vote
	if p.Vote.InFavor {
		st.proposal.VotesFor += p.Vote.Weight
	} else {
		st.proposal.VotesAgainst += p.Vote.Weight
	}
	st.proposal.Voters++
	return nil
}

func (e *Engine) applyRoleChanged(p models.RoleChangedPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	roles := e.settings.Roles[p.Holder]
	kept := roles[:0]
	for _, r := range roles {
		if r != p.Role {
			kept = append(kept, r)
		}
	}
	if p.Granted {
		kept = append(kept, p.Role)
	}
	if len(kept) == 0 {
		delete(e.settings.Roles, p.Holder)
		return
	}
	e.settings.Roles[p.Holder] = kept
}

// move transfers shares between holders; an empty from mints against
// the property's capacity.
func (ps *propertyState) move(from, to string, amount uint64) error {
	if from == "" {
		issued, ok := add(ps.issued, amount)
		if !ok || issued > ps.property.TotalShares {
			return fmt.Errorf("mint of %d exceeds capacity %d (issued %d)", amount, ps.property.TotalShares, ps.issued)
		}
		ps.issued = issued
	} else {
		if ps.balances[from] < amount {
			return fmt.Errorf("%s holds %d, cannot move %d", from, ps.balances[from], amount)
		}
		ps.balances[from] -= amount
		if ps.balances[from] == 0 {
			delete(ps.balances, from)
		}
	}
	if amount > 0 {
		ps.balances[to] += amount
	}
	return nil
}

func (ps *propertyState) closeListing(id uuid.UUID, status string) (*models.Listing, error) {
	l, ok := ps.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s not found", id)
	}
	if !models.IsValidListingTransition(l.Status, status) {
		return nil, fmt.Errorf("listing %s cannot move from %s to %s", id, l.Status, status)
	}
	l.Status = status
	ps.listed[l.Seller] -= l.Shares
	if ps.listed[l.Seller] == 0 {
		delete(ps.listed, l.Seller)
	}
	return l, nil
}
