package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/rbac"
)

const maxAPRBps = 10000

// Settings returns a copy of the ledger-wide settings.
func (e *Engine) Settings() models.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.Clone()
}

// Bootstrap installs the first owner and admins of an empty ledger. It does
// nothing once an owner exists.
func (e *Engine) Bootstrap(ctx context.Context, owner string, admins []string) error {
	if owner == "" {
		return fail(ErrInvalidParams, "owner is required")
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	if e.Settings().Owner != "" {
		return nil
	}
	b := e.newBatch()
	b.add(models.EventOwnershipTransferred, nil, owner, 0, models.OwnershipTransferredPayload{To: owner})
	seen := map[string]bool{owner: true}
	for _, a := range admins {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		b.add(models.EventRoleChanged, nil, a, 0, models.RoleChangedPayload{
			Holder:  a,
			Role:    rbac.RoleAdmin,
			Granted: true,
			Actor:   owner,
		})
	}
	_, err := e.commit(ctx, b)
	return err
}

func (e *Engine) SetPaused(ctx context.Context, actor string, paused bool) (models.Settings, error) {
	if err := e.authorize(actor, rbac.PermPause); err != nil {
		return models.Settings{}, err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	if e.Settings().Paused != paused {
		b := e.newBatch()
		b.add(models.EventPausedStatus, nil, actor, 0, models.PausedStatusPayload{Paused: paused, Actor: actor})
		if _, err := e.commit(ctx, b); err != nil {
			return models.Settings{}, err
		}
	}
	return e.Settings(), nil
}

func (e *Engine) SetProposalFee(ctx context.Context, actor string, perDay uint64) (models.Settings, error) {
	if err := e.authorize(actor, rbac.PermSetFees); err != nil {
		return models.Settings{}, err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	if e.Settings().ProposalFeePerDay != perDay {
		b := e.newBatch()
		b.add(models.EventFeesChanged, nil, actor, perDay, models.FeesChangedPayload{ProposalFeePerDay: perDay, Actor: actor})
		if _, err := e.commit(ctx, b); err != nil {
			return models.Settings{}, err
		}
	}
	return e.Settings(), nil
}

func (e *Engine) SetRegistrationFee(ctx context.Context, actor string, fee uint64) (models.Settings, error) {
	if err := e.authorize(actor, rbac.PermSetFees); err != nil {
		return models.Settings{}, err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	if e.Settings().RegistrationFee != fee {
		b := e.newBatch()
		b.add(models.EventRegistrationFeesChanged, nil, actor, fee, models.RegistrationFeesChangedPayload{RegistrationFee: fee, Actor: actor})
		if _, err := e.commit(ctx, b); err != nil {
			return models.Settings{}, err
		}
	}
	return e.Settings(), nil
}

func (e *Engine) TransferOwnership(ctx context.Context, actor, newOwner string) (models.Settings, error) {
	if newOwner == "" {
		return models.Settings{}, fail(ErrInvalidParams, "new owner is required")
	}
	if err := e.authorize(actor, rbac.PermTransferOwnership); err != nil {
		return models.Settings{}, err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	current := e.Settings().Owner
	if current != actor {
		return models.Settings{}, fail(ErrNotOwner, "%s is not the ledger owner", actor)
	}
	if current != newOwner {
		b := e.newBatch()
		b.add(models.EventOwnershipTransferred, nil, newOwner, 0, models.OwnershipTransferredPayload{From: current, To: newOwner})
		if _, err := e.commit(ctx, b); err != nil {
			return models.Settings{}, err
		}
	}
	return e.Settings(), nil
}

func (e *Engine) GrantRole(ctx context.Context, actor, holder, role string) (models.Settings, error) {
	return e.changeRole(ctx, actor, holder, role, true)
}

func (e *Engine) RevokeRole(ctx context.Context, actor, holder, role string) (models.Settings, error) {
	return e.changeRole(ctx, actor, holder, role, false)
}

func (e *Engine) changeRole(ctx context.Context, actor, holder, role string, grant bool) (models.Settings, error) {
	if holder == "" || !rbac.IsGrantable(role) {
		return models.Settings{}, fail(ErrInvalidParams, "cannot change role %q of %q", role, holder)
	}
	if err := e.authorize(actor, rbac.PermManageRoles); err != nil {
		return models.Settings{}, err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	if e.Settings().HasRole(holder, role) != grant {
		b := e.newBatch()
		b.add(models.EventRoleChanged, nil, holder, 0, models.RoleChangedPayload{
			Holder:  holder,
			Role:    role,
			Granted: grant,
			Actor:   actor,
		})
		if _, err := e.commit(ctx, b); err != nil {
			return models.Settings{}, err
		}
	}
	return e.Settings(), nil
}

// SetAPR updates the advertised annual yield of a property, in basis points.
func (e *Engine) SetAPR(ctx context.Context, actor string, propertyID uuid.UUID, bps uint32) (*models.Property, error) {
	if bps > maxAPRBps {
		return nil, fail(ErrInvalidParams, "apr of %d bps exceeds %d", bps, maxAPRBps)
	}
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if actor == "" || (actor != ps.property.Owner && !e.Can(actor, rbac.PermSetAPR)) {
		return nil, fail(ErrNotOwner, "%s may not set the apr of %s", actor, propertyID)
	}
	if ps.property.Status == models.PropertyStatusDelisted {
		return nil, fail(ErrPropertyDelisted, "property %s is delisted", propertyID)
	}
	if ps.property.APRBps != bps {
		b := e.newBatch()
		b.add(models.EventAPRChanged, idRef(propertyID), actor, uint64(bps), models.APRChangedPayload{
			PropertyID: propertyID,
			APRBps:     bps,
			Actor:      actor,
		})
		if _, err := e.commit(ctx, b); err != nil {
			return nil, err
		}
	}
	out := ps.property
	return &out, nil
}

// Delist retires a property. An unsettled sale is reset first so every buyer
// can claim a full refund; open listings and proposals are cancelled.
func (e *Engine) Delist(ctx context.Context, actor string, propertyID uuid.UUID) (*models.Property, error) {
	if err := e.authorize(actor, rbac.PermDelist); err != nil {
		return nil, err
	}
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !models.IsValidPropertyTransition(ps.property.Status, models.PropertyStatusDelisted) {
		return nil, fail(ErrPropertyDelisted, "property %s is already delisted", propertyID)
	}

	b := e.newBatch()
	if ps.property.Status == models.PropertyStatusSelling && len(ps.orders) > 0 {
		claims := make([]models.PendingClaim, 0, len(ps.orders))
		index := make(map[string]int)
		for _, o := range ps.orders {
			k, ok := index[o.Buyer]
			if !ok {
				index[o.Buyer] = len(claims)
				claims = append(claims, models.PendingClaim{
					PropertyID: propertyID,
					Holder:     o.Buyer,
					Currency:   o.Payment.Currency,
				})
				k = len(claims) - 1
			}
			claims[k].RefundOwed += o.Payment.Amount
		}
		b.add(models.EventPropertyReset, idRef(propertyID), "", ps.reserved, models.PropertyResetPayload{
			PropertyID: propertyID,
			Claims:     claims,
		})
	}
	for _, id := range ps.listingOrder {
		if l := ps.listings[id]; l.Status == models.ListingStatusOpen {
			stageCancel(b, ps, l, actor)
		}
	}
	for _, id := range ps.proposalOrder {
		st := ps.proposals[id]
		if st.proposal.Status != models.ProposalStatusOpen {
			continue
		}
		cancelled := st.proposal
		cancelled.Status = models.ProposalStatusCancelled
		cancelled.FinalizedAt = timeRef(b.at)
		b.add(models.EventProposalStatus, idRef(propertyID), actor, 0, models.ProposalStatusPayload{Proposal: cancelled})
	}
	b.add(models.EventPropertyDelisted, idRef(propertyID), actor, 0, models.PropertyDelistedPayload{
		PropertyID: propertyID,
		Actor:      actor,
	})
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	out := ps.property
	return &out, nil
}
