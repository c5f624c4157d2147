package ledger

import (
	"sort"

	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
)

// BalanceOf returns holder's shares of a property.
func (e *Engine) BalanceOf(holder string, propertyID uuid.UUID) (uint64, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return 0, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.balances[holder], nil
}

// Holders returns every non-zero position of a property, largest first.
func (e *Engine) Holders(propertyID uuid.UUID) ([]models.Holding, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make([]models.Holding, 0, len(ps.balances))
	for holder, shares := range ps.balances {
		out = append(out, models.Holding{
			PropertyID: propertyID,
			Holder:     holder,
			Shares:     shares,
			Listed:     ps.listed[holder],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Shares != out[j].Shares {
			return out[i].Shares > out[j].Shares
		}
		return out[i].Holder < out[j].Holder
	})
	return out, nil
}

// HoldingsOf returns holder's positions across all properties.
func (e *Engine) HoldingsOf(holder string) []models.Holding {
	var out []models.Holding
	for _, ps := range e.snapshotProperties() {
		ps.mu.RLock()
		if shares := ps.balances[holder]; shares > 0 {
			out = append(out, models.Holding{
				PropertyID: ps.property.ID,
				Holder:     holder,
				Shares:     shares,
				Listed:     ps.listed[holder],
			})
		}
		ps.mu.RUnlock()
	}
	return out
}

// available is the part of holder's balance not reserved by open listings.
func (ps *propertyState) available(holder string) uint64 {
	return ps.balances[holder] - ps.listed[holder]
}

// stageTransfer validates a holder-to-holder movement and stages its record.
func (ps *propertyState) stageTransfer(b *batch, operator, from, to string, amount uint64) error {
	if from == "" || to == "" || from == to {
		return fail(ErrInvalidParams, "transfer needs two distinct holders")
	}
	if amount == 0 {
		return fail(ErrInvalidAmount, "transfer of zero shares")
	}
	if ps.balances[from] < amount {
		return fail(ErrInsufficientBalance, "%s holds %d shares, transfer needs %d", from, ps.balances[from], amount)
	}
	b.add(models.EventTransferSingle, idRef(ps.property.ID), to, amount, models.TransferSinglePayload{
		Operator:   operator,
		From:       from,
		To:         to,
		PropertyID: ps.property.ID,
		Amount:     amount,
	})
	return nil
}

// checkMint validates that amount more shares fit into the property.
func (ps *propertyState) checkMint(amount uint64) error {
	issued, ok := add(ps.issued, amount)
	if !ok || issued > ps.property.TotalShares {
		return fail(ErrCapacityExceeded, "minting %d shares would exceed %d (issued %d)", amount, ps.property.TotalShares, ps.issued)
	}
	return nil
}

// snapshotProperties returns the property states in creation order.
func (e *Engine) snapshotProperties() []*propertyState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*propertyState, 0, len(e.propertyOrder))
	for _, id := range e.propertyOrder {
		out = append(out, e.properties[id])
	}
	return out
}
