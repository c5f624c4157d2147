package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/rbac"
)

// DepositRent opens a rent period. Each holder's entitlement is fixed by the
// balance checkpoint taken here; the integer remainder stays as dust.
func (e *Engine) DepositRent(ctx context.Context, actor string, propertyID uuid.UUID, amount uint64, payment models.Payment) (*models.RentPeriod, error) {
	if amount == 0 {
		return nil, fail(ErrInvalidAmount, "rent deposit must be positive")
	}
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	if actor == "" || (actor != ps.property.Owner && !e.Can(actor, rbac.PermDepositRent)) {
		return nil, fail(ErrNotOwner, "%s may not deposit rent for %s", actor, propertyID)
	}
	switch ps.property.Status {
	case models.PropertyStatusSelling:
		return nil, fail(ErrNotConcluded, "sale of %s is not concluded", propertyID)
	case models.PropertyStatusDelisted:
		return nil, fail(ErrPropertyDelisted, "property %s is delisted", propertyID)
	}
	if err := checkPayment(payment, actor, amount); err != nil {
		return nil, err
	}
	if _, ok := add(ps.depositedTotal(), amount); !ok {
		return nil, fail(ErrInvalidAmount, "total rent overflows")
	}
	release, err := e.reserveReference(payment)
	if err != nil {
		return nil, err
	}
	defer release()

	total := ps.property.TotalShares
	rate := amount / total
	checkpoint := make(map[string]uint64, len(ps.balances))
	for holder, shares := range ps.balances {
		checkpoint[holder] = shares
	}

	b := e.newBatch()
	period := models.RentPeriod{
		PropertyID:     propertyID,
		PeriodID:       len(ps.periods) + 1,
		TotalDeposited: amount,
		PerShareRate:   rate,
		Dust:           amount - rate*total,
		Unallocated:    rate * (total - ps.issued),
		Checkpoint:     checkpoint,
		Depositor:      actor,
		CreatedAt:      b.at,
	}
	b.add(models.EventRentStatus, idRef(propertyID), actor, amount, models.RentStatusPayload{
		Period:  period,
		Payment: payment,
	})
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return &period, nil
}

// entitled is the rent holder accrued over every period.
func (ps *propertyState) entitled(holder string) uint64 {
	var sum uint64
	for _, p := range ps.periods {
		sum += p.Checkpoint[holder] * p.PerShareRate
	}
	return sum
}

func (ps *propertyState) depositedTotal() uint64 {
	var sum uint64
	for _, p := range ps.periods {
		sum += p.TotalDeposited
	}
	return sum
}

func (ps *propertyState) claimable(holder string) uint64 {
	entitled := ps.entitled(holder)
	claimed := ps.rentClaimed[holder]
	if claimed >= entitled {
		return 0
	}
	return entitled - claimed
}

// Claimable is the rent holder can withdraw now.
func (e *Engine) Claimable(holder string, propertyID uuid.UUID) (uint64, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return 0, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.claimable(holder), nil
}

// Withdraw pays out everything claimable and advances the holder's
// cumulative claimed amount.
func (e *Engine) Withdraw(ctx context.Context, holder string, propertyID uuid.UUID) (uint64, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return 0, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return 0, err
	}
	amount := ps.claimable(holder)
	if amount == 0 {
		return 0, fail(ErrNothingToClaim, "%s has no rent to claim on %s", holder, propertyID)
	}

	b := e.newBatch()
	b.add(models.EventRentWithdrawn, idRef(propertyID), holder, amount, models.RentWithdrawnPayload{
		PropertyID:        propertyID,
		Holder:            holder,
		Amount:            amount,
		CumulativeClaimed: ps.rentClaimed[holder] + amount,
	})
	if _, err := e.commit(ctx, b); err != nil {
		return 0, err
	}
	return amount, nil
}

// RentPeriods returns a property's rent periods in deposit order.
func (e *Engine) RentPeriods(propertyID uuid.UUID) ([]models.RentPeriod, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]models.RentPeriod, 0, len(ps.periods))
	for _, p := range ps.periods {
		cp := *p
		cp.Checkpoint = make(map[string]uint64, len(p.Checkpoint))
		for h, s := range p.Checkpoint {
			cp.Checkpoint[h] = s
		}
		out = append(out, cp)
	}
	return out, nil
}

func (e *Engine) RentSummary(propertyID uuid.UUID) (*models.RentSummary, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	s := &models.RentSummary{PropertyID: propertyID, Periods: len(ps.periods)}
	for _, p := range ps.periods {
		s.TotalDeposited += p.TotalDeposited
		s.TotalDust += p.Dust
		s.Unallocated += p.Unallocated
	}
	for _, c := range ps.rentClaimed {
		s.TotalClaimed += c
	}
	return s, nil
}
