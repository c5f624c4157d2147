package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
)

// Quote is the cost of shares of a property paid in currency.
type Quote struct {
	PropertyID uuid.UUID `json:"property_id"`
	Shares     uint64    `json:"shares"`
	Currency   string    `json:"currency"`
	UnitCost   uint64    `json:"unit_cost"`
	Cost       uint64    `json:"cost"`
}

// unitCost converts the stable price of one share into currency units,
// rounding down.
func (e *Engine) unitCost(ctx context.Context, price uint64, currency string) (uint64, error) {
	if currency == models.CurrencyStable {
		return price, nil
	}
	if currency == "" {
		return 0, fail(ErrUnsupportedCurrency, "currency is required")
	}
	rate, ok, err := e.rates.Rate(ctx, currency)
	if err != nil {
		return 0, fmt.Errorf("rate for %s: %w", currency, err)
	}
	if !ok || rate.Num == 0 || rate.Den == 0 {
		return 0, fail(ErrUnsupportedCurrency, "currency %q is not accepted", currency)
	}
	unit, ok := mulDiv(price, rate.Num, rate.Den)
	if !ok {
		return 0, fail(ErrInvalidParams, "unit cost in %s overflows", currency)
	}
	if unit == 0 {
		return 0, fail(ErrInvalidParams, "unit cost in %s rounds to zero", currency)
	}
	return unit, nil
}

func (e *Engine) quote(ctx context.Context, ps *propertyState, shares uint64, currency string) (Quote, error) {
	q := Quote{PropertyID: ps.property.ID, Shares: shares, Currency: currency}
	if shares == 0 {
		return q, fail(ErrInvalidParams, "shares must be positive")
	}
	unit, err := e.unitCost(ctx, ps.property.PricePerShare, currency)
	if err != nil {
		return q, err
	}
	cost, ok := mul(shares, unit)
	if !ok {
		return q, fail(ErrInvalidParams, "cost overflows")
	}
	q.UnitCost = unit
	q.Cost = cost
	return q, nil
}

// Quote prices shares of a property in currency.
func (e *Engine) Quote(ctx context.Context, propertyID uuid.UUID, shares uint64, currency string) (Quote, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return Quote{}, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return e.quote(ctx, ps, shares, currency)
}

// Buy places a primary-sale order. Orders beyond capacity are accepted and
// marked oversubscribed; nothing is minted until the buyer claims.
func (e *Engine) Buy(ctx context.Context, buyer string, propertyID uuid.UUID, shares uint64, payment models.Payment) (*models.Order, error) {
	if buyer == "" {
		return nil, fail(ErrInvalidParams, "buyer is required")
	}
	if err := e.requireVerified(ctx, buyer); err != nil {
		return nil, err
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
	now := e.clock.Now()
	if ps.property.Status != models.PropertyStatusSelling || !now.Before(ps.property.SaleDeadline) {
		return nil, fail(ErrSaleClosed, "sale of %s is closed", propertyID)
	}
	for _, o := range ps.orders {
		if o.Buyer == buyer && o.Payment.Currency != payment.Currency {
			return nil, fail(ErrInvalidParams, "orders of one buyer must share a currency (%s)", o.Payment.Currency)
		}
	}
	q, err := e.quote(ctx, ps, shares, payment.Currency)
	if err != nil {
		return nil, err
	}
	if payment.Payer != buyer {
		return nil, fail(ErrPaymentMismatch, "payment made by %q, want %q", payment.Payer, buyer)
	}
	if payment.Amount != q.Cost {
		return nil, fail(ErrPaymentMismatch, "payment of %d %s, quote is %d", payment.Amount, payment.Currency, q.Cost)
	}
	reserved, ok := add(ps.reserved, shares)
	if !ok {
		return nil, fail(ErrInvalidParams, "reserved shares overflow")
	}
	release, err := e.reserveReference(payment)
	if err != nil {
		return nil, err
	}
	defer release()

	b := e.newBatch()
	order := models.Order{
		ID:             uuid.New(),
		PropertyID:     propertyID,
		Buyer:          buyer,
		Seq:            len(ps.orders) + 1,
		Shares:         shares,
		UnitCost:       q.UnitCost,
		Payment:        payment,
		Oversubscribed: reserved > ps.property.TotalShares,
		CreatedAt:      b.at,
	}
	b.add(models.EventOrderPlaced, idRef(propertyID), buyer, shares, models.OrderPlacedPayload{Order: order})
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return &order, nil
}

// Conclude settles a sale whose deadline has passed.
func (e *Engine) Conclude(ctx context.Context, propertyID uuid.UUID) (*models.SaleSummary, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	if ps.property.Status != models.PropertyStatusSelling {
		return nil, fail(ErrNotSelling, "property %s is %s", propertyID, ps.property.Status)
	}
	if e.clock.Now().Before(ps.property.SaleDeadline) {
		return nil, fail(ErrSaleActive, "sale of %s runs until %s", propertyID, ps.property.SaleDeadline.Format(time.RFC3339))
	}

	allocs, err := allocate(ps.orders, ps.property.TotalShares)
	if err != nil {
		return nil, fail(ErrInconsistent, "%v", err)
	}
	claims, err := pendingClaims(ps.orders, allocs)
	if err != nil {
		return nil, fail(ErrInconsistent, "%v", err)
	}

	b := e.newBatch()
	b.add(models.EventSaleConcluded, idRef(propertyID), "", ps.reserved, models.SaleConcludedPayload{
		PropertyID:     propertyID,
		TotalReserved:  ps.reserved,
		Oversubscribed: ps.reserved > ps.property.TotalShares,
		Allocations:    allocs,
		Claims:         claims,
	})
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	summary := ps.summary()
	return &summary, nil
}

// Claim mints a holder's honored shares and releases the refund, once.
func (e *Engine) Claim(ctx context.Context, holder string, propertyID uuid.UUID) (*models.PendingClaim, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	if ps.property.Status == models.PropertyStatusSelling {
		return nil, fail(ErrNotConcluded, "sale of %s is not concluded", propertyID)
	}
	claim, ok := ps.claims[holder]
	if !ok {
		return nil, fail(ErrAlreadyClaimed, "no pending claim for %s on %s", holder, propertyID)
	}
	if err := ps.checkMint(claim.SharesOwed); err != nil {
		return nil, err
	}

	b := e.newBatch()
	stageClaim(b, ps, claim)
	if claim.SharesOwed > 0 {
		b.add(models.EventTransferSingle, idRef(propertyID), holder, claim.SharesOwed, models.TransferSinglePayload{
			Operator:   holder,
			To:         holder,
			PropertyID: propertyID,
			Amount:     claim.SharesOwed,
		})
	}
	out := *claim
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClaimAll settles every pending claim of holder in one transaction.
func (e *Engine) ClaimAll(ctx context.Context, holder string) ([]models.PendingClaim, error) {
	var targets []*propertyState
	for _, ps := range e.snapshotProperties() {
		ps.mu.RLock()
		_, ok := ps.claims[holder]
		ps.mu.RUnlock()
		if ok {
			targets = append(targets, ps)
		}
	}
	if len(targets) == 0 {
		return nil, fail(ErrNothingToClaim, "no pending claims for %s", holder)
	}
	sort.Slice(targets, func(i, j int) bool {
		a, b := targets[i].property.ID, targets[j].property.ID
		return bytes.Compare(a[:], b[:]) < 0
	})
	for _, ps := range targets {
		ps.mu.Lock()
		defer ps.mu.Unlock()
	}

	if err := e.checkActive(); err != nil {
		return nil, err
	}

	b := e.newBatch()
	var claimed []models.PendingClaim
	batch := models.TransferBatchPayload{Operator: holder, To: holder}
	for _, ps := range targets {
		claim, ok := ps.claims[holder]
		if !ok || ps.property.Status == models.PropertyStatusSelling {
			continue
		}
		if err := ps.checkMint(claim.SharesOwed); err != nil {
			return nil, err
		}
		stageClaim(b, ps, claim)
		if claim.SharesOwed > 0 {
			batch.PropertyIDs = append(batch.PropertyIDs, ps.property.ID)
			batch.Amounts = append(batch.Amounts, claim.SharesOwed)
		}
		claimed = append(claimed, *claim)
	}
	if len(claimed) == 0 {
		return nil, fail(ErrNothingToClaim, "no pending claims for %s", holder)
	}
	if len(batch.PropertyIDs) > 0 {
		var total uint64
		for _, a := range batch.Amounts {
			total += a
		}
		b.add(models.EventTransferBatch, nil, holder, total, batch)
	}
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return claimed, nil
}

func stageClaim(b *batch, ps *propertyState, claim *models.PendingClaim) {
	b.add(models.EventSaleClaimed, idRef(ps.property.ID), claim.Holder, claim.SharesOwed, models.SaleClaimedPayload{
		PropertyID: ps.property.ID,
		Holder:     claim.Holder,
		Shares:     claim.SharesOwed,
		Refund:     claim.RefundOwed,
		Currency:   claim.Currency,
	})
}

// Sale returns the primary sale of a property.
func (e *Engine) Sale(propertyID uuid.UUID) (*models.SaleSummary, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	summary := ps.summary()
	return &summary, nil
}

func (ps *propertyState) summary() models.SaleSummary {
	s := models.SaleSummary{
		Property:       ps.property,
		Orders:         make([]models.Order, 0, len(ps.orders)),
		TotalReserved:  ps.reserved,
		Oversubscribed: ps.reserved > ps.property.TotalShares,
		Issued:         ps.issued,
		PendingClaims:  len(ps.claims),
	}
	if ps.property.Status != models.PropertyStatusSelling {
		s.Proceeds = make(map[string]uint64)
	}
	for _, o := range ps.orders {
		s.Orders = append(s.Orders, *o)
		if s.Proceeds != nil {
			s.Proceeds[o.Payment.Currency] += o.Payment.Amount - o.Refund
		}
	}
	return s
}

// PendingClaim returns what holder can still claim from a property's sale.
func (e *Engine) PendingClaim(holder string, propertyID uuid.UUID) (*models.PendingClaim, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	claim, ok := ps.claims[holder]
	if !ok {
		return nil, nil
	}
	out := *claim
	return &out, nil
}

// PendingClaimsOf returns every pending claim of holder in property
// creation order.
func (e *Engine) PendingClaimsOf(holder string) []models.PendingClaim {
	out := []models.PendingClaim{}
	for _, ps := range e.snapshotProperties() {
		ps.mu.RLock()
		if claim, ok := ps.claims[holder]; ok {
			out = append(out, *claim)
		}
		ps.mu.RUnlock()
	}
	return out
}

// DueSales lists selling properties whose deadline has passed at now.
func (e *Engine) DueSales(now time.Time) []uuid.UUID {
	var out []uuid.UUID
	for _, ps := range e.snapshotProperties() {
		ps.mu.RLock()
		if ps.property.Status == models.PropertyStatusSelling && !now.Before(ps.property.SaleDeadline) {
			out = append(out, ps.property.ID)
		}
		ps.mu.RUnlock()
	}
	return out
}
