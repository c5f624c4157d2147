package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
)

// List offers part of a holder's balance for sale. Listed shares stay with
// the seller but cannot be listed again until the listing closes.
func (e *Engine) List(ctx context.Context, seller string, propertyID uuid.UUID, shares, pricePerShare uint64) (*models.Listing, error) {
	if seller == "" {
		return nil, fail(ErrInvalidParams, "seller is required")
	}
	if shares == 0 || pricePerShare == 0 {
		return nil, fail(ErrInvalidParams, "shares and price per share must be positive")
	}
	if _, ok := mul(shares, pricePerShare); !ok {
		return nil, fail(ErrInvalidParams, "listing total overflows")
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
	switch ps.property.Status {
	case models.PropertyStatusSelling:
		return nil, fail(ErrNotConcluded, "sale of %s is not concluded", propertyID)
	case models.PropertyStatusDelisted:
		return nil, fail(ErrPropertyDelisted, "property %s is delisted", propertyID)
	}
	if avail := ps.available(seller); shares > avail {
		return nil, fail(ErrInsufficientBalance, "%s has %d unlisted shares, listing needs %d", seller, avail, shares)
	}

	b := e.newBatch()
	listing := models.Listing{
		ID:            uuid.New(),
		PropertyID:    propertyID,
		Seller:        seller,
		Shares:        shares,
		PricePerShare: pricePerShare,
		Status:        models.ListingStatusOpen,
		CreatedAt:     b.at,
	}
	b.add(models.EventListingCreated, idRef(propertyID), seller, shares, models.ListingCreatedPayload{Listing: listing})
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return &listing, nil
}

// BuyListing executes a listed trade: the whole listing moves to buyer.
func (e *Engine) BuyListing(ctx context.Context, buyer string, listingID uuid.UUID, payment models.Payment) (*models.Listing, error) {
	if buyer == "" {
		return nil, fail(ErrInvalidParams, "buyer is required")
	}
	if err := e.requireVerified(ctx, buyer); err != nil {
		return nil, err
	}
	ps, err := e.listingProperty(listingID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	l := ps.listings[listingID]
	if l.Status != models.ListingStatusOpen || ps.property.Status == models.PropertyStatusDelisted {
		return nil, fail(ErrListingUnavailable, "listing %s is %s", listingID, l.Status)
	}
	if buyer == l.Seller {
		return nil, fail(ErrInvalidParams, "seller cannot buy own listing")
	}
	total, ok := l.Total()
	if !ok {
		return nil, fail(ErrInvalidParams, "listing total overflows")
	}
	if err := checkPayment(payment, buyer, total); err != nil {
		return nil, err
	}
	release, err := e.reserveReference(payment)
	if err != nil {
		return nil, err
	}
	defer release()

	b := e.newBatch()
	b.add(models.EventListingFilled, idRef(ps.property.ID), buyer, l.Shares, models.ListingFilledPayload{
		ListingID: listingID,
		Buyer:     buyer,
		Payment:   payment,
		FilledAt:  b.at,
	})
	if err := ps.stageTransfer(b, buyer, l.Seller, buyer, l.Shares); err != nil {
		return nil, err
	}
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	out := *l
	return &out, nil
}

// CancelListing closes an open listing; only its seller may do so.
func (e *Engine) CancelListing(ctx context.Context, seller string, listingID uuid.UUID) (*models.Listing, error) {
	ps, err := e.listingProperty(listingID)
	if err != nil {
		return nil, err
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	l := ps.listings[listingID]
	if l.Seller != seller {
		return nil, fail(ErrNotOwner, "listing %s belongs to another seller", listingID)
	}
	if l.Status != models.ListingStatusOpen {
		return nil, fail(ErrListingUnavailable, "listing %s is %s", listingID, l.Status)
	}

	b := e.newBatch()
	stageCancel(b, ps, l, seller)
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	out := *l
	return &out, nil
}

func stageCancel(b *batch, ps *propertyState, l *models.Listing, actor string) {
	b.add(models.EventListingCancelled, idRef(ps.property.ID), l.Seller, l.Shares, models.ListingCancelledPayload{
		ListingID:   l.ID,
		Actor:       actor,
		CancelledAt: b.at,
	})
}

func (e *Engine) listingProperty(listingID uuid.UUID) (*propertyState, error) {
	e.mu.RLock()
	propertyID, ok := e.listingIndex[listingID]
	e.mu.RUnlock()
	if !ok {
		return nil, fail(ErrListingNotFound, "listing %s", listingID)
	}
	return e.lookup(propertyID)
}

func (e *Engine) Listing(listingID uuid.UUID) (*models.Listing, error) {
	ps, err := e.listingProperty(listingID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := *ps.listings[listingID]
	return &out, nil
}

// Listings returns a property's listings in creation order, optionally
// filtered by status.
func (e *Engine) Listings(propertyID uuid.UUID, status string) ([]models.Listing, error) {
	ps, err := e.lookup(propertyID)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]models.Listing, 0, len(ps.listingOrder))
	for _, id := range ps.listingOrder {
		l := ps.listings[id]
		if status != "" && l.Status != status {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}
