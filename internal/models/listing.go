package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ListingStatusOpen      = "open"
	ListingStatusFilled    = "filled"
	ListingStatusCancelled = "cancelled"
)

var ValidListingTransitions = map[string][]string{
	ListingStatusOpen:      {ListingStatusFilled, ListingStatusCancelled},
	ListingStatusFilled:    {},
	ListingStatusCancelled: {},
}

func IsValidListingTransition(from, to string) bool {
	return allowed(ValidListingTransitions, from, to)
}

type Listing struct {
	ID            uuid.UUID  `json:"id"`
	PropertyID    uuid.UUID  `json:"property_id"`
	Seller        string     `json:"seller"`
	Shares        uint64     `json:"shares"`
	PricePerShare uint64     `json:"price_per_share"`
	Status        string     `json:"status"`
	Buyer         string     `json:"buyer,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

// Total is the price of the whole listing; ok is false on overflow.
func (l *Listing) Total() (uint64, bool) {
	if l.PricePerShare != 0 && l.Shares > ^uint64(0)/l.PricePerShare {
		return 0, false
	}
	return l.Shares * l.PricePerShare, true
}
