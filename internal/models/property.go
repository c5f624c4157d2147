package models

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// Property statuses
const (
	PropertyStatusSelling   = "selling"
	PropertyStatusConcluded = "concluded"
	PropertyStatusDelisted  = "delisted"
)

// Valid request transitions: from -> []to
var ValidRequestTransitions = map[string][]string{
	RequestStatusPending:  {RequestStatusApproved, RequestStatusRejected},
	RequestStatusApproved: {},
	RequestStatusRejected: {},
}

// Valid property transitions: from -> []to
var ValidPropertyTransitions = map[string][]string{
	PropertyStatusSelling:   {PropertyStatusConcluded, PropertyStatusDelisted},
	PropertyStatusConcluded: {PropertyStatusDelisted},
	PropertyStatusDelisted:  {},
}

func IsValidRequestTransition(from, to string) bool {
	return allowed(ValidRequestTransitions, from, to)
}

func IsValidPropertyTransition(from, to string) bool {
	return allowed(ValidPropertyTransitions, from, to)
}

func allowed(table map[string][]string, from, to string) bool {
	next, ok := table[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

type PropertyRequest struct {
	ID            uuid.UUID     `json:"id"`
	Requester     string        `json:"requester"`
	PricePerShare uint64        `json:"price_per_share"`
	TotalShares   uint64        `json:"total_shares"`
	SaleWindow    time.Duration `json:"sale_window"`
	MetadataURI   string        `json:"metadata_uri"`
	FeePaid       uint64        `json:"fee_paid"`
	Status        string        `json:"status"`
	Resolver      string        `json:"resolver,omitempty"`
	PropertyID    *uuid.UUID    `json:"property_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}

type Property struct {
	ID            uuid.UUID `json:"id"`
	RequestID     uuid.UUID `json:"request_id"`
	Owner         string    `json:"owner"`
	PricePerShare uint64    `json:"price_per_share"`
	TotalShares   uint64    `json:"total_shares"`
	SaleDeadline  time.Time `json:"sale_deadline"`
	MetadataURI   string    `json:"metadata_uri"`
	APRBps        uint32    `json:"apr_bps"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Holding is one holder's position in one property.
type Holding struct {
	PropertyID uuid.UUID `json:"property_id"`
	Holder     string    `json:"holder"`
	Shares     uint64    `json:"shares"`
	Listed     uint64    `json:"listed"`
}
