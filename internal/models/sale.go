package models

import (
	"time"

	"github.com/google/uuid"
)

// CurrencyStable is the ledger's unit of account. Every other currency is
// converted through a Rate supplied by the payment collaborator.
const (
	CurrencyStable = "STABLE"
	CurrencyNative = "NATIVE"
)

// Payment is a verified payment fact handed to the ledger by the payment
// collaborator. Amount is in minor units of Currency.
type Payment struct {
	Amount    uint64 `json:"amount"`
	Currency  string `json:"currency"`
	Payer     string `json:"payer"`
	Reference string `json:"reference"`
}

// Rate converts stable units into Currency units: amount * Num / Den.
type Rate struct {
	Num uint64 `json:"num"`
	Den uint64 `json:"den"`
}

type Order struct {
	ID             uuid.UUID `json:"id"`
	PropertyID     uuid.UUID `json:"property_id"`
	Buyer          string    `json:"buyer"`
	Seq            int       `json:"seq"`
	Shares         uint64    `json:"shares"`
	UnitCost       uint64    `json:"unit_cost"`
	Payment        Payment   `json:"payment"`
	Oversubscribed bool      `json:"oversubscribed"`
	Honored        uint64    `json:"honored"`
	Refund         uint64    `json:"refund"`
	CreatedAt      time.Time `json:"created_at"`
}

type PendingClaim struct {
	PropertyID uuid.UUID `json:"property_id"`
	Holder     string    `json:"holder"`
	SharesOwed uint64    `json:"shares_owed"`
	RefundOwed uint64    `json:"refund_owed"`
	Currency   string    `json:"currency"`
}

// OrderAllocation is the settlement result of a single order.
type OrderAllocation struct {
	OrderID uuid.UUID `json:"order_id"`
	Honored uint64    `json:"honored"`
	Refund  uint64    `json:"refund"`
}

// SaleSummary is a read model of a property's primary sale.
type SaleSummary struct {
	Property       Property          `json:"property"`
	Orders         []Order           `json:"orders"`
	TotalReserved  uint64            `json:"total_reserved"`
	Oversubscribed bool              `json:"oversubscribed"`
	Issued         uint64            `json:"issued"`
	PendingClaims  int               `json:"pending_claims"`
	Proceeds       map[string]uint64 `json:"proceeds,omitempty"`
}
