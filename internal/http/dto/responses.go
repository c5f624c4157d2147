package dto

import (
	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type QuoteResponse struct {
	PropertyID uuid.UUID `json:"property_id"`
	Shares     uint64    `json:"shares"`
	Currency   string    `json:"currency"`
	UnitCost   string    `json:"unit_cost"`
	Cost       string    `json:"cost"`
}

type ResolveResponse struct {
	Request  *models.PropertyRequest `json:"request"`
	Property *models.Property        `json:"property,omitempty"`
}

type ClaimableResponse struct {
	PropertyID uuid.UUID `json:"property_id"`
	Holder     string    `json:"holder"`
	Amount     uint64    `json:"amount"`
	Display    string    `json:"display"`
}

type WithdrawResponse struct {
	PropertyID uuid.UUID `json:"property_id"`
	Amount     uint64    `json:"amount"`
	Display    string    `json:"display"`
}

type ProposalResponse struct {
	Proposal *models.Proposal `json:"proposal"`
	MyVote   *models.Vote     `json:"my_vote,omitempty"`
}

type HoldingsResponse struct {
	Holder   string                `json:"holder"`
	Holdings []models.Holding      `json:"holdings"`
	Claims   []models.PendingClaim `json:"pending_claims"`
}

// DueResponse lists the time gates that have passed and wait for a trigger.
type DueResponse struct {
	Sales     []uuid.UUID `json:"sales"`
	Proposals []uuid.UUID `json:"proposals"`
}
