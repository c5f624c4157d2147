package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Ledger event types. The journal is append-only; every state change of the
// ledger is one of these.
const (
	EventRequestSubmitted        = "RequestSubmitted"
	EventRequestStatus           = "RequestStatus"
	EventPropertyDelisted        = "PropertyDelisted"
	EventPropertyReset           = "PropertyReset"
	EventOrderPlaced             = "OrderPlaced"
	EventSaleConcluded           = "SaleConcluded"
	EventSaleClaimed             = "SaleClaimed"
	EventTransferSingle          = "TransferSingle"
	EventTransferBatch           = "TransferBatch"
	EventListingCreated          = "ListingCreated"
	EventListingFilled           = "ListingFilled"
	EventListingCancelled        = "ListingCancelled"
	EventRentStatus              = "RentStatus"
	EventRentWithdrawn           = "RentWithdrawn"
	EventProposalStatus          = "ProposalStatus"
	EventVoted                   = "Voted"
	EventFeesChanged             = "FeesChanged"
	EventRegistrationFeesChanged = "RegistrationFeesChanged"
	EventAPRChanged              = "APRChanged"
	EventPausedStatus            = "PausedStatus"
	EventOwnershipTransferred    = "OwnershipTransferred"
	EventRoleChanged             = "RoleChanged"
)

// LedgerEvent is one journal record. Seq is assigned by the journal on append.
type LedgerEvent struct {
	Seq        int64           `json:"seq"`
	Type       string          `json:"type"`
	PropertyID *uuid.UUID      `json:"property_id,omitempty"`
	Holder     string          `json:"holder,omitempty"`
	Amount     uint64          `json:"amount"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Parties lists the holders an event concerns: its holder and, for
// transfers, both sides. A mint has no sender.
func (e LedgerEvent) Parties() []string {
	parties := make([]string, 0, 2)
	addParty := func(h string) {
		if h == "" {
			return
		}
		for _, p := range parties {
			if p == h {
				return
			}
		}
		parties = append(parties, h)
	}
	addParty(e.Holder)

	switch e.Type {
	case EventTransferSingle, EventTransferBatch:
		var sides struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := json.Unmarshal(e.Payload, &sides); err == nil {
			addParty(sides.From)
			addParty(sides.To)
		}
	}
	return parties
}

// Involves reports whether holder is one of the event's parties.
func (e LedgerEvent) Involves(holder string) bool {
	for _, p := range e.Parties() {
		if p == holder {
			return true
		}
	}
	return false
}

type RequestSubmittedPayload struct {
	Request PropertyRequest `json:"request"`
	Payment Payment         `json:"payment"`
}

type RequestStatusPayload struct {
	RequestID  uuid.UUID `json:"request_id"`
	Status     string    `json:"status"`
	Resolver   string    `json:"resolver"`
	Property   *Property `json:"property,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type PropertyDelistedPayload struct {
	PropertyID uuid.UUID `json:"property_id"`
	Actor      string    `json:"actor"`
}

// PropertyResetPayload converts every order of an unsettled sale into a
// full refund.
type PropertyResetPayload struct {
	PropertyID uuid.UUID      `json:"property_id"`
	Claims     []PendingClaim `json:"claims"`
}

type OrderPlacedPayload struct {
	Order Order `json:"order"`
}

type SaleConcludedPayload struct {
	PropertyID     uuid.UUID         `json:"property_id"`
	TotalReserved  uint64            `json:"total_reserved"`
	Oversubscribed bool              `json:"oversubscribed"`
	Allocations    []OrderAllocation `json:"allocations"`
	Claims         []PendingClaim    `json:"claims"`
}

type SaleClaimedPayload struct {
	PropertyID uuid.UUID `json:"property_id"`
	Holder     string    `json:"holder"`
	Shares     uint64    `json:"shares"`
	Refund     uint64    `json:"refund"`
	Currency   string    `json:"currency"`
}

// TransferSinglePayload records one share movement. An empty From is a mint.
type TransferSinglePayload struct {
	Operator   string    `json:"operator"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	PropertyID uuid.UUID `json:"property_id"`
	Amount     uint64    `json:"amount"`
}

type TransferBatchPayload struct {
	Operator    string      `json:"operator"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	PropertyIDs []uuid.UUID `json:"property_ids"`
	Amounts     []uint64    `json:"amounts"`
}

type ListingCreatedPayload struct {
	Listing Listing `json:"listing"`
}

type ListingFilledPayload struct {
	ListingID uuid.UUID `json:"listing_id"`
	Buyer     string    `json:"buyer"`
	Payment   Payment   `json:"payment"`
	FilledAt  time.Time `json:"filled_at"`
}

type ListingCancelledPayload struct {
	ListingID   uuid.UUID `json:"listing_id"`
	Actor       string    `json:"actor"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type RentStatusPayload struct {
	Period  RentPeriod `json:"period"`
	Payment Payment    `json:"payment"`
}

type RentWithdrawnPayload struct {
	PropertyID        uuid.UUID `json:"property_id"`
	Holder            string    `json:"holder"`
	Amount            uint64    `json:"amount"`
	CumulativeClaimed uint64    `json:"cumulative_claimed"`
}

// ProposalStatusPayload is emitted on creation (with Payment and, under the
// creation weight policy, Snapshot) and again on finalization.
type ProposalStatusPayload struct {
	Proposal Proposal          `json:"proposal"`
	Snapshot map[string]uint64 `json:"snapshot,omitempty"`
	Payment  *Payment          `json:"payment,omitempty"`
}

type VotedPayload struct {
	Vote Vote `json:"vote"`
}

type FeesChangedPayload struct {
	ProposalFeePerDay uint64 `json:"proposal_fee_per_day"`
	Actor             string `json:"actor"`
}

type RegistrationFeesChangedPayload struct {
	RegistrationFee uint64 `json:"registration_fee"`
	Actor           string `json:"actor"`
}

type APRChangedPayload struct {
	PropertyID uuid.UUID `json:"property_id"`
	APRBps     uint32    `json:"apr_bps"`
	Actor      string    `json:"actor"`
}

type PausedStatusPayload struct {
	Paused bool   `json:"paused"`
	Actor  string `json:"actor"`
}

type OwnershipTransferredPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type RoleChangedPayload struct {
	Holder  string `json:"holder"`
	Role    string `json:"role"`
	Granted bool   `json:"granted"`
	Actor   string `json:"actor"`
}
