package dto

// Amounts are decimal strings in the unit of their currency ("12.50");
// prices and fees are always in the stable currency. The payer of a payment
// is the authenticated holder.

type PaymentRequest struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type SubmitPropertyRequest struct {
	PricePerShare   string          `json:"price_per_share"`
	TotalShares     uint64          `json:"total_shares"`
	SaleWindowHours int             `json:"sale_window_hours"`
	MetadataURI     string          `json:"metadata_uri"`
	Payment         *PaymentRequest `json:"payment,omitempty"` // registration fee, when one is set
}

type ResolvePropertyRequest struct {
	Approve       bool    `json:"approve"`
	AdjustedPrice *string `json:"adjusted_price,omitempty"`
}

type BuySharesRequest struct {
	Shares  uint64         `json:"shares"`
	Payment PaymentRequest `json:"payment"`
}

type CreateListingRequest struct {
	PropertyID    string `json:"property_id"`
	Shares        uint64 `json:"shares"`
	PricePerShare string `json:"price_per_share"`
}

type BuyListingRequest struct {
	Payment PaymentRequest `json:"payment"`
}

type DepositRentRequest struct {
	Amount  string         `json:"amount"`
	Payment PaymentRequest `json:"payment"`
}

type CreateProposalRequest struct {
	PropertyID    string          `json:"property_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	DurationHours int             `json:"duration_hours"`
	Payment       *PaymentRequest `json:"payment,omitempty"`
}

type VoteRequest struct {
	InFavor bool `json:"in_favor"`
}

// Admin

type SetPausedRequest struct {
	Paused bool `json:"paused"`
}

type SetFeeRequest struct {
	Amount string `json:"amount"`
}

type SetAPRRequest struct {
	APRBps uint32 `json:"apr_bps"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type RoleRequest struct {
	Holder string `json:"holder"`
	Role   string `json:"role"`
}

type VerifyHolderRequest struct {
	Holder   string `json:"holder"`
	Verified bool   `json:"verified"`
}
