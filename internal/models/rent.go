package models

import (
	"time"

	"github.com/google/uuid"
)

// RentPeriod is one rent deposit. PerShareRate is floor(TotalDeposited /
// TotalShares); Dust is the remainder, kept undistributed. Checkpoint holds
// every non-zero balance at deposit time and is the only basis for claims.
type RentPeriod struct {
	PropertyID     uuid.UUID         `json:"property_id"`
	PeriodID       int               `json:"period_id"`
	TotalDeposited uint64            `json:"total_deposited"`
	PerShareRate   uint64            `json:"per_share_rate"`
	Dust           uint64            `json:"dust"`
	Unallocated    uint64            `json:"unallocated"`
	Checkpoint     map[string]uint64 `json:"checkpoint"`
	Depositor      string            `json:"depositor"`
	CreatedAt      time.Time         `json:"created_at"`
}

type RentSummary struct {
	PropertyID     uuid.UUID `json:"property_id"`
	Periods        int       `json:"periods"`
	TotalDeposited uint64    `json:"total_deposited"`
	TotalClaimed   uint64    `json:"total_claimed"`
	TotalDust      uint64    `json:"total_dust"`
	Unallocated    uint64    `json:"unallocated"`
}
