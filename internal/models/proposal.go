package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProposalStatusOpen   = "open"
	ProposalStatusPassed = "passed"
	ProposalStatusFailed = "failed"
	// Cancelled proposals were still open when their property was delisted.
	ProposalStatusCancelled = "cancelled"
)

var ValidProposalTransitions = map[string][]string{
	ProposalStatusOpen:      {ProposalStatusPassed, ProposalStatusFailed, ProposalStatusCancelled},
	ProposalStatusPassed:    {},
	ProposalStatusFailed:    {},
	ProposalStatusCancelled: {},
}

func IsValidProposalTransition(from, to string) bool {
	return allowed(ValidProposalTransitions, from, to)
}

// Vote weight policies
const (
	WeightAtVoteTime = "vote_time"
	WeightAtCreation = "creation"
)

type Proposal struct {
	ID           uuid.UUID  `json:"id"`
	PropertyID   uuid.UUID  `json:"property_id"`
	Proposer     string     `json:"proposer"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	FeePaid      uint64     `json:"fee_paid"`
	WeightPolicy string     `json:"weight_policy"`
	VotesFor     uint64     `json:"votes_for"`
	VotesAgainst uint64     `json:"votes_against"`
	Voters       int        `json:"voters"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	EndTime      time.Time  `json:"end_time"`
	FinalizedAt  *time.Time `json:"finalized_at,omitempty"`
}

type Vote struct {
	ProposalID uuid.UUID `json:"proposal_id"`
	Holder     string    `json:"holder"`
	InFavor    bool      `json:"in_favor"`
	Weight     uint64    `json:"weight"`
	CastAt     time.Time `json:"cast_at"`
}
