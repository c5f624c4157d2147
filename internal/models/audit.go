package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditRun is the outcome of one replay-and-verify pass over the journal.
type AuditRun struct {
	ID         uuid.UUID `json:"id"`
	LastSeq    int64     `json:"last_seq"`
	Events     int       `json:"events"`
	OK         bool      `json:"ok"`
	Violations []string  `json:"violations"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
