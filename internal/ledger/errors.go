package ledger

import (
	"errors"
	"fmt"
)

// Kind groups error codes by how a caller must react to them.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindState         Kind = "state"
	KindConservation  Kind = "conservation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
)

// Error is returned by every ledger operation that rejects its input.
// Two errors are equal under errors.Is when their codes match.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidParams       = &Error{Kind: KindValidation, Code: "invalid_params"}
	ErrInvalidAmount       = &Error{Kind: KindValidation, Code: "invalid_amount"}
	ErrUnsupportedCurrency = &Error{Kind: KindValidation, Code: "unsupported_currency"}
	ErrInsufficientFee     = &Error{Kind: KindValidation, Code: "insufficient_fee"}

	ErrSaleClosed         = &Error{Kind: KindState, Code: "sale_closed"}
	ErrSaleActive         = &Error{Kind: KindState, Code: "sale_active"}
	ErrNotSelling         = &Error{Kind: KindState, Code: "not_selling"}
	ErrNotConcluded       = &Error{Kind: KindState, Code: "not_concluded"}
	ErrAlreadyResolved    = &Error{Kind: KindState, Code: "already_resolved"}
	ErrAlreadyClaimed     = &Error{Kind: KindState, Code: "already_claimed"}
	ErrListingUnavailable = &Error{Kind: KindState, Code: "listing_unavailable"}
	ErrNothingToClaim     = &Error{Kind: KindState, Code: "nothing_to_claim"}
	ErrVotingClosed       = &Error{Kind: KindState, Code: "voting_closed"}
	ErrVotingActive       = &Error{Kind: KindState, Code: "voting_active"}
	ErrAlreadyVoted       = &Error{Kind: KindState, Code: "already_voted"}
	ErrAlreadyFinalized   = &Error{Kind: KindState, Code: "already_finalized"}
	ErrPaused             = &Error{Kind: KindState, Code: "paused"}
	ErrPropertyDelisted   = &Error{Kind: KindState, Code: "property_delisted"}

	ErrCapacityExceeded    = &Error{Kind: KindConservation, Code: "capacity_exceeded"}
	ErrInsufficientBalance = &Error{Kind: KindConservation, Code: "insufficient_balance"}
	ErrPaymentMismatch     = &Error{Kind: KindConservation, Code: "payment_mismatch"}
	ErrInconsistent        = &Error{Kind: KindConservation, Code: "inconsistent"}

	ErrUnauthorized        = &Error{Kind: KindAuthorization, Code: "unauthorized"}
	ErrNotOwner            = &Error{Kind: KindAuthorization, Code: "not_owner"}
	ErrIdentityNotVerified = &Error{Kind: KindAuthorization, Code: "identity_not_verified"}
	ErrNoStake             = &Error{Kind: KindAuthorization, Code: "no_stake"}

	ErrPropertyNotFound = &Error{Kind: KindNotFound, Code: "property_not_found"}
	ErrRequestNotFound  = &Error{Kind: KindNotFound, Code: "request_not_found"}
	ErrListingNotFound  = &Error{Kind: KindNotFound, Code: "listing_not_found"}
	ErrProposalNotFound = &Error{Kind: KindNotFound, Code: "proposal_not_found"}
)

func fail(base *Error, format string, args ...any) error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a ledger error, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// CodeOf returns the code of a ledger error, or "" for infrastructure errors.
func CodeOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
