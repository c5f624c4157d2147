package ledger

import (
	"errors"
	"fmt"

	"github.com/property-shares/backend/internal/models"
)

// CheckInvariants verifies the conservation rules of every property and
// returns all violations joined, or nil.
func (e *Engine) CheckInvariants() error {
	var errs []error
	for _, ps := range e.snapshotProperties() {
		ps.mu.RLock()
		for _, err := range ps.check() {
			errs = append(errs, fmt.Errorf("property %s: %w", ps.property.ID, err))
		}
		ps.mu.RUnlock()
	}
	return errors.Join(errs...)
}

func (ps *propertyState) check() []error {
	var errs []error
	violation := func(format string, args ...any) {
		errs = append(errs, fail(ErrInconsistent, format, args...))
	}
	total := ps.property.TotalShares

	// shares
	var held uint64
	for holder, shares := range ps.balances {
		held += shares
		if ps.listed[holder] > shares {
			violation("%s lists %d of %d shares", holder, ps.listed[holder], shares)
		}
	}
	for holder, listed := range ps.listed {
		if _, ok := ps.balances[holder]; !ok && listed > 0 {
			violation("%s lists %d shares without a balance", holder, listed)
		}
	}
	if held != ps.issued {
		violation("balances sum to %d, issued is %d", held, ps.issued)
	}
	if ps.issued > total {
		violation("issued %d exceeds total %d", ps.issued, total)
	}
	var owed uint64
	for _, c := range ps.claims {
		owed += c.SharesOwed
	}
	if ps.issued+owed > total {
		violation("issued %d plus owed %d exceeds total %d", ps.issued, owed, total)
	}

	// sale funds
	if ps.property.Status != models.PropertyStatusSelling {
		var honored uint64
		for _, o := range ps.orders {
			honored += o.Honored
			if o.Honored > o.Shares {
				violation("order %s honored %d of %d shares", o.ID, o.Honored, o.Shares)
			}
			if o.Honored*o.UnitCost+o.Refund != o.Payment.Amount {
				violation("order %s: honored cost %d plus refund %d differs from payment %d",
					o.ID, o.Honored*o.UnitCost, o.Refund, o.Payment.Amount)
			}
		}
		if honored > total {
			violation("honored %d exceeds total %d", honored, total)
		}
		if ps.reserved <= total && ps.property.Status == models.PropertyStatusConcluded && honored != ps.reserved {
			violation("undersubscribed sale honored %d of %d", honored, ps.reserved)
		}
		if ps.reserved > total && ps.property.Status == models.PropertyStatusConcluded && honored != total {
			violation("oversubscribed sale honored %d, capacity %d", honored, total)
		}
	}

	// rent
	var deposited, claimed uint64
	for _, p := range ps.periods {
		deposited += p.TotalDeposited
		var checkpointed uint64
		for _, s := range p.Checkpoint {
			checkpointed += s
		}
		if checkpointed > total {
			violation("period %d checkpoints %d shares", p.PeriodID, checkpointed)
		}
		if p.PerShareRate*total+p.Dust != p.TotalDeposited {
			violation("period %d: rate %d and dust %d do not add up to %d", p.PeriodID, p.PerShareRate, p.Dust, p.TotalDeposited)
		}
	}
	for holder, c := range ps.rentClaimed {
		claimed += c
		if c > ps.entitled(holder) {
			violation("%s claimed %d rent, entitled to %d", holder, c, ps.entitled(holder))
		}
	}
	if claimed > deposited {
		violation("rent claimed %d exceeds deposited %d", claimed, deposited)
	}

	// votes
	for id, st := range ps.proposals {
		var yes, no uint64
		for _, v := range st.votes {
			if v.InFavor {
				yes += v.Weight
			} else {
				no += v.Weight
			}
		}
		if yes != st.proposal.VotesFor || no != st.proposal.VotesAgainst || len(st.votes) != st.proposal.Voters {
			violation("proposal %s tally %d/%d (%d voters) differs from votes %d/%d (%d)",
				id, st.proposal.VotesFor, st.proposal.VotesAgainst, st.proposal.Voters, yes, no, len(st.votes))
		}
	}
	return errs
}
