package ledger

import (
	"fmt"
	"sort"

	"github.com/property-shares/backend/internal/models"
)

// allocate settles a primary sale. When the orders fit into capacity every
// order is honored in full. Otherwise each order gets floor(shares*capacity/
// reserved) and the leftover units go one each to the orders with the largest
// remainder, earliest sequence first on ties.
func allocate(orders []*models.Order, capacity uint64) ([]models.OrderAllocation, error) {
	var reserved uint64
	for _, o := range orders {
		var ok bool
		if reserved, ok = add(reserved, o.Shares); !ok {
			return nil, fmt.Errorf("reserved shares overflow")
		}
	}

	out := make([]models.OrderAllocation, len(orders))
	if reserved <= capacity {
		for i, o := range orders {
			out[i] = models.OrderAllocation{OrderID: o.ID, Honored: o.Shares}
		}
		return fillRefunds(orders, out)
	}

	remainders := make([]uint64, len(orders))
	var honored uint64
	for i, o := range orders {
		q, r, ok := mulDivRem(o.Shares, capacity, reserved)
		if !ok {
			return nil, fmt.Errorf("allocation of order %s overflows", o.ID)
		}
		out[i] = models.OrderAllocation{OrderID: o.ID, Honored: q}
		remainders[i] = r
		honored += q
	}

	idx := make([]int, len(orders))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := remainders[idx[a]], remainders[idx[b]]
		if ra != rb {
			return ra > rb
		}
		return orders[idx[a]].Seq < orders[idx[b]].Seq
	})
	for k := 0; honored < capacity && k < len(idx); k++ {
		if remainders[idx[k]] == 0 {
			break
		}
		out[idx[k]].Honored++
		honored++
	}
	if honored != capacity {
		return nil, fmt.Errorf("allocated %d of %d shares", honored, capacity)
	}
	return fillRefunds(orders, out)
}

func fillRefunds(orders []*models.Order, out []models.OrderAllocation) ([]models.OrderAllocation, error) {
	for i, o := range orders {
		cost, ok := mul(out[i].Honored, o.UnitCost)
		if !ok || cost > o.Payment.Amount {
			return nil, fmt.Errorf("order %s: honored cost exceeds payment", o.ID)
		}
		out[i].Refund = o.Payment.Amount - cost
	}
	return out, nil
}

// pendingClaims folds allocations into one claim per buyer, in order of
// each buyer's first order.
func pendingClaims(orders []*models.Order, allocs []models.OrderAllocation) ([]models.PendingClaim, error) {
	var claims []models.PendingClaim
	index := make(map[string]int)
	for i, o := range orders {
		k, ok := index[o.Buyer]
		if !ok {
			index[o.Buyer] = len(claims)
			claims = append(claims, models.PendingClaim{
				PropertyID: o.PropertyID,
				Holder:     o.Buyer,
				Currency:   o.Payment.Currency,
			})
			k = len(claims) - 1
		}
		c := &claims[k]
		var okShares, okRefund bool
		c.SharesOwed, okShares = add(c.SharesOwed, allocs[i].Honored)
		c.RefundOwed, okRefund = add(c.RefundOwed, allocs[i].Refund)
		if !okShares || !okRefund {
			return nil, fmt.Errorf("claim of %s overflows", o.Buyer)
		}
	}
	return claims, nil
}
