package ledger

import (
	"sort"

	"github.com/tallyup/tally/internal/models"
)

// Contributions returns the signed balance change each participant receives
// when an expense is applied. The payer fronted the full amount, so their
// balance rises by amount minus their own share; every other participant's
// balance falls by their share. The results sum to zero.
func Contributions(payerID string, amount int64, shares []models.Share) []models.Share {
	deltas := make([]models.Share, 0, len(shares))
	for _, sh := range shares {
		c := -sh.Amount
		if sh.UserID == payerID {
			c = amount - sh.Amount
		}
		deltas = append(deltas, models.Share{UserID: sh.UserID, Amount: c})
	}
	return deltas
}

// Reversal returns the deltas that undo a previously applied expense:
// the negation of Contributions. Used when an expense is deleted.
func Reversal(payerID string, amount int64, shares []models.Share) []models.Share {
	deltas := Contributions(payerID, amount, shares)
	for i := range deltas {
		deltas[i].Amount = -deltas[i].Amount
	}
	return deltas
}

// Adjustments computes the per-user balance deltas that move the ledger from
// an expense's old state to its new state. For each user in the union of the
// two share sets (a user missing from one side counts as share zero there),
// the delta is the new balance contribution minus the old one. Zero deltas
// are dropped, so an unchanged expense yields an empty result. The deltas
// always sum to zero, preserving the group-wide invariant.
//
// The payer is the same in both states; only the payer may edit an expense.
func Adjustments(payerID string, oldAmount int64, oldShares []models.Share, newAmount int64, newShares []models.Share) []models.Share {
	oldByUser := shareMap(oldShares)
	newByUser := shareMap(newShares)

	users := make([]string, 0, len(oldByUser)+len(newByUser))
	for id := range oldByUser {
		users = append(users, id)
	}
	for id := range newByUser {
		if _, ok := oldByUser[id]; !ok {
			users = append(users, id)
		}
	}
	sort.Strings(users)

	var deltas []models.Share
	for _, id := range users {
		oldC := contribution(payerID, id, oldAmount, oldByUser[id])
		newC := contribution(payerID, id, newAmount, newByUser[id])
		if d := newC - oldC; d != 0 {
			deltas = append(deltas, models.Share{UserID: id, Amount: d})
		}
	}
	return deltas
}

// contribution is the balance change user receives from one expense state.
func contribution(payerID, userID string, amount, share int64) int64 {
	if userID == payerID {
		return amount - share
	}
	return -share
}

func shareMap(shares []models.Share) map[string]int64 {
	m := make(map[string]int64, len(shares))
	for _, sh := range shares {
		m[sh.UserID] = sh.Amount
	}
	return m
}
