// Package ledger implements the balance math for Tally: rounding-safe
// splitting of integer amounts, per-user balance contributions of an
// expense, adjustment deltas between two expense states, and the group
// activity feed merge. Everything here is pure; persistence is the
// storage layer's concern.
package ledger

import (
	"fmt"
	"sort"

	"github.com/tallyup/tally/internal/models"
)

// Split divides total cents into n integer shares that sum exactly to total.
// Each share is floor(total/n); the remainder is handed out one cent at a
// time to the first total%n positions, so no two shares differ by more than
// one cent. The order of positions is the caller's participant order, which
// must be stable for repeated calls to produce identical results.
func Split(total int64, n int) ([]int64, error) {
	if total <= 0 {
		return nil, fmt.Errorf("split: total must be positive, got %d", total)
	}
	if n < 1 {
		return nil, fmt.Errorf("split: need at least one participant, got %d", n)
	}

	base := total / int64(n)
	rem := total - base*int64(n)

	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
		if int64(i) < rem {
			shares[i]++
		}
	}
	return shares, nil
}

// SplitAmong splits total equally across the given users and returns one
// share per user. Users are ordered by ascending ID before the remainder is
// distributed, so the result is independent of the input order.
func SplitAmong(total int64, userIDs []string) ([]models.Share, error) {
	ids := make([]string, len(userIDs))
	copy(ids, userIDs)
	sort.Strings(ids)

	amounts, err := Split(total, len(ids))
	if err != nil {
		return nil, err
	}

	shares := make([]models.Share, len(ids))
	for i, id := range ids {
		shares[i] = models.Share{UserID: id, Amount: amounts[i]}
	}
	return shares, nil
}
