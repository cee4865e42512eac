package ledger

import (
	"github.com/tallyup/tally/internal/models"
)

// MergeFeed combines expenses and payments, each already sorted by CreatedAt
// descending, into a single descending feed. A classic two-pointer merge:
// the newer head wins; on equal timestamps the expense is taken first. The
// merge is stable within each input and runs in O(n+m). Read-only: no
// balance state is touched.
func MergeFeed(expenses []models.Expense, payments []models.Payment) []models.FeedItem {
	feed := make([]models.FeedItem, 0, len(expenses)+len(payments))

	e, p := 0, 0
	for e < len(expenses) && p < len(payments) {
		if payments[p].CreatedAt > expenses[e].CreatedAt {
			feed = append(feed, models.FeedItem{Kind: models.FeedPayment, Payment: &payments[p]})
			p++
		} else {
			feed = append(feed, models.FeedItem{Kind: models.FeedExpense, Expense: &expenses[e]})
			e++
		}
	}
	for e < len(expenses) {
		feed = append(feed, models.FeedItem{Kind: models.FeedExpense, Expense: &expenses[e]})
		e++
	}
	for p < len(payments) {
		feed = append(feed, models.FeedItem{Kind: models.FeedPayment, Payment: &payments[p]})
		p++
	}
	return feed
}
