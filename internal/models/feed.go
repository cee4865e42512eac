package models

// FeedKind tags a FeedItem as either an expense or a payment.
type FeedKind string

const (
	FeedExpense FeedKind = "expense"
	FeedPayment FeedKind = "payment"
)

// FeedItem is one entry in a group's activity feed: a tagged union of an
// expense or a payment. Exactly the field matching Kind is non-nil.
type FeedItem struct {
	Kind    FeedKind `json:"kind"`
	Expense *Expense `json:"expense,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
}

// CreatedAt returns the creation timestamp of the underlying record.
func (f FeedItem) CreatedAt() int64 {
	switch f.Kind {
	case FeedExpense:
		return f.Expense.CreatedAt
	case FeedPayment:
		return f.Payment.CreatedAt
	}
	return 0
}
