package models

// Share is one participant's portion of an expense. The shares of an expense
// always sum to the expense amount. The same shape doubles as a signed
// per-user balance delta when the ledger computes adjustments.
type Share struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

// ExpenseCategories is the fixed set of accepted expense categories.
var ExpenseCategories = []string{
	"restaurants",
	"entertainment",
	"groceries",
	"maintenance",
	"mortgage",
	"rent",
	"household",
	"gifts",
	"lodging",
	"parking",
	"transportation",
	"general",
	"utilities",
	"phone and internet",
	"health and medical",
}

// ValidCategory reports whether c is one of ExpenseCategories.
// The empty string is allowed (no category).
func ValidCategory(c string) bool {
	if c == "" {
		return true
	}
	for _, k := range ExpenseCategories {
		if k == c {
			return true
		}
	}
	return false
}

// Expense is an amount paid by one member on behalf of the group, divided
// into per-participant shares.
type Expense struct {
	// ID is the unique identifier for the expense ("exp_" + UUID).
	ID string `json:"id"`

	// GroupID is the group this expense belongs to.
	GroupID string `json:"group_id"`

	// PayerID is the user who paid and created the expense. Only the payer
	// may edit or delete it.
	PayerID string `json:"payer_id"`

	// Amount is the total paid, in cents. Always positive, and always equal
	// to the sum of Shares.
	Amount int64 `json:"amount"`

	// Shares divides Amount across participants. Each user appears at most
	// once; the payer's own share is one of the entries (it may be zero).
	Shares []Share `json:"shares"`

	Description string `json:"description"`
	Notes       string `json:"notes,omitempty"`
	Category    string `json:"category,omitempty"`

	// Date is the user-supplied date of the expense (Unix seconds).
	Date int64 `json:"date"`

	// CreatedAt is the Unix timestamp when the record was created.
	CreatedAt int64 `json:"created_at"`
}
