package models

// Comment is a note attached to exactly one expense or one payment.
type Comment struct {
	// ID is the unique identifier for the comment ("com_" + UUID).
	ID string `json:"id"`

	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`

	// Exactly one of ExpenseID and PaymentID is set.
	ExpenseID string `json:"expense_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`

	Content string `json:"content"`

	// CreatedAt is the Unix timestamp when the comment was created.
	CreatedAt int64 `json:"created_at"`
}
