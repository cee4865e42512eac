package models

// PaymentMethods is the fixed set of accepted payment methods.
var PaymentMethods = []string{
	"Cash",
	"PayPal",
	"Venmo",
	"Cash App",
	"Zelle",
	"Other",
}

// ValidPaymentMethod reports whether m is one of PaymentMethods.
// The empty string is allowed (no method recorded).
func ValidPaymentMethod(m string) bool {
	if m == "" {
		return true
	}
	for _, k := range PaymentMethods {
		if k == m {
			return true
		}
	}
	return false
}

// Payment is a direct transfer of the full amount from one member to another
// within a group. There is no splitting: creating a payment raises the
// sender's balance by Amount and lowers the recipient's by the same.
type Payment struct {
	// ID is the unique identifier for the payment ("pay_" + UUID).
	ID string `json:"id"`

	// GroupID is the group this payment belongs to.
	GroupID string `json:"group_id"`

	// FromUserID is the sender. Only the sender may edit or delete the
	// payment.
	FromUserID string `json:"from_user_id"`

	// ToUserID is the recipient. Immutable after creation.
	ToUserID string `json:"to_user_id"`

	// Amount is the transferred amount in cents. Always positive.
	Amount int64 `json:"amount"`

	Description string `json:"description"`
	Notes       string `json:"notes,omitempty"`
	Method      string `json:"method,omitempty"`

	// Date is the user-supplied date of the payment (Unix seconds).
	Date int64 `json:"date"`

	// CreatedAt is the Unix timestamp when the record was created.
	CreatedAt int64 `json:"created_at"`
}
