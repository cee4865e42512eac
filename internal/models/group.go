package models

// Group represents a named collection of members sharing a ledger.
type Group struct {
	// ID is the unique identifier for the group ("grp_" + UUID).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates").
	Name string `json:"name"`

	// Description is an optional free-form description.
	Description string `json:"description,omitempty"`

	// OwnerID is the user who created the group.
	OwnerID string `json:"owner_id"`

	// JoinCode is an opaque code other users present to join the group.
	JoinCode string `json:"join_code,omitempty"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// Member is the per-(user, group) balance record. One row exists for every
// user who has ever joined the group; rows are deactivated, never deleted.
type Member struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`

	// Balance is a signed amount in cents. Positive: the group owes this
	// member. Negative: this member owes the group. Balances of all active
	// members in a group sum to zero.
	Balance int64 `json:"balance"`

	// Active is false once the member has left the group. Inactive members
	// are excluded from new share computations and from balance updates;
	// their balance is frozen (at zero, per the leave rule).
	Active bool `json:"active"`
}
