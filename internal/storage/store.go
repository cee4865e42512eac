// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tallyup/tally/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness rule,
	// such as a registered email or an existing active membership.
	ErrDuplicate = errors.New("duplicate")
)

// Store defines the persistence interface for Tally. This abstraction allows
// swapping storage backends (SQLite, PostgreSQL, etc.) without changing the
// service layer.
//
// All balance-affecting work goes through Ledger, which runs the given
// function inside a single transaction; the plain methods are reads and
// standalone writes that need no ledger coordination.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Groups and membership. CreateGroup also inserts the owner's active
	// member row in the same transaction. AddMember upserts: joining a
	// group the user once left reactivates the frozen row.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	GetGroupByJoinCode(ctx context.Context, joinCode string) (*models.Group, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]models.Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	GetMember(ctx context.Context, groupID, userID string) (*models.Member, error)
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
	ListActiveMembers(ctx context.Context, groupID string) ([]models.Member, error)

	// Record reads. Lists are ordered by created_at descending, as the
	// feed merge requires.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPaymentsByGroup(ctx context.Context, groupID string) ([]models.Payment, error)

	// Comments
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListCommentsByExpense(ctx context.Context, expenseID string) ([]models.Comment, error)
	ListCommentsByPayment(ctx context.Context, paymentID string) ([]models.Comment, error)

	// Ledger runs fn inside one storage transaction. If fn returns an
	// error the transaction is rolled back and the error is returned;
	// otherwise the transaction commits. Record writes and balance deltas
	// issued through the LedgerTx are all-or-nothing.
	Ledger(ctx context.Context, fn func(tx LedgerTx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// LedgerTx is the unit-of-work handle passed to Store.Ledger callbacks.
// It separates what must be atomic (a record mutation plus its balance
// deltas) from how the store implements atomicity.
type LedgerTx interface {
	ListActiveMembers(ctx context.Context, groupID string) ([]models.Member, error)
	GetMember(ctx context.Context, groupID, userID string) (*models.Member, error)
	// DeactivateMember marks the membership inactive, freezing its balance.
	DeactivateMember(ctx context.Context, groupID, userID string) error

	InsertExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, id string) error

	InsertPayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error
	DeletePayment(ctx context.Context, id string) error

	// ApplyDeltas adds each delta to the matching active member's balance.
	// A delta whose member is inactive or missing updates zero rows and is
	// silently skipped; historical shares of members who left are frozen.
	ApplyDeltas(ctx context.Context, groupID string, deltas []models.Share) error
}
