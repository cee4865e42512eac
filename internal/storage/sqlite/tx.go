package sqlite

import (
	"context"
	"fmt"

	"github.com/tallyup/tally/internal/models"
)

// The storage.LedgerTx implementation. Every method runs on the enclosing
// *sql.Tx, so record writes and balance deltas commit or roll back together.

func (t *ledgerTx) ListActiveMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	return listMembers(ctx, t.tx, groupID, true)
}

func (t *ledgerTx) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	return getMember(ctx, t.tx, groupID, userID)
}

func (t *ledgerTx) DeactivateMember(ctx context.Context, groupID, userID string) error {
	return deactivateMember(ctx, t.tx, groupID, userID)
}

func (t *ledgerTx) InsertExpense(ctx context.Context, expense *models.Expense) error {
	return insertExpense(ctx, t.tx, expense)
}

func (t *ledgerTx) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	return getExpense(ctx, t.tx, id)
}

func (t *ledgerTx) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	return updateExpense(ctx, t.tx, expense)
}

func (t *ledgerTx) DeleteExpense(ctx context.Context, id string) error {
	return deleteExpense(ctx, t.tx, id)
}

func (t *ledgerTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	return insertPayment(ctx, t.tx, payment)
}

func (t *ledgerTx) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return getPayment(ctx, t.tx, id)
}

func (t *ledgerTx) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	return updatePayment(ctx, t.tx, payment)
}

func (t *ledgerTx) DeletePayment(ctx context.Context, id string) error {
	return deletePayment(ctx, t.tx, id)
}

// ApplyDeltas adds each delta to the matching active member's balance as a
// relative increment, never a read-modify-write, so concurrent transactions
// cannot lose updates. A delta that matches no active row is skipped: the
// member left the group and their balance is frozen.
func (t *ledgerTx) ApplyDeltas(ctx context.Context, groupID string, deltas []models.Share) error {
	for _, d := range deltas {
		if d.Amount == 0 {
			continue
		}
		_, err := t.tx.ExecContext(ctx,
			`UPDATE group_members SET balance = balance + ?
			 WHERE group_id = ? AND user_id = ? AND active = 1`,
			d.Amount, groupID, d.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to apply balance delta: %w", err)
		}
	}
	return nil
}
