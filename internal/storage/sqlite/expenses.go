package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tallyup/tally/internal/models"
	"github.com/tallyup/tally/internal/storage"
)

// GetExpense retrieves an expense by ID, including its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	return getExpense(ctx, s.db, id)
}

// ListExpensesByGroup retrieves all expenses for a group, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error) {
	return listExpensesByGroup(ctx, s.db, groupID)
}

func insertExpense(ctx context.Context, q querier, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = models.NewID("exp")
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, payer_id, amount, description, notes, category, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.PayerID, expense.Amount,
		expense.Description, expense.Notes, expense.Category, expense.Date, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return insertShares(ctx, q, expense.ID, expense.Shares)
}

func getExpense(ctx context.Context, q querier, id string) (*models.Expense, error) {
	expense := &models.Expense{}
	err := q.QueryRowContext(ctx,
		`SELECT id, group_id, payer_id, amount, description, notes, category, date, created_at
		 FROM expenses WHERE id = ?`,
		id,
	).Scan(&expense.ID, &expense.GroupID, &expense.PayerID, &expense.Amount,
		&expense.Description, &expense.Notes, &expense.Category, &expense.Date, &expense.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	shares, err := getShares(ctx, q, expense.ID)
	if err != nil {
		return nil, err
	}
	expense.Shares = shares
	return expense, nil
}

// updateExpense rewrites the expense row and replaces its share set.
// Zero updated rows means the expense vanished mid-transaction.
func updateExpense(ctx context.Context, q querier, expense *models.Expense) error {
	res, err := q.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, description = ?, notes = ?, category = ?, date = ?
		 WHERE id = ?`,
		expense.Amount, expense.Description, expense.Notes, expense.Category, expense.Date,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = ?`, expense.ID); err != nil {
		return fmt.Errorf("failed to clear shares: %w", err)
	}
	return insertShares(ctx, q, expense.ID, expense.Shares)
}

func deleteExpense(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete shares: %w", err)
	}

	res, err := q.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func insertShares(ctx context.Context, q querier, expenseID string, shares []models.Share) error {
	for _, share := range shares {
		_, err := q.ExecContext(ctx,
			`INSERT INTO expense_shares (expense_id, user_id, amount) VALUES (?, ?, ?)`,
			expenseID, share.UserID, share.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

func getShares(ctx context.Context, q querier, expenseID string) ([]models.Share, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, amount FROM expense_shares WHERE expense_id = ? ORDER BY user_id`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	shares := make([]models.Share, 0)
	for rows.Next() {
		var sh models.Share
		if err := rows.Scan(&sh.UserID, &sh.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return shares, nil
}

func listExpensesByGroup(ctx context.Context, q querier, groupID string) ([]models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, group_id, payer_id, amount, description, notes, category, date, created_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at DESC, id DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.GroupID, &e.PayerID, &e.Amount,
			&e.Description, &e.Notes, &e.Category, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for i := range expenses {
		shares, err := getShares(ctx, q, expenses[i].ID)
		if err != nil {
			return nil, err
		}
		expenses[i].Shares = shares
	}
	return expenses, nil
}
