package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tallyup/tally/internal/models"
)

// CreateComment persists a new comment.
func (s *SQLiteStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = models.NewID("com")
	}
	if comment.CreatedAt == 0 {
		comment.CreatedAt = time.Now().Unix()
	}

	var expenseID, paymentID any
	if comment.ExpenseID != "" {
		expenseID = comment.ExpenseID
	}
	if comment.PaymentID != "" {
		paymentID = comment.PaymentID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, group_id, user_id, expense_id, payment_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.GroupID, comment.UserID, expenseID, paymentID,
		comment.Content, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// ListCommentsByExpense retrieves all comments on an expense, oldest first.
func (s *SQLiteStore) ListCommentsByExpense(ctx context.Context, expenseID string) ([]models.Comment, error) {
	return s.listComments(ctx, "expense_id", expenseID)
}

// ListCommentsByPayment retrieves all comments on a payment, oldest first.
func (s *SQLiteStore) ListCommentsByPayment(ctx context.Context, paymentID string) ([]models.Comment, error) {
	return s.listComments(ctx, "payment_id", paymentID)
}

func (s *SQLiteStore) listComments(ctx context.Context, column, value string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, user_id, expense_id, payment_id, content, created_at
		 FROM comments WHERE `+column+` = ? ORDER BY created_at ASC, id ASC`,
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		var expenseID, paymentID sql.NullString
		if err := rows.Scan(&c.ID, &c.GroupID, &c.UserID, &expenseID, &paymentID,
			&c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.ExpenseID = expenseID.String
		c.PaymentID = paymentID.String
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}
