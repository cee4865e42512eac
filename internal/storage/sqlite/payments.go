package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tallyup/tally/internal/models"
	"github.com/tallyup/tally/internal/storage"
)

// GetPayment retrieves a payment by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return getPayment(ctx, s.db, id)
}

// ListPaymentsByGroup retrieves all payments for a group, newest first.
func (s *SQLiteStore) ListPaymentsByGroup(ctx context.Context, groupID string) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, from_user_id, to_user_id, amount, description, notes, method, date, created_at
		 FROM payments WHERE group_id = ? ORDER BY created_at DESC, id DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.GroupID, &p.FromUserID, &p.ToUserID, &p.Amount,
			&p.Description, &p.Notes, &p.Method, &p.Date, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func insertPayment(ctx context.Context, q querier, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = models.NewID("pay")
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO payments (id, group_id, from_user_id, to_user_id, amount, description, notes, method, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.GroupID, payment.FromUserID, payment.ToUserID, payment.Amount,
		payment.Description, payment.Notes, payment.Method, payment.Date, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func getPayment(ctx context.Context, q querier, id string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := q.QueryRowContext(ctx,
		`SELECT id, group_id, from_user_id, to_user_id, amount, description, notes, method, date, created_at
		 FROM payments WHERE id = ?`,
		id,
	).Scan(&payment.ID, &payment.GroupID, &payment.FromUserID, &payment.ToUserID, &payment.Amount,
		&payment.Description, &payment.Notes, &payment.Method, &payment.Date, &payment.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// updatePayment rewrites the mutable payment fields. The recipient is
// immutable, so to_user_id is never touched.
func updatePayment(ctx context.Context, q querier, payment *models.Payment) error {
	res, err := q.ExecContext(ctx,
		`UPDATE payments SET amount = ?, description = ?, notes = ?, method = ?, date = ?
		 WHERE id = ?`,
		payment.Amount, payment.Description, payment.Notes, payment.Method, payment.Date,
		payment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
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

func deletePayment(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
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
