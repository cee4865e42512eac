package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tallyup/tally/internal/models"
	"github.com/tallyup/tally/internal/storage"
)

// CommentService manages comments on expenses and payments.
type CommentService struct {
	store storage.Store
}

// NewCommentService creates a new CommentService with the given storage backend.
func NewCommentService(store storage.Store) *CommentService {
	return &CommentService{store: store}
}

// AddExpenseComment attaches a comment to an expense. The author must be a
// member of the expense's group.
func (s *CommentService) AddExpenseComment(ctx context.Context, userID, expenseID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationf("content is required")
	}

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if err := s.requireMember(ctx, expense.GroupID, userID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		GroupID:   expense.GroupID,
		UserID:    userID,
		ExpenseID: expenseID,
		Content:   content,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		slog.Error("AddExpenseComment failed", "expense_id", expenseID, "error", err)
		return nil, err
	}
	return comment, nil
}

// AddPaymentComment attaches a comment to a payment. The author must be a
// member of the payment's group.
func (s *CommentService) AddPaymentComment(ctx context.Context, userID, paymentID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationf("content is required")
	}

	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if err := s.requireMember(ctx, payment.GroupID, userID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		GroupID:   payment.GroupID,
		UserID:    userID,
		PaymentID: paymentID,
		Content:   content,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		slog.Error("AddPaymentComment failed", "payment_id", paymentID, "error", err)
		return nil, err
	}
	return comment, nil
}

// ListExpenseComments returns an expense's comments, oldest first.
func (s *CommentService) ListExpenseComments(ctx context.Context, userID, expenseID string) ([]models.Comment, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if err := s.requireMember(ctx, expense.GroupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListCommentsByExpense(ctx, expenseID)
}

// ListPaymentComments returns a payment's comments, oldest first.
func (s *CommentService) ListPaymentComments(ctx context.Context, userID, paymentID string) ([]models.Comment, error) {
	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if err := s.requireMember(ctx, payment.GroupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListCommentsByPayment(ctx, paymentID)
}

// requireMember verifies that userID has a membership row in groupID.
// Former members keep read access to history they took part in.
func (s *CommentService) requireMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.store.GetMember(ctx, groupID, userID); err != nil {
		if err == storage.ErrNotFound {
			return ErrForbidden
		}
		return err
	}
	return nil
}
