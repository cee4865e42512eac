package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tallyup/tally/internal/ledger"
	"github.com/tallyup/tally/internal/models"
	"github.com/tallyup/tally/internal/storage"
)

// LedgerService orchestrates every balance-affecting operation: expenses and
// payments, their edits and deletions, and the group activity feed. The pure
// math lives in the ledger package; this service validates requests, checks
// authorization, and drives the record write plus its balance deltas through
// one storage transaction.
type LedgerService struct {
	store storage.Store
}

// NewLedgerService creates a new LedgerService with the given storage backend.
func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{store: store}
}

// ExpenseInput is the caller-supplied portion of a new expense. If Shares is
// empty the amount is split equally across all active members.
type ExpenseInput struct {
	GroupID     string         `json:"group_id"`
	Amount      int64          `json:"amount"`
	Description string         `json:"description"`
	Notes       string         `json:"notes"`
	Category    string         `json:"category"`
	Date        int64          `json:"date"`
	Shares      []models.Share `json:"shares"`
}

// ExpenseUpdate carries the fields of an expense edit. Nil pointers leave
// the field unchanged. If Amount changes and Shares is nil, the new amount
// is re-split equally among the expense's existing share holders.
type ExpenseUpdate struct {
	Amount      *int64         `json:"amount"`
	Description *string        `json:"description"`
	Notes       *string        `json:"notes"`
	Category    *string        `json:"category"`
	Date        *int64         `json:"date"`
	Shares      []models.Share `json:"shares"`
}

// PaymentInput is the caller-supplied portion of a new payment.
type PaymentInput struct {
	GroupID     string `json:"group_id"`
	ToUserID    string `json:"to_user_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Method      string `json:"method"`
	Date        int64  `json:"date"`
}

// PaymentUpdate carries the fields of a payment edit. The recipient is
// immutable and has no field here.
type PaymentUpdate struct {
	Amount      *int64  `json:"amount"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
	Method      *string `json:"method"`
	Date        *int64  `json:"date"`
}

// CreateExpense validates and records a new expense paid by userID, applying
// the resulting balance contributions atomically with the record insert.
func (s *LedgerService) CreateExpense(ctx context.Context, userID string, in ExpenseInput) (*models.Expense, error) {
	if in.Amount <= 0 {
		return nil, validationf("amount must be positive")
	}
	if in.Description == "" {
		return nil, validationf("description is required")
	}
	if !models.ValidCategory(in.Category) {
		return nil, validationf("unknown category %q", in.Category)
	}
	if _, err := s.store.GetGroup(ctx, in.GroupID); err != nil {
		return nil, mapStorageErr(err)
	}

	expense := &models.Expense{
		GroupID:     in.GroupID,
		PayerID:     userID,
		Amount:      in.Amount,
		Description: in.Description,
		Notes:       in.Notes,
		Category:    in.Category,
		Date:        in.Date,
	}

	err := s.store.Ledger(ctx, func(tx storage.LedgerTx) error {
		active, err := tx.ListActiveMembers(ctx, in.GroupID)
		if err != nil {
			return err
		}
		activeSet := memberSet(active)
		if !activeSet[userID] {
			return ErrForbidden
		}

		shares := in.Shares
		if len(shares) == 0 {
			shares, err = ledger.SplitAmong(in.Amount, memberIDs(active))
			if err != nil {
				return validationf("%v", err)
			}
		} else if err := validateShares(userID, in.Amount, shares, activeSet); err != nil {
			return err
		}
		expense.Shares = shares

		if err := tx.InsertExpense(ctx, expense); err != nil {
			return err
		}
		return tx.ApplyDeltas(ctx, in.GroupID, ledger.Contributions(userID, in.Amount, shares))
	})
	if err != nil {
		slog.Error("CreateExpense failed", "group_id", in.GroupID, "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("Expense created", "expense_id", expense.ID, "group_id", in.GroupID, "amount", in.Amount)
	return expense, nil
}

// GetExpense retrieves an expense, visible to any member of its group.
func (s *LedgerService) GetExpense(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if err := s.requireMember(ctx, expense.GroupID, userID); err != nil {
		return nil, err
	}
	return expense, nil
}

// UpdateExpense edits an expense. Only the payer may edit; the group is
// immutable. The balance adjustment is the difference between the old and
// new per-user contributions, applied atomically with the record update.
func (s *LedgerService) UpdateExpense(ctx context.Context, userID, expenseID string, upd ExpenseUpdate) (*models.Expense, error) {
	var updated *models.Expense
	err := s.store.Ledger(ctx, func(tx storage.LedgerTx) error {
		old, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return mapStorageErr(err)
		}
		if old.PayerID != userID {
			return ErrForbidden
		}

		next := *old
		if upd.Description != nil {
			if *upd.Description == "" {
				return validationf("description is required")
			}
			next.Description = *upd.Description
		}
		if upd.Notes != nil {
			next.Notes = *upd.Notes
		}
		if upd.Category != nil {
			if !models.ValidCategory(*upd.Category) {
				return validationf("unknown category %q", *upd.Category)
			}
			next.Category = *upd.Category
		}
		if upd.Date != nil {
			next.Date = *upd.Date
		}
		if upd.Amount != nil {
			if *upd.Amount <= 0 {
				return validationf("amount must be positive")
			}
			next.Amount = *upd.Amount
		}

		switch {
		case upd.Shares != nil:
			active, err := tx.ListActiveMembers(ctx, old.GroupID)
			if err != nil {
				return err
			}
			if err := validateShares(old.PayerID, next.Amount, upd.Shares, memberSet(active)); err != nil {
				return err
			}
			next.Shares = upd.Shares
		case next.Amount != old.Amount:
			// Amount changed without new shares: re-split the new amount
			// equally among the expense's existing share holders.
			shares, err := ledger.SplitAmong(next.Amount, shareUserIDs(old.Shares))
			if err != nil {
				return validationf("%v", err)
			}
			next.Shares = shares
		}

		deltas := ledger.Adjustments(old.PayerID, old.Amount, old.Shares, next.Amount, next.Shares)
		if err := tx.UpdateExpense(ctx, &next); err != nil {
			return mapStorageErr(err)
		}
		if err := tx.ApplyDeltas(ctx, old.GroupID, deltas); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expenseID, "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("Expense updated", "expense_id", expenseID, "amount", updated.Amount)
	return updated, nil
}

// DeleteExpense removes an expense and reverses its balance contributions.
// Only the payer may delete.
func (s *LedgerService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	err := s.store.Ledger(ctx, func(tx storage.LedgerTx) error {
		old, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return mapStorageErr(err)
		}
		if old.PayerID != userID {
			return ErrForbidden
		}
		if err := tx.DeleteExpense(ctx, expenseID); err != nil {
			return mapStorageErr(err)
		}
		return tx.ApplyDeltas(ctx, old.GroupID, ledger.Reversal(old.PayerID, old.Amount, old.Shares))
	})
	if err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expenseID, "user_id", userID, "error", err)
		return err
	}

	slog.Info("Expense deleted", "expense_id", expenseID)
	return nil
}

// CreatePayment records a direct transfer from userID to the recipient.
// No splitting: the sender's balance rises by the full amount and the
// recipient's falls by the same.
func (s *LedgerService) CreatePayment(ctx context.Context, userID string, in PaymentInput) (*models.Payment, error) {
	if in.Amount <= 0 {
		return nil, validationf("amount must be positive")
	}
	if in.ToUserID == "" {
		return nil, validationf("to_user_id is required")
	}
	if in.ToUserID == userID {
		return nil, validationf("cannot record a payment to yourself")
	}
	if !models.ValidPaymentMethod(in.Method) {
		return nil, validationf("unknown payment method %q", in.Method)
	}
	if _, err := s.store.GetGroup(ctx, in.GroupID); err != nil {
		return nil, mapStorageErr(err)
	}

	payment := &models.Payment{
		GroupID:     in.GroupID,
		FromUserID:  userID,
		ToUserID:    in.ToUserID,
		Amount:      in.Amount,
		Description: in.Description,
		Notes:       in.Notes,
		Method:      in.Method,
		Date:        in.Date,
	}

	err := s.store.Ledger(ctx, func(tx storage.LedgerTx) error {
		active, err := tx.ListActiveMembers(ctx, in.GroupID)
		if err != nil {
			return err
		}
		activeSet := memberSet(active)
		if !activeSet[userID] {
			return ErrForbidden
		}
		if !activeSet[in.ToUserID] {
			return validationf("recipient is not an active member of the group")
		}

		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		return tx.ApplyDeltas(ctx, in.GroupID, paymentDeltas(userID, in.ToUserID, in.Amount))
	})
	if err != nil {
		slog.Error("CreatePayment failed", "group_id", in.GroupID, "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("Payment created", "payment_id", payment.ID, "group_id", in.GroupID, "amount", in.Amount)
	return payment, nil
}

// GetPayment retrieves a payment, visible to any member of its group.
func (s *LedgerService) GetPayment(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if err := s.requireMember(ctx, payment.GroupID, userID); err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdatePayment edits a payment. Only the sender may edit, and the recipient
// cannot change. An amount change shifts both balances by the difference.
func (s *LedgerService) UpdatePayment(ctx context.Context, userID, paymentID string, upd PaymentUpdate) (*models.Payment, error) {
	var updated *models.Payment
	err := s.store.Ledger(ctx, func(tx storage.LedgerTx) error {
		old, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return mapStorageErr(err)
		}
		if old.FromUserID != userID {
			return ErrForbidden
		}

		next := *old
		if upd.Description != nil {
			next.Description = *upd.Description
		}
		if upd.Notes != nil {
			next.Notes = *upd.Notes
		}
		if upd.Method != nil {
			if !models.ValidPaymentMethod(*upd.Method) {
				return validationf("unknown payment method %q", *upd.Method)
			}
			next.Method = *upd.Method
		}
		if upd.Date != nil {
			next.Date = *upd.Date
		}
		if upd.Amount != nil {
			if *upd.Amount <= 0 {
				return validationf("amount must be positive")
			}
			next.Amount = *upd.Amount
		}

		if err := tx.UpdatePayment(ctx, &next); err != nil {
			return mapStorageErr(err)
		}
		if diff := next.Amount - old.Amount; diff != 0 {
			if err := tx.ApplyDeltas(ctx, old.GroupID, paymentDeltas(old.FromUserID, old.ToUserID, diff)); err != nil {
				return err
			}
		}
		updated = &next
		return nil
	})
	if err != nil {
		slog.Error("UpdatePayment failed", "payment_id", paymentID, "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("Payment updated", "payment_id", paymentID, "amount", updated.Amount)
	return updated, nil
}

// DeletePayment removes a payment and reverses its balance effect. Only the
// sender may delete.
func (s *LedgerService) DeletePayment(ctx context.Context, userID, paymentID string) error {
	err := s.store.Ledger(ctx, func(tx storage.LedgerTx) error {
		old, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return mapStorageErr(err)
		}
		if old.FromUserID != userID {
			return ErrForbidden
		}
		if err := tx.DeletePayment(ctx, paymentID); err != nil {
			return mapStorageErr(err)
		}
		return tx.ApplyDeltas(ctx, old.GroupID, paymentDeltas(old.FromUserID, old.ToUserID, -old.Amount))
	})
	if err != nil {
		slog.Error("DeletePayment failed", "payment_id", paymentID, "user_id", userID, "error", err)
		return err
	}

	slog.Info("Payment deleted", "payment_id", paymentID)
	return nil
}

// GetFeed returns the group's merged activity feed, newest first. Any member
// of the group may read it.
func (s *LedgerService) GetFeed(ctx context.Context, userID, groupID string) ([]models.FeedItem, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		slog.Error("GetFeed failed", "group_id", groupID, "error", err)
		return nil, err
	}
	payments, err := s.store.ListPaymentsByGroup(ctx, groupID)
	if err != nil {
		slog.Error("GetFeed failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return ledger.MergeFeed(expenses, payments), nil
}

// requireMember verifies that userID is an active member of groupID.
func (s *LedgerService) requireMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return mapStorageErr(err)
	}
	member, err := s.store.GetMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !member.Active {
		return ErrForbidden
	}
	return nil
}

// validateShares checks a caller-supplied share set against the expense
// amount and the group's active member set. The payer must appear in the
// shares (possibly with a zero amount) for the contributions to balance.
func validateShares(payerID string, amount int64, shares []models.Share, activeSet map[string]bool) error {
	seen := make(map[string]bool, len(shares))
	var sum int64
	for _, sh := range shares {
		if sh.Amount < 0 {
			return validationf("share for %s is negative", sh.UserID)
		}
		if seen[sh.UserID] {
			return validationf("duplicate share for %s", sh.UserID)
		}
		seen[sh.UserID] = true
		if !activeSet[sh.UserID] {
			return validationf("%s is not an active member of the group", sh.UserID)
		}
		sum += sh.Amount
	}
	if sum != amount {
		return validationf("shares sum to %d, expected %d", sum, amount)
	}
	if !seen[payerID] {
		return validationf("the payer must hold a share (it may be zero)")
	}
	return nil
}

// paymentDeltas is the balance effect of moving amount from the sender to
// the recipient: the sender is owed more, the recipient owes more.
func paymentDeltas(fromUserID, toUserID string, amount int64) []models.Share {
	return []models.Share{
		{UserID: fromUserID, Amount: amount},
		{UserID: toUserID, Amount: -amount},
	}
}

func memberSet(members []models.Member) map[string]bool {
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m.UserID] = true
	}
	return set
}

func memberIDs(members []models.Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}

func shareUserIDs(shares []models.Share) []string {
	ids := make([]string, len(shares))
	for i, sh := range shares {
		ids[i] = sh.UserID
	}
	return ids
}

// mapStorageErr converts storage sentinels to service-level errors.
func mapStorageErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
