package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tallyup/tally/internal/ledger"
	"github.com/tallyup/tally/internal/models"
	"github.com/tallyup/tally/internal/storage"
	"github.com/tallyup/tally/internal/storage/sqlite"
)

func setupTestStore(t *testing.T) storage.Store {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tally-service-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store storage.Store, name string) *models.User {
	t.Helper()
	user := models.NewUser(name+"@example.com", name, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", name, err)
	}
	return user
}

// setupGroup creates a group owned by the first user with all users as
// active members.
func setupGroup(t *testing.T, store storage.Store, users ...*models.User) *models.Group {
	t.Helper()
	ctx := context.Background()

	groups := NewGroupService(store)
	group, err := groups.CreateGroup(ctx, users[0].ID, "Trip", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, u := range users[1:] {
		if _, err := groups.JoinGroup(ctx, u.ID, group.JoinCode); err != nil {
			t.Fatalf("JoinGroup(%s) failed: %v", u.Name, err)
		}
	}
	return group
}

func balanceOf(t *testing.T, store storage.Store, groupID, userID string) int64 {
	t.Helper()
	member, err := store.GetMember(context.Background(), groupID, userID)
	if err != nil {
		t.Fatalf("GetMember(%s) failed: %v", userID, err)
	}
	return member.Balance
}

// assertZeroSum checks the group invariant: active balances sum to zero.
func assertZeroSum(t *testing.T, store storage.Store, groupID string) {
	t.Helper()
	members, err := store.ListActiveMembers(context.Background(), groupID)
	if err != nil {
		t.Fatalf("ListActiveMembers failed: %v", err)
	}
	var sum int64
	for _, m := range members {
		sum += m.Balance
	}
	if sum != 0 {
		t.Errorf("active balances sum to %d, want 0", sum)
	}
}

// assertBalancesMatch checks that each member's balance equals the expected
// contribution for them (zero if absent).
func assertBalancesMatch(t *testing.T, store storage.Store, groupID string, want []models.Share) {
	t.Helper()
	wantByUser := make(map[string]int64, len(want))
	for _, w := range want {
		wantByUser[w.UserID] = w.Amount
	}
	members, err := store.ListActiveMembers(context.Background(), groupID)
	if err != nil {
		t.Fatalf("ListActiveMembers failed: %v", err)
	}
	for _, m := range members {
		if m.Balance != wantByUser[m.UserID] {
			t.Errorf("balance[%s] = %d, want %d", m.UserID, m.Balance, wantByUser[m.UserID])
		}
	}
}

func TestCreateExpenseEqualSplit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	carol := createUser(t, store, "carol")
	group := setupGroup(t, store, alice, bob, carol)

	svc := NewLedgerService(store)
	expense, err := svc.CreateExpense(ctx, alice.ID, ExpenseInput{
		GroupID:     group.ID,
		Amount:      1000,
		Description: "Dinner",
		Category:    "restaurants",
		Date:        100,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if len(expense.Shares) != 3 {
		t.Fatalf("got %d shares, want 3", len(expense.Shares))
	}
	var sum int64
	for _, sh := range expense.Shares {
		sum += sh.Amount
	}
	if sum != 1000 {
		t.Errorf("shares sum to %d, want 1000", sum)
	}

	assertZeroSum(t, store, group.ID)
	assertBalancesMatch(t, store, group.ID, ledger.Contributions(alice.ID, 1000, expense.Shares))

	if got := balanceOf(t, store, group.ID, alice.ID); got < 666 || got > 667 {
		t.Errorf("payer balance = %d, want 666 or 667", got)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	carol := createUser(t, store, "carol")
	group := setupGroup(t, store, alice, bob, carol)

	svc := NewLedgerService(store)

	expense, err := svc.CreateExpense(ctx, alice.ID, ExpenseInput{
		GroupID:     group.ID,
		Amount:      1000,
		Description: "Dinner",
		Date:        100,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	// Shrink the amount; shares are re-split among the same holders.
	newAmount := int64(700)
	updated, err := svc.UpdateExpense(ctx, alice.ID, expense.ID, ExpenseUpdate{Amount: &newAmount})
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}
	if updated.Amount != 700 {
		t.Errorf("amount = %d, want 700", updated.Amount)
	}

	assertZeroSum(t, store, group.ID)
	assertBalancesMatch(t, store, group.ID, ledger.Contributions(alice.ID, 700, updated.Shares))

	// Deleting reverses everything; the ledger returns to zero.
	if err := svc.DeleteExpense(ctx, alice.ID, expense.ID); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	for _, u := range []*models.User{alice, bob, carol} {
		if got := balanceOf(t, store, group.ID, u.ID); got != 0 {
			t.Errorf("balance[%s] = %d after delete, want 0", u.Name, got)
		}
	}

	if _, err := svc.GetExpense(ctx, alice.ID, expense.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetExpense after delete = %v, want ErrNotFound", err)
	}
}

func TestUpdateExpenseMetadataOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	group := setupGroup(t, store, alice, bob)

	svc := NewLedgerService(store)
	expense, err := svc.CreateExpense(ctx, alice.ID, ExpenseInput{
		GroupID:     group.ID,
		Amount:      500,
		Description: "Groceries",
		Date:        100,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	before := balanceOf(t, store, group.ID, alice.ID)

	desc := "Weekly groceries"
	notes := "receipt in drive"
	if _, err := svc.UpdateExpense(ctx, alice.ID, expense.ID, ExpenseUpdate{
		Description: &desc,
		Notes:       &notes,
	}); err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}

	if got := balanceOf(t, store, group.ID, alice.ID); got != before {
		t.Errorf("balance changed on metadata-only edit: %d -> %d", before, got)
	}

	updated, err := svc.GetExpense(ctx, alice.ID, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if updated.Description != "Weekly groceries" || updated.Notes != "receipt in drive" {
		t.Errorf("metadata not updated: %+v", updated)
	}
}

func TestExpenseAuthorization(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	outsider := createUser(t, store, "mallory")
	group := setupGroup(t, store, alice, bob)

	svc := NewLedgerService(store)
	expense, err := svc.CreateExpense(ctx, alice.ID, ExpenseInput{
		GroupID:     group.ID,
		Amount:      500,
		Description: "Groceries",
		Date:        100,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	before := balanceOf(t, store, group.ID, alice.ID)

	t.Run("non-payer cannot edit", func(t *testing.T) {
		amount := int64(900)
		_, err := svc.UpdateExpense(ctx, bob.ID, expense.ID, ExpenseUpdate{Amount: &amount})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("UpdateExpense by non-payer = %v, want ErrForbidden", err)
		}
	})

	t.Run("non-payer cannot delete", func(t *testing.T) {
		if err := svc.DeleteExpense(ctx, bob.ID, expense.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("DeleteExpense by non-payer = %v, want ErrForbidden", err)
		}
	})

	t.Run("non-member cannot create", func(t *testing.T) {
		_, err := svc.CreateExpense(ctx, outsider.ID, ExpenseInput{
			GroupID:     group.ID,
			Amount:      100,
			Description: "sneaky",
		})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("CreateExpense by non-member = %v, want ErrForbidden", err)
		}
	})

	t.Run("non-member cannot read", func(t *testing.T) {
		if _, err := svc.GetExpense(ctx, outsider.ID, expense.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("GetExpense by non-member = %v, want ErrForbidden", err)
		}
	})

	// Failed attempts leave balances untouched.
	if got := balanceOf(t, store, group.ID, alice.ID); got != before {
		t.Errorf("balance changed after rejected operations: %d -> %d", before, got)
	}
	assertZeroSum(t, store, group.ID)
}

func TestCreateExpenseCustomShares(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	outsider := createUser(t, store, "mallory")
	group := setupGroup(t, store, alice, bob)

	svc := NewLedgerService(store)

	t.Run("valid custom shares", func(t *testing.T) {
		expense, err := svc.CreateExpense(ctx, alice.ID, ExpenseInput{
			GroupID:     group.ID,
			Amount:      1000,
			Description: "Uneven dinner",
			Shares: []models.Share{
				{UserID: alice.ID, Amount: 250},
				{UserID: bob.ID, Amount: 750},
			},
		})
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if got := balanceOf(t, store, group.ID, alice.ID); got != 750 {
			t.Errorf("payer balance = %d, want 750", got)
		}
		if got := balanceOf(t, store, group.ID, bob.ID); got != -750 {
			t.Errorf("bob balance = %d, want -750", got)
		}
		if err := svc.DeleteExpense(ctx, alice.ID, expense.ID); err != nil {
			t.Fatalf("cleanup delete failed: %v", err)
		}
	})

	invalid := []struct {
		name   string
		shares []models.Share
	}{
		{
			name: "shares do not sum to amount",
			shares: []models.Share{
				{UserID: alice.ID, Amount: 100},
				{UserID: bob.ID, Amount: 100},
			},
		},
		{
			name: "share for non-member",
			shares: []models.Share{
				{UserID: alice.ID, Amount: 500},
				{UserID: outsider.ID, Amount: 500},
			},
		},
		{
			name: "payer missing from shares",
			shares: []models.Share{
				{UserID: bob.ID, Amount: 1000},
			},
		},
		{
			name: "duplicate user",
			shares: []models.Share{
				{UserID: alice.ID, Amount: 500},
				{UserID: alice.ID, Amount: 500},
			},
		},
		{
			name: "negative share",
			shares: []models.Share{
				{UserID: alice.ID, Amount: 1200},
				{UserID: bob.ID, Amount: -200},
			},
		},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateExpense(ctx, alice.ID, ExpenseInput{
				GroupID:     group.ID,
				Amount:      1000,
				Description: "bad shares",
				Shares:      tc.shares,
			})
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("CreateExpense = %v, want ValidationError", err)
			}
		})
	}

	// Nothing stuck to the ledger.
	if got := balanceOf(t, store, group.ID, alice.ID); got != 0 {
		t.Errorf("balance = %d after rejected creates, want 0", got)
	}
}

func TestSoloGroupExpense(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	group := setupGroup(t, store, alice)

	svc := NewLedgerService(store)
	expense, err := svc.CreateExpense(ctx, alice.ID, ExpenseInput{
		GroupID:     group.ID,
		Amount:      999,
		Description: "Solo lunch",
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	// The sole member carries the whole share, so no balance moves.
	if len(expense.Shares) != 1 || expense.Shares[0].Amount != 999 {
		t.Errorf("shares = %+v, want one share of 999", expense.Shares)
	}
	if got := balanceOf(t, store, group.ID, alice.ID); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	group := setupGroup(t, store, alice, bob)

	svc := NewLedgerService(store)

	payment, err := svc.CreatePayment(ctx, bob.ID, PaymentInput{
		GroupID:     group.ID,
		ToUserID:    alice.ID,
		Amount:      300,
		Description: "settle up",
		Method:      "Venmo",
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	if got := balanceOf(t, store, group.ID, bob.ID); got != 300 {
		t.Errorf("sender balance = %d, want 300", got)
	}
	if got := balanceOf(t, store, group.ID, alice.ID); got != -300 {
		t.Errorf("recipient balance = %d, want -300", got)
	}
	assertZeroSum(t, store, group.ID)

	// Raising the amount shifts both balances by the difference.
	newAmount := int64(500)
	if _, err := svc.UpdatePayment(ctx, bob.ID, payment.ID, PaymentUpdate{Amount: &newAmount}); err != nil {
		t.Fatalf("UpdatePayment failed: %v", err)
	}
	if got := balanceOf(t, store, group.ID, bob.ID); got != 500 {
		t.Errorf("sender balance = %d after update, want 500", got)
	}
	if got := balanceOf(t, store, group.ID, alice.ID); got != -500 {
		t.Errorf("recipient balance = %d after update, want -500", got)
	}

	t.Run("only the sender may edit", func(t *testing.T) {
		amount := int64(1)
		if _, err := svc.UpdatePayment(ctx, alice.ID, payment.ID, PaymentUpdate{Amount: &amount}); !errors.Is(err, ErrForbidden) {
			t.Errorf("UpdatePayment by recipient = %v, want ErrForbidden", err)
		}
	})

	if err := svc.DeletePayment(ctx, bob.ID, payment.ID); err != nil {
		t.Fatalf("DeletePayment failed: %v", err)
	}
	if got := balanceOf(t, store, group.ID, bob.ID); got != 0 {
		t.Errorf("sender balance = %d after delete, want 0", got)
	}
	if got := balanceOf(t, store, group.ID, alice.ID); got != 0 {
		t.Errorf("recipient balance = %d after delete, want 0", got)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	outsider := createUser(t, store, "mallory")
	group := setupGroup(t, store, alice, bob)

	svc := NewLedgerService(store)

	tests := []struct {
		name string
		in   PaymentInput
	}{
		{
			name: "self payment",
			in:   PaymentInput{GroupID: group.ID, ToUserID: alice.ID, Amount: 100},
		},
		{
			name: "zero amount",
			in:   PaymentInput{GroupID: group.ID, ToUserID: bob.ID, Amount: 0},
		},
		{
			name: "recipient not a member",
			in:   PaymentInput{GroupID: group.ID, ToUserID: outsider.ID, Amount: 100},
		},
		{
			name: "unknown method",
			in:   PaymentInput{GroupID: group.ID, ToUserID: bob.ID, Amount: 100, Method: "IOU"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePayment(ctx, alice.ID, tc.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("CreatePayment = %v, want ValidationError", err)
			}
		})
	}

	if got := balanceOf(t, store, group.ID, alice.ID); got != 0 {
		t.Errorf("balance = %d after rejected payments, want 0", got)
	}
}

func TestGetFeed(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	outsider := createUser(t, store, "mallory")
	group := setupGroup(t, store, alice, bob)

	svc := NewLedgerService(store)

	if _, err := svc.CreateExpense(ctx, alice.ID, ExpenseInput{
		GroupID:     group.ID,
		Amount:      1000,
		Description: "Dinner",
	}); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if _, err := svc.CreatePayment(ctx, bob.ID, PaymentInput{
		GroupID:  group.ID,
		ToUserID: alice.ID,
		Amount:   500,
	}); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	feed, err := svc.GetFeed(ctx, alice.ID, group.ID)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed has %d items, want 2", len(feed))
	}

	kinds := map[models.FeedKind]int{}
	for i, item := range feed {
		kinds[item.Kind]++
		if i > 0 && item.CreatedAt() > feed[i-1].CreatedAt() {
			t.Errorf("feed not in descending order at index %d", i)
		}
	}
	if kinds[models.FeedExpense] != 1 || kinds[models.FeedPayment] != 1 {
		t.Errorf("feed kinds = %v, want one expense and one payment", kinds)
	}

	if _, err := svc.GetFeed(ctx, outsider.ID, group.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("GetFeed by non-member = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetFeed(ctx, alice.ID, "grp_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFeed for missing group = %v, want ErrNotFound", err)
	}
}
