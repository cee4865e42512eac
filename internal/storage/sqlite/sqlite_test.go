package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tallyup/tally/internal/models"
	"github.com/tallyup/tally/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tally-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *SQLiteStore, name string) *models.User {
	t.Helper()
	user := models.NewUser(name+"@example.com", name, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", name, err)
	}
	return user
}

func createTestGroup(t *testing.T, store *SQLiteStore, owner *models.User, members ...*models.User) *models.Group {
	t.Helper()
	ctx := context.Background()
	group := &models.Group{Name: "Trip", OwnerID: owner.ID, JoinCode: models.NewID("join")}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, m := range members {
		if err := store.AddMember(ctx, group.ID, m.ID); err != nil {
			t.Fatalf("AddMember(%s) failed: %v", m.Name, err)
		}
	}
	return group
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")

	t.Run("GetUserByEmail", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != alice.ID {
			t.Errorf("ID = %s, want %s", got.ID, alice.ID)
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := models.NewUser("alice@example.com", "alice2", "hash")
		if err := store.CreateUser(ctx, dup); err != storage.ErrDuplicate {
			t.Errorf("CreateUser with duplicate email = %v, want ErrDuplicate", err)
		}
	})

	t.Run("unknown user is ErrNotFound", func(t *testing.T) {
		if _, err := store.GetUserByID(ctx, "usr_missing"); err != storage.ErrNotFound {
			t.Errorf("GetUserByID = %v, want ErrNotFound", err)
		}
	})
}

func TestGroupMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	group := createTestGroup(t, store, alice, bob)

	t.Run("owner is an active member with zero balance", func(t *testing.T) {
		member, err := store.GetMember(ctx, group.ID, alice.ID)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if !member.Active || member.Balance != 0 {
			t.Errorf("owner member = %+v, want active with zero balance", member)
		}
	})

	t.Run("double join rejected", func(t *testing.T) {
		if err := store.AddMember(ctx, group.ID, bob.ID); err != storage.ErrDuplicate {
			t.Errorf("AddMember twice = %v, want ErrDuplicate", err)
		}
	})

	t.Run("lookup by join code", func(t *testing.T) {
		got, err := store.GetGroupByJoinCode(ctx, group.JoinCode)
		if err != nil {
			t.Fatalf("GetGroupByJoinCode failed: %v", err)
		}
		if got.ID != group.ID {
			t.Errorf("ID = %s, want %s", got.ID, group.ID)
		}
	})

	t.Run("leave freezes the row and rejoin reactivates it", func(t *testing.T) {
		err := store.Ledger(ctx, func(tx storage.LedgerTx) error {
			return tx.DeactivateMember(ctx, group.ID, bob.ID)
		})
		if err != nil {
			t.Fatalf("DeactivateMember failed: %v", err)
		}

		member, err := store.GetMember(ctx, group.ID, bob.ID)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if member.Active {
			t.Error("member still active after leave")
		}

		active, err := store.ListActiveMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListActiveMembers failed: %v", err)
		}
		if len(active) != 1 {
			t.Errorf("ListActiveMembers returned %d members, want 1", len(active))
		}
		all, err := store.ListMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("ListMembers returned %d members, want 2 (frozen row kept)", len(all))
		}

		if err := store.AddMember(ctx, group.ID, bob.ID); err != nil {
			t.Fatalf("rejoin failed: %v", err)
		}
		member, _ = store.GetMember(ctx, group.ID, bob.ID)
		if !member.Active {
			t.Error("member not reactivated after rejoin")
		}
	})

	t.Run("ListGroupsByUser sees only active memberships", func(t *testing.T) {
		groups, err := store.ListGroupsByUser(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListGroupsByUser failed: %v", err)
		}
		if len(groups) != 1 || groups[0].ID != group.ID {
			t.Errorf("groups = %+v, want just %s", groups, group.ID)
		}
	})
}

func TestLedgerTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	group := createTestGroup(t, store, alice, bob)

	t.Run("expense insert and deltas commit together", func(t *testing.T) {
		expense := &models.Expense{
			GroupID:     group.ID,
			PayerID:     alice.ID,
			Amount:      1000,
			Description: "Dinner",
			Date:        100,
			Shares: []models.Share{
				{UserID: alice.ID, Amount: 500},
				{UserID: bob.ID, Amount: 500},
			},
		}
		err := store.Ledger(ctx, func(tx storage.LedgerTx) error {
			if err := tx.InsertExpense(ctx, expense); err != nil {
				return err
			}
			return tx.ApplyDeltas(ctx, group.ID, []models.Share{
				{UserID: alice.ID, Amount: 500},
				{UserID: bob.ID, Amount: -500},
			})
		})
		if err != nil {
			t.Fatalf("Ledger failed: %v", err)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Amount != 1000 || len(got.Shares) != 2 {
			t.Errorf("expense = %+v, want amount 1000 with 2 shares", got)
		}

		assertBalance(t, store, group.ID, alice.ID, 500)
		assertBalance(t, store, group.ID, bob.ID, -500)
	})

	t.Run("an error rolls everything back", func(t *testing.T) {
		payment := &models.Payment{
			GroupID:     group.ID,
			FromUserID:  bob.ID,
			ToUserID:    alice.ID,
			Amount:      500,
			Description: "settle up",
			Date:        200,
		}
		err := store.Ledger(ctx, func(tx storage.LedgerTx) error {
			if err := tx.InsertPayment(ctx, payment); err != nil {
				return err
			}
			if err := tx.ApplyDeltas(ctx, group.ID, []models.Share{
				{UserID: bob.ID, Amount: 500},
				{UserID: alice.ID, Amount: -500},
			}); err != nil {
				return err
			}
			// Simulate a failing write after the deltas were issued.
			return tx.DeletePayment(ctx, "pay_missing")
		})
		if err != storage.ErrNotFound {
			t.Fatalf("Ledger = %v, want ErrNotFound", err)
		}

		if _, err := store.GetPayment(ctx, payment.ID); err != storage.ErrNotFound {
			t.Errorf("payment persisted despite rollback: err = %v", err)
		}
		assertBalance(t, store, group.ID, alice.ID, 500)
		assertBalance(t, store, group.ID, bob.ID, -500)
	})

	t.Run("deltas skip inactive members silently", func(t *testing.T) {
		// Settle bob so he can leave, then apply a delta aimed at him.
		err := store.Ledger(ctx, func(tx storage.LedgerTx) error {
			if err := tx.ApplyDeltas(ctx, group.ID, []models.Share{
				{UserID: bob.ID, Amount: 500},
				{UserID: alice.ID, Amount: -500},
			}); err != nil {
				return err
			}
			return tx.DeactivateMember(ctx, group.ID, bob.ID)
		})
		if err != nil {
			t.Fatalf("settle-and-leave failed: %v", err)
		}

		err = store.Ledger(ctx, func(tx storage.LedgerTx) error {
			return tx.ApplyDeltas(ctx, group.ID, []models.Share{
				{UserID: bob.ID, Amount: 123},
			})
		})
		if err != nil {
			t.Fatalf("ApplyDeltas to inactive member errored: %v", err)
		}
		// Frozen, not mutated.
		assertBalance(t, store, group.ID, bob.ID, 0)
	})

	t.Run("positive amount enforced by schema", func(t *testing.T) {
		err := store.Ledger(ctx, func(tx storage.LedgerTx) error {
			return tx.InsertExpense(ctx, &models.Expense{
				GroupID:     group.ID,
				PayerID:     alice.ID,
				Amount:      -100,
				Description: "bad",
				Date:        1,
			})
		})
		if err == nil {
			t.Error("negative expense amount accepted by schema")
		}
	})
}

func TestListOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	group := createTestGroup(t, store, alice, bob)

	err := store.Ledger(ctx, func(tx storage.LedgerTx) error {
		for i, createdAt := range []int64{10, 30, 20} {
			expense := &models.Expense{
				GroupID:     group.ID,
				PayerID:     alice.ID,
				Amount:      100,
				Description: "e",
				Date:        int64(i),
				CreatedAt:   createdAt,
				Shares:      []models.Share{{UserID: alice.ID, Amount: 100}},
			}
			if err := tx.InsertExpense(ctx, expense); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("inserts failed: %v", err)
	}

	expenses, err := store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}
	if len(expenses) != 3 {
		t.Fatalf("got %d expenses, want 3", len(expenses))
	}
	for i := 1; i < len(expenses); i++ {
		if expenses[i].CreatedAt > expenses[i-1].CreatedAt {
			t.Errorf("expenses not in descending created_at order at index %d", i)
		}
	}
}

func TestComments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	group := createTestGroup(t, store, alice, bob)

	expense := &models.Expense{
		GroupID:     group.ID,
		PayerID:     alice.ID,
		Amount:      100,
		Description: "Coffee",
		Date:        1,
		Shares:      []models.Share{{UserID: alice.ID, Amount: 50}, {UserID: bob.ID, Amount: 50}},
	}
	err := store.Ledger(ctx, func(tx storage.LedgerTx) error {
		return tx.InsertExpense(ctx, expense)
	})
	if err != nil {
		t.Fatalf("InsertExpense failed: %v", err)
	}

	comment := &models.Comment{
		GroupID:   group.ID,
		UserID:    bob.ID,
		ExpenseID: expense.ID,
		Content:   "was this decaf?",
	}
	if err := store.CreateComment(ctx, comment); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	comments, err := store.ListCommentsByExpense(ctx, expense.ID)
	if err != nil {
		t.Fatalf("ListCommentsByExpense failed: %v", err)
	}
	if len(comments) != 1 || comments[0].Content != "was this decaf?" {
		t.Errorf("comments = %+v, want the one created", comments)
	}
	if comments[0].PaymentID != "" {
		t.Errorf("expense comment has payment_id %q", comments[0].PaymentID)
	}
}

func assertBalance(t *testing.T, store *SQLiteStore, groupID, userID string, want int64) {
	t.Helper()
	member, err := store.GetMember(context.Background(), groupID, userID)
	if err != nil {
		t.Fatalf("GetMember(%s) failed: %v", userID, err)
	}
	if member.Balance != want {
		t.Errorf("balance[%s] = %d, want %d", userID, member.Balance, want)
	}
}
