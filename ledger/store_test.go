package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitcircle-backend/models"
)

func newTripStore(t *testing.T) (*Store, *MemoryRepository, uuid.UUID) {
	t.Helper()
	repo := NewMemoryRepository()
	store := NewStore(repo)

	circle, err := store.CreateCircle(context.Background(), CreateCircleInput{
		ActorID:   alice,
		ActorName: "Alice",
		Name:      "Goa Trip",
		Currency:  "INR",
		MemberIDs: []uuid.UUID{bob, carol},
	})
	require.NoError(t, err)
	return store, repo, circle.ID
}

func addEqualExpense(t *testing.T, store *Store, circleID, paidBy uuid.UUID, description string, amount float64) *models.SharedExpense {
	t.Helper()
	expense, err := store.AppendExpense(context.Background(), circleID, ExpenseInput{
		ActorID:     paidBy,
		Description: description,
		Amount:      amount,
		PaidBy:      paidBy,
		SplitType:   SplitEqual,
	})
	require.NoError(t, err)
	return expense
}

func TestCreateCircleRoles(t *testing.T) {
	store, _, circleID := newTripStore(t)

	circle, err := store.Circle(context.Background(), circleID)
	require.NoError(t, err)
	require.Len(t, circle.Members, 3)

	admin := circle.Member(alice)
	require.NotNil(t, admin)
	assert.Equal(t, "admin", admin.Role)
	assert.Equal(t, "member", circle.Member(bob).Role)
	assert.Equal(t, "INR", circle.Currency)
	assert.Equal(t, SplitEqual, circle.DefaultSplitType)
}

func TestAppendExpenseDefaultsToWholeCircle(t *testing.T) {
	store, _, circleID := newTripStore(t)

	expense := addEqualExpense(t, store, circleID, alice, "Villa", 15000)
	require.Len(t, expense.Splits, 3)
	for _, s := range expense.Splits {
		assert.Equal(t, 5000.0, s.Amount)
	}
}

func TestTripBalancesAndPlan(t *testing.T) {
	store, _, circleID := newTripStore(t)
	addEqualExpense(t, store, circleID, alice, "Villa", 15000)
	addEqualExpense(t, store, circleID, bob, "Dinner", 4500)
	addEqualExpense(t, store, circleID, carol, "Scooter rental", 3000)

	bal, err := store.Balances(context.Background(), circleID)
	require.NoError(t, err)
	assert.Equal(t, 7500.0, balanceOf(t, bal, alice))
	assert.Equal(t, -3000.0, balanceOf(t, bal, bob))
	assert.Equal(t, -4500.0, balanceOf(t, bal, carol))

	plan, err := store.Plan(context.Background(), circleID)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	var planned float64
	for _, s := range plan {
		assert.Equal(t, alice, s.To)
		planned += s.Amount
	}
	assert.Equal(t, 7500.0, planned)
}

func TestBalancesIdempotent(t *testing.T) {
	store, _, circleID := newTripStore(t)
	addEqualExpense(t, store, circleID, alice, "Villa", 15000)

	first, err := store.Balances(context.Background(), circleID)
	require.NoError(t, err)
	second, err := store.Balances(context.Background(), circleID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRejectedExpenseLeavesCircleUntouched(t *testing.T) {
	store, _, circleID := newTripStore(t)
	addEqualExpense(t, store, circleID, alice, "Villa", 15000)

	_, err := store.AppendExpense(context.Background(), circleID, ExpenseInput{
		ActorID:     alice,
		Description: "Broken",
		Amount:      100,
		PaidBy:      alice,
		SplitType:   SplitExact,
		Participants: []Participant{
			{MemberID: bob, Weight: 60},
			{MemberID: carol, Weight: 25},
		},
	})
	require.ErrorIs(t, err, ErrSplitMismatch)

	circle, err := store.Circle(context.Background(), circleID)
	require.NoError(t, err)
	assert.Len(t, circle.Expenses, 1)

	bal, err := store.Balances(context.Background(), circleID)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, balanceOf(t, bal, alice))
}

func TestExpenseWithOutsiderRejected(t *testing.T) {
	store, _, circleID := newTripStore(t)
	stranger := uuid.New()

	_, err := store.AppendExpense(context.Background(), circleID, ExpenseInput{
		ActorID:      alice,
		Description:  "Lunch",
		Amount:       300,
		PaidBy:       alice,
		SplitType:    SplitEqual,
		Participants: members(alice, stranger),
	})
	require.ErrorIs(t, err, ErrUnknownMember)

	_, err = store.AppendExpense(context.Background(), circleID, ExpenseInput{
		ActorID:      alice,
		Description:  "Lunch",
		Amount:       300,
		PaidBy:       stranger,
		SplitType:    SplitEqual,
		Participants: members(alice, bob),
	})
	require.ErrorIs(t, err, ErrUnknownMember)
}

func TestEditExpenseReplacesWholesale(t *testing.T) {
	store, _, circleID := newTripStore(t)
	expense := addEqualExpense(t, store, circleID, alice, "Villa", 15000)

	updated, err := store.EditExpense(context.Background(), circleID, expense.ID, ExpenseInput{
		ActorID:      alice,
		Description:  "Villa (corrected)",
		Amount:       12000,
		PaidBy:       alice,
		SplitType:    SplitPercentage,
		Participants: weighted(alice, 50.0, bob, 50.0),
	})
	require.NoError(t, err)
	assert.Equal(t, expense.ID, updated.ID)
	require.Len(t, updated.Splits, 2)
	assert.Equal(t, 6000.0, updated.Splits[0].Amount)

	bal, err := store.Balances(context.Background(), circleID)
	require.NoError(t, err)
	assert.Equal(t, 6000.0, balanceOf(t, bal, alice))
	assert.Equal(t, -6000.0, balanceOf(t, bal, bob))
	assert.Equal(t, 0.0, balanceOf(t, bal, carol))
}

func TestEditRejectionKeepsOriginal(t *testing.T) {
	store, _, circleID := newTripStore(t)
	expense := addEqualExpense(t, store, circleID, alice, "Villa", 15000)

	_, err := store.EditExpense(context.Background(), circleID, expense.ID, ExpenseInput{
		ActorID:      alice,
		Description:  "Broken",
		Amount:       15000,
		PaidBy:       alice,
		SplitType:    SplitPercentage,
		Participants: weighted(alice, 70.0, bob, 20.0),
	})
	require.ErrorIs(t, err, ErrSplitMismatch)

	circle, err := store.Circle(context.Background(), circleID)
	require.NoError(t, err)
	require.Len(t, circle.Expenses, 1)
	assert.Equal(t, "Villa", circle.Expenses[0].Description)
	assert.Equal(t, 15000.0, circle.Expenses[0].Amount)
}

func TestEditMissingExpense(t *testing.T) {
	store, _, circleID := newTripStore(t)
	_, err := store.EditExpense(context.Background(), circleID, uuid.New(), ExpenseInput{
		ActorID:   alice,
		Amount:    10,
		PaidBy:    alice,
		SplitType: SplitEqual,
	})
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestRemoveExpenseRestoresBalances(t *testing.T) {
	store, _, circleID := newTripStore(t)
	expense := addEqualExpense(t, store, circleID, alice, "Villa", 15000)

	err := store.RemoveExpense(context.Background(), circleID, expense.ID, alice, "removed by Alice")
	require.NoError(t, err)

	bal, err := store.Balances(context.Background(), circleID)
	require.NoError(t, err)
	for _, b := range bal {
		assert.Equal(t, 0.0, b.Balance)
	}
}

func TestRemoveReferencedMemberBlocked(t *testing.T) {
	store, _, circleID := newTripStore(t)
	addEqualExpense(t, store, circleID, alice, "Villa", 15000)

	err := store.RemoveMember(context.Background(), circleID, alice, carol, "")
	require.ErrorIs(t, err, ErrMemberReferenced)

	circle, err := store.Circle(context.Background(), circleID)
	require.NoError(t, err)
	assert.Len(t, circle.Members, 3)
}

func TestRemoveUnreferencedMember(t *testing.T) {
	store, _, circleID := newTripStore(t)

	// Dinner between alice and bob only; carol has no history.
	_, err := store.AppendExpense(context.Background(), circleID, ExpenseInput{
		ActorID:      alice,
		Description:  "Dinner",
		Amount:       800,
		PaidBy:       alice,
		SplitType:    SplitEqual,
		Participants: members(alice, bob),
	})
	require.NoError(t, err)

	require.NoError(t, store.RemoveMember(context.Background(), circleID, alice, carol, ""))

	circle, err := store.Circle(context.Background(), circleID)
	require.NoError(t, err)
	assert.Len(t, circle.Members, 2)
	assert.False(t, circle.HasMember(carol))
}

func TestAddMemberTwiceRejected(t *testing.T) {
	store, _, circleID := newTripStore(t)
	err := store.AddMember(context.Background(), circleID, alice, bob, "")
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestRecordSettlementRequiresMembers(t *testing.T) {
	store, _, circleID := newTripStore(t)
	_, err := store.RecordSettlement(context.Background(), circleID, alice, uuid.New(), 100, "", "")
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestAuditTrailPerMutation(t *testing.T) {
	store, repo, circleID := newTripStore(t)
	expense := addEqualExpense(t, store, circleID, alice, "Villa", 15000)
	_, err := store.RecordSettlement(context.Background(), circleID, bob, alice, 3000, "UPI", "Bob paid Alice")
	require.NoError(t, err)
	require.NoError(t, store.RemoveExpense(context.Background(), circleID, expense.ID, alice, ""))

	entries := repo.AuditEntries(circleID)
	require.Len(t, entries, 4)
	assert.Equal(t, models.AuditCircleCreated, entries[0].Action)
	assert.Equal(t, models.AuditExpenseAdded, entries[1].Action)
	assert.Equal(t, models.AuditSettlementCreated, entries[2].Action)
	assert.Equal(t, models.AuditExpenseDeleted, entries[3].Action)
	assert.Equal(t, bob, entries[2].ActorID)
}

func TestRejectedMutationWritesNoAudit(t *testing.T) {
	store, repo, circleID := newTripStore(t)

	_, err := store.AppendExpense(context.Background(), circleID, ExpenseInput{
		ActorID:   alice,
		Amount:    -5,
		PaidBy:    alice,
		SplitType: SplitEqual,
	})
	require.Error(t, err)

	entries := repo.AuditEntries(circleID)
	require.Len(t, entries, 1) // circle creation only
}

// failingRepo rejects every expense append, standing in for a storage layer
// whose transaction rolls back.
type failingRepo struct {
	*MemoryRepository
}

var errStorage = errors.New("storage unavailable")

func (r *failingRepo) AppendExpense(ctx context.Context, expense *models.SharedExpense, entry *models.CircleAuditLog) error {
	return errStorage
}

func TestStorageFailureSurfacesAndMutatesNothing(t *testing.T) {
	repo := &failingRepo{MemoryRepository: NewMemoryRepository()}
	store := NewStore(repo)

	circle, err := store.CreateCircle(context.Background(), CreateCircleInput{
		ActorID:   alice,
		Name:      "Goa Trip",
		MemberIDs: []uuid.UUID{bob, carol},
	})
	require.NoError(t, err)

	_, err = store.AppendExpense(context.Background(), circle.ID, ExpenseInput{
		ActorID:   alice,
		Amount:    100,
		PaidBy:    alice,
		SplitType: SplitEqual,
	})
	require.ErrorIs(t, err, errStorage)

	loaded, err := store.Circle(context.Background(), circle.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Expenses)
	assert.Len(t, repo.AuditEntries(circle.ID), 1)
}

func TestLoadUnknownCircle(t *testing.T) {
	store := NewStore(NewMemoryRepository())
	_, err := store.Circle(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCircleNotFound)
}
