package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitcircle-backend/models"
)

// tripCircle is three friends on a Goa trip: the villa paid by alice, dinner
// by bob, a scooter rental by carol, everything split equally.
func tripCircle() *models.ExpenseCircle {
	circleID := uuid.New()
	circle := &models.ExpenseCircle{
		ID:       circleID,
		Name:     "Goa Trip",
		Currency: "INR",
		Members: []models.CircleMember{
			{CircleID: circleID, UserID: alice},
			{CircleID: circleID, UserID: bob},
			{CircleID: circleID, UserID: carol},
		},
	}
	circle.Expenses = []models.SharedExpense{
		equalExpense(circleID, alice, "Villa", 15000),
		equalExpense(circleID, bob, "Dinner", 4500),
		equalExpense(circleID, carol, "Scooter rental", 3000),
	}
	return circle
}

func equalExpense(circleID, paidBy uuid.UUID, description string, amount float64) models.SharedExpense {
	splits, err := CalculateSplits(amount, SplitEqual, members(alice, bob, carol))
	if err != nil {
		panic(err)
	}
	return models.SharedExpense{
		ID:          uuid.New(),
		CircleID:    circleID,
		PaidBy:      paidBy,
		Description: description,
		Amount:      amount,
		Currency:    "INR",
		SplitType:   SplitEqual,
		Splits:      splits,
	}
}

func balanceOf(t *testing.T, balances []models.NetBalance, id uuid.UUID) float64 {
	t.Helper()
	for _, b := range balances {
		if b.MemberID == id {
			return b.Balance
		}
	}
	t.Fatalf("no balance for %s", id)
	return 0
}

func TestNetBalancesTrip(t *testing.T) {
	balances := NetBalances(tripCircle())
	require.Len(t, balances, 3)

	assert.Equal(t, 7500.0, balanceOf(t, balances, alice))
	assert.Equal(t, -3000.0, balanceOf(t, balances, bob))
	assert.Equal(t, -4500.0, balanceOf(t, balances, carol))
}

func TestNetBalancesSumToZero(t *testing.T) {
	var total float64
	for _, b := range NetBalances(tripCircle()) {
		total += b.Balance
	}
	assert.InDelta(t, 0, total, Epsilon)
}

func TestNetBalancesOrderIndependent(t *testing.T) {
	circle := tripCircle()
	reversed := tripCircle()
	reversed.Expenses = []models.SharedExpense{
		circle.Expenses[2], circle.Expenses[0], circle.Expenses[1],
	}

	assert.Equal(t, NetBalances(circle), NetBalances(reversed))
}

func TestNetBalancesMemberWithNoActivity(t *testing.T) {
	circleID := uuid.New()
	circle := &models.ExpenseCircle{
		ID: circleID,
		Members: []models.CircleMember{
			{CircleID: circleID, UserID: alice},
			{CircleID: circleID, UserID: bob},
		},
	}
	balances := NetBalances(circle)
	require.Len(t, balances, 2)
	assert.Equal(t, 0.0, balances[0].Balance)
	assert.Equal(t, 0.0, balances[1].Balance)
}

func TestSettlementFoldsIntoBalances(t *testing.T) {
	circle := tripCircle()
	circle.Settlements = append(circle.Settlements, models.Settlement{
		ID:       uuid.New(),
		CircleID: circle.ID,
		PaidBy:   carol,
		PaidTo:   alice,
		Amount:   4500,
	})

	balances := NetBalances(circle)
	assert.Equal(t, 3000.0, balanceOf(t, balances, alice))
	assert.Equal(t, -3000.0, balanceOf(t, balances, bob))
	assert.Equal(t, 0.0, balanceOf(t, balances, carol))
}

func TestFullySettledCircleIsFlat(t *testing.T) {
	circle := tripCircle()
	circle.Settlements = []models.Settlement{
		{ID: uuid.New(), CircleID: circle.ID, PaidBy: carol, PaidTo: alice, Amount: 4500},
		{ID: uuid.New(), CircleID: circle.ID, PaidBy: bob, PaidTo: alice, Amount: 3000},
	}

	for _, b := range NetBalances(circle) {
		assert.InDelta(t, 0, b.Balance, Epsilon)
	}
	assert.Empty(t, SettlementPlan(NetBalances(circle)))
}

func TestTotalSpent(t *testing.T) {
	assert.Equal(t, 22500.0, TotalSpent(tripCircle()))
}
