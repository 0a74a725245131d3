package ledger

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"splitcircle-backend/models"
)

// SettlementPlan reduces a balance vector to pairwise transfers using greedy
// two-pointer matching: debtors sorted most-negative first, creditors sorted
// most-positive first, repeatedly settling min(|debt|, credit) and advancing
// whichever side reached zero. Members already within Epsilon of zero are
// excluded up front.
//
// The plan is deterministic (ties broken by member id), emits at most
// len(debtors)+len(creditors)-1 transfers, and applying every transfer brings
// all balances within Epsilon of zero. It is a heuristic: the true minimum
// transfer count is a subset-sum problem, deliberately not solved here.
func SettlementPlan(balances []models.NetBalance) []models.SettlementSuggestion {
	var debtors, creditors []models.NetBalance
	for _, b := range balances {
		switch {
		case b.Balance < -Epsilon:
			debtors = append(debtors, b)
		case b.Balance > Epsilon:
			creditors = append(creditors, b)
		}
	}

	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].Balance != debtors[j].Balance {
			return debtors[i].Balance < debtors[j].Balance
		}
		return debtors[i].MemberID.String() < debtors[j].MemberID.String()
	})
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].Balance != creditors[j].Balance {
			return creditors[i].Balance > creditors[j].Balance
		}
		return creditors[i].MemberID.String() < creditors[j].MemberID.String()
	})

	var plan []models.SettlementSuggestion
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		owed := -debtors[i].Balance
		due := creditors[j].Balance
		amount := round2(math.Min(owed, due))

		if amount > Epsilon {
			plan = append(plan, models.SettlementSuggestion{
				From:   debtors[i].MemberID,
				To:     creditors[j].MemberID,
				Amount: amount,
			})
		}

		debtors[i].Balance = round2(debtors[i].Balance + amount)
		creditors[j].Balance = round2(creditors[j].Balance - amount)

		if -debtors[i].Balance <= Epsilon {
			i++
		}
		if creditors[j].Balance <= Epsilon {
			j++
		}
	}
	return plan
}

// OutstandingEdge returns the suggested transfer from debtor to creditor in
// the given plan, or nil when no such edge is outstanding.
func OutstandingEdge(plan []models.SettlementSuggestion, from, to uuid.UUID) *models.SettlementSuggestion {
	for i := range plan {
		if plan[i].From == from && plan[i].To == to {
			return &plan[i]
		}
	}
	return nil
}
