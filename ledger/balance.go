package ledger

import (
	"sort"

	"github.com/google/uuid"

	"splitcircle-backend/models"
)

// NetBalances folds a circle's full expense and settlement history into one
// signed balance per member: positive means owed, negative means owes. The
// fold is order-independent and recomputed from scratch on every call, so an
// edit or removal can never leave a stale aggregate behind. The circle's
// balances always sum to zero within Epsilon because each accepted expense
// reconciles and each settlement moves equal amounts in opposite directions.
func NetBalances(circle *models.ExpenseCircle) []models.NetBalance {
	balances := make(map[uuid.UUID]float64, len(circle.Members))
	for _, m := range circle.Members {
		balances[m.UserID] = 0
	}

	for _, exp := range circle.Expenses {
		balances[exp.PaidBy] += exp.Amount
		for _, s := range exp.Splits {
			balances[s.MemberID] -= s.Amount
		}
	}

	for _, s := range circle.Settlements {
		// A recorded payment raises the payer toward zero and lowers the
		// payee toward zero; the sum across the circle is unchanged.
		balances[s.PaidBy] += s.Amount
		balances[s.PaidTo] -= s.Amount
	}

	result := make([]models.NetBalance, 0, len(balances))
	for id, bal := range balances {
		result = append(result, models.NetBalance{
			MemberID: id,
			Balance:  round2(bal),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MemberID.String() < result[j].MemberID.String()
	})
	return result
}

// TotalSpent sums the circle's expense amounts.
func TotalSpent(circle *models.ExpenseCircle) float64 {
	var total float64
	for _, exp := range circle.Expenses {
		total += exp.Amount
	}
	return round2(total)
}
