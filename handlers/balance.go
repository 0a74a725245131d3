package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitcircle-backend/database"
	"splitcircle-backend/ledger"
	"splitcircle-backend/models"
	"splitcircle-backend/utils"
)

// GET /api/circles/:id/balances
func GetCircleBalances(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	circleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid circle ID")
		return
	}

	if !isMember(circleID, userID) {
		utils.Forbidden(c, "You are not a member of this circle")
		return
	}

	circle, err := Ledger.Circle(c.Request.Context(), circleID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	balances := ledger.NetBalances(circle)
	plan := ledger.SettlementPlan(balances)
	attachNames(balances, plan, circle.Currency)

	summary := models.CircleBalanceSummary{
		CircleID:   circleID,
		CircleName: circle.Name,
		Balances:   balances,
		Plan:       plan,
		TotalSpent: ledger.TotalSpent(circle),
	}

	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// GET /api/circles/:id/settlement-plan
func GetSettlementPlan(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	circleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid circle ID")
		return
	}

	if !isMember(circleID, userID) {
		utils.Forbidden(c, "You are not a member of this circle")
		return
	}

	circle, err := Ledger.Circle(c.Request.Context(), circleID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	plan := ledger.SettlementPlan(ledger.NetBalances(circle))
	attachNames(nil, plan, circle.Currency)

	utils.SuccessResponse(c, http.StatusOK, "", plan)
}

// GET /api/balances — overall balances across all circles for current user
func GetOverallBalances(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var memberships []models.CircleMember
	database.DB.Where("user_id = ?", userID).Find(&memberships)

	// Aggregate suggested transfers touching the caller across all circles.
	friendBalances := make(map[uuid.UUID]float64)
	for _, m := range memberships {
		circle, err := Ledger.Circle(c.Request.Context(), m.CircleID)
		if err != nil {
			continue
		}
		plan := ledger.SettlementPlan(ledger.NetBalances(circle))
		for _, edge := range plan {
			if edge.From == userID {
				// I owe this person
				friendBalances[edge.To] -= edge.Amount
			} else if edge.To == userID {
				// This person owes me
				friendBalances[edge.From] += edge.Amount
			}
		}
	}

	var totalOwed, totalOwing float64
	var friends []models.FriendBalance

	for friendID, amount := range friendBalances {
		if utils.RoundToTwo(amount) == 0 {
			continue
		}

		var user models.User
		database.DB.First(&user, friendID)

		friends = append(friends, models.FriendBalance{
			UserID:    friendID,
			Name:      user.Name,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
			Amount:    utils.RoundToTwo(amount),
			Currency:  user.Currency,
		})

		if amount > 0 {
			totalOwed += amount
		} else {
			totalOwing += -amount
		}
	}

	summary := models.OverallBalanceSummary{
		TotalOwed:  utils.RoundToTwo(totalOwed),
		TotalOwing: utils.RoundToTwo(totalOwing),
		Friends:    friends,
	}

	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// attachNames decorates derived values with display names for the UI.
func attachNames(balances []models.NetBalance, plan []models.SettlementSuggestion, currency string) {
	names := make(map[uuid.UUID]string)
	lookup := func(id uuid.UUID) string {
		if name, ok := names[id]; ok {
			return name
		}
		var user models.User
		database.DB.First(&user, id)
		names[id] = user.Name
		return user.Name
	}

	for i := range balances {
		balances[i].MemberName = lookup(balances[i].MemberID)
	}
	for i := range plan {
		plan[i].FromName = lookup(plan[i].From)
		plan[i].ToName = lookup(plan[i].To)
		plan[i].Currency = currency
	}
}
