package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitcircle-backend/database"
	"splitcircle-backend/models"
	"splitcircle-backend/services"
	"splitcircle-backend/utils"
)

// POST /api/circles/:id/settle
func CreateSettlement(c *gin.Context) {
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

	var req models.CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	paidTo, err := uuid.Parse(req.PaidTo)
	if err != nil {
		utils.BadRequest(c, "Invalid paid_to user ID")
		return
	}

	var payer, payee models.User
	database.DB.First(&payer, userID)
	database.DB.First(&payee, paidTo)
	var circle models.ExpenseCircle
	database.DB.First(&circle, circleID)

	details := fmt.Sprintf("%s paid %s %s %.2f", payer.Name, payee.Name, circle.Currency, req.Amount)
	settlement, err := Ledger.RecordSettlement(c.Request.Context(), circleID, userID, paidTo, req.Amount, req.Notes, details)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	// Close out reminders on the settled edge and notify the payee.
	Reminders.MarkEdgePaid(c.Request.Context(), circleID, userID, paidTo)
	go services.GetNotificationService().NotifySettlement(settlement, payer, payee, circle)

	utils.SuccessResponse(c, http.StatusCreated, "Settlement recorded", settlement)
}

// GET /api/circles/:id/settlements
func GetCircleSettlements(c *gin.Context) {
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

	var settlements []models.Settlement
	database.DB.Where("circle_id = ?", circleID).
		Preload("Payer").Preload("Payee").
		Order("created_at DESC").
		Find(&settlements)

	utils.SuccessResponse(c, http.StatusOK, "", settlements)
}
