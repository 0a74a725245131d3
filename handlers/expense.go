package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitcircle-backend/database"
	"splitcircle-backend/ledger"
	"splitcircle-backend/models"
	"splitcircle-backend/services"
	"splitcircle-backend/utils"
)

// POST /api/circles/:id/expenses
func CreateExpense(c *gin.Context) {
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

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	input, err := expenseInput(c, userID, req.Description, req.Amount, req.Currency,
		req.Category, req.PaidBy, req.SplitType, req.Date, req.Splits)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	expense, err := Ledger.AppendExpense(c.Request.Context(), circleID, input)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	// Notify participants asynchronously
	var payer models.User
	database.DB.First(&payer, expense.PaidBy)
	var circle models.ExpenseCircle
	database.DB.First(&circle, circleID)
	go services.GetNotificationService().NotifyExpenseAdded(expense, payer, circle)

	utils.SuccessResponse(c, http.StatusCreated, "Expense added", buildExpenseResponse(expense.ID))
}

// GET /api/circles/:id/expenses
func GetCircleExpenses(c *gin.Context) {
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

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var expenses []models.SharedExpense
	database.DB.Where("circle_id = ?", circleID).
		Order("date DESC, created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&expenses)

	var responses []models.ExpenseResponse
	for _, e := range expenses {
		responses = append(responses, buildExpenseResponse(e.ID))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/expenses/:id
func GetExpense(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid expense ID")
		return
	}

	var expense models.SharedExpense
	if err := database.DB.First(&expense, expenseID).Error; err != nil {
		utils.NotFound(c, "Expense not found")
		return
	}
	if !isMember(expense.CircleID, userID) {
		utils.Forbidden(c, "You are not a member of this circle")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", buildExpenseResponse(expenseID))
}

// PUT /api/expenses/:id
//
// Edits replace the expense wholesale: the request carries the complete new
// state and both invariants are revalidated before anything is stored.
func UpdateExpense(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid expense ID")
		return
	}

	var expense models.SharedExpense
	if err := database.DB.First(&expense, expenseID).Error; err != nil {
		utils.NotFound(c, "Expense not found")
		return
	}
	if !isMember(expense.CircleID, userID) {
		utils.Forbidden(c, "You are not a member of this circle")
		return
	}

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	input, err := expenseInput(c, userID, req.Description, req.Amount, expense.Currency,
		req.Category, req.PaidBy, req.SplitType, req.Date, req.Splits)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	updated, err := Ledger.EditExpense(c.Request.Context(), expense.CircleID, expenseID, input)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Expense updated", buildExpenseResponse(updated.ID))
}

// DELETE /api/expenses/:id
func DeleteExpense(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid expense ID")
		return
	}

	var expense models.SharedExpense
	if err := database.DB.First(&expense, expenseID).Error; err != nil {
		utils.NotFound(c, "Expense not found")
		return
	}
	if !isMember(expense.CircleID, userID) {
		utils.Forbidden(c, "You are not a member of this circle")
		return
	}

	var deleter models.User
	database.DB.First(&deleter, userID)
	details := fmt.Sprintf("%s deleted %q (%s %.2f)", deleter.Name, expense.Description, expense.Currency, expense.Amount)

	if err := Ledger.RemoveExpense(c.Request.Context(), expense.CircleID, expenseID, userID, details); err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Expense deleted", nil)
}

// expenseInput assembles the ledger input from request fields. The payer
// defaults to the caller; the participant list comes from the splits, with
// weights interpreted per split type by the calculator.
func expenseInput(c *gin.Context, userID uuid.UUID, description string, amount float64,
	currency, category, paidBy, splitType, date string, splits []models.SplitInput) (ledger.ExpenseInput, error) {

	payer := userID
	if paidBy != "" {
		id, err := uuid.Parse(paidBy)
		if err != nil {
			return ledger.ExpenseInput{}, fmt.Errorf("invalid paid_by user ID")
		}
		payer = id
	}

	var participants []ledger.Participant
	for _, s := range splits {
		id, err := uuid.Parse(s.MemberID)
		if err != nil {
			return ledger.ExpenseInput{}, fmt.Errorf("invalid member ID: %s", s.MemberID)
		}
		participants = append(participants, ledger.Participant{MemberID: id, Weight: s.Value})
	}

	expenseDate := time.Now()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return ledger.ExpenseInput{}, fmt.Errorf("invalid date, expected YYYY-MM-DD")
		}
		expenseDate = parsed
	}

	var actor models.User
	database.DB.First(&actor, userID)

	return ledger.ExpenseInput{
		ActorID:      userID,
		ActorName:    actor.Name,
		Description:  description,
		Amount:       amount,
		Currency:     currency,
		Category:     category,
		PaidBy:       payer,
		SplitType:    splitType,
		Participants: participants,
		Date:         expenseDate,
	}, nil
}

// respondLedgerError maps engine errors onto the API envelope.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrCircleNotFound), errors.Is(err, ledger.ErrExpenseNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, ledger.ErrSplitMismatch),
		errors.Is(err, ledger.ErrEmptyParticipants),
		errors.Is(err, ledger.ErrDuplicateMember),
		errors.Is(err, ledger.ErrInvalidSplitType):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrUnknownMember):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrMemberReferenced):
		utils.Conflict(c, err.Error())
	default:
		utils.InternalError(c, "Ledger operation failed")
	}
}

// Build expense response with payer name and split details
func buildExpenseResponse(expenseID uuid.UUID) models.ExpenseResponse {
	var expense models.SharedExpense
	if err := database.DB.First(&expense, expenseID).Error; err != nil {
		return models.ExpenseResponse{}
	}

	var payer models.User
	database.DB.First(&payer, expense.PaidBy)

	var dbSplits []models.ExpenseSplit
	database.DB.Where("expense_id = ?", expenseID).Find(&dbSplits)

	var splitResponses []models.SplitResponse
	for _, s := range dbSplits {
		var user models.User
		database.DB.First(&user, s.MemberID)
		splitResponses = append(splitResponses, models.SplitResponse{
			MemberID:   s.MemberID,
			MemberName: user.Name,
			Amount:     s.Amount,
			Percentage: s.Percentage,
			Shares:     s.Shares,
		})
	}

	return models.ExpenseResponse{
		ID:          expense.ID,
		CircleID:    expense.CircleID,
		PaidBy:      expense.PaidBy,
		PayerName:   payer.Name,
		Description: expense.Description,
		Amount:      expense.Amount,
		Currency:    expense.Currency,
		Category:    expense.Category,
		SplitType:   expense.SplitType,
		Date:        expense.Date,
		Splits:      splitResponses,
		CreatedAt:   expense.CreatedAt,
	}
}
