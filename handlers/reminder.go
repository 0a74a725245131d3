package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitcircle-backend/database"
	"splitcircle-backend/models"
	"splitcircle-backend/reminders"
	"splitcircle-backend/utils"
)

// POST /api/circles/:id/reminders
//
// Only the creditor side of a currently-outstanding settlement edge may send
// a nudge; the plan is recomputed here, never trusted from the client.
func SendReminder(c *gin.Context) {
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

	var req models.SendReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	to, err := uuid.Parse(req.To)
	if err != nil {
		utils.BadRequest(c, "Invalid recipient user ID")
		return
	}

	reminder, err := Reminders.Send(c.Request.Context(), circleID, userID, to, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, reminders.ErrUnauthorizedEdge):
			utils.BadRequest(c, "No outstanding balance from that member to you")
		case errors.Is(err, reminders.ErrMuted):
			utils.Conflict(c, "Recipient has muted this circle")
		case errors.Is(err, reminders.ErrBlocked):
			utils.Conflict(c, "Recipient has blocked you")
		default:
			utils.InternalError(c, "Failed to send reminder")
		}
		return
	}

	if reminder.Status == models.ReminderStatusSent {
		go Reminders.Deliver(context.Background(), reminder)
		utils.SuccessResponse(c, http.StatusCreated, "Reminder sent", reminder)
		return
	}
	utils.SuccessResponse(c, http.StatusAccepted, "Reminder queued until recipient's quiet hours end", reminder)
}

// POST /api/reminders/:id/read — recipient read receipt
func MarkReminderRead(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	reminderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid reminder ID")
		return
	}

	reminder, err := Reminders.MarkRead(c.Request.Context(), reminderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, reminders.ErrReminderNotFound):
			utils.NotFound(c, "Reminder not found")
		case errors.Is(err, reminders.ErrNotRecipient):
			utils.Forbidden(c, "Only the recipient can mark a reminder read")
		case errors.Is(err, reminders.ErrInvalidTransition):
			utils.Conflict(c, err.Error())
		default:
			utils.InternalError(c, "Failed to update reminder")
		}
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Reminder marked read", reminder)
}

// GET /api/reminders — reminders sent and received by the current user
func GetReminders(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var sent, received []models.Reminder
	database.DB.Where("from_user_id = ?", userID).
		Order("created_at DESC").
		Offset(pagination.Offset()).Limit(pagination.Limit).
		Find(&sent)
	database.DB.Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Offset(pagination.Offset()).Limit(pagination.Limit).
		Find(&received)

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"sent":     sent,
		"received": received,
	})
}
