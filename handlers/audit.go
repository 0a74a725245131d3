package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitcircle-backend/database"
	"splitcircle-backend/models"
	"splitcircle-backend/utils"
)

// The audit log is append-only: these handlers only ever read it, and no
// update or delete route exists for audit entries.

// GET /api/activity — audit feed across all of the caller's circles
func GetActivity(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var memberships []models.CircleMember
	database.DB.Where("user_id = ?", userID).Find(&memberships)

	var circleIDs []uuid.UUID
	for _, m := range memberships {
		circleIDs = append(circleIDs, m.CircleID)
	}

	var entries []models.CircleAuditLog
	if len(circleIDs) > 0 {
		database.DB.Where("circle_id IN ?", circleIDs).
			Preload("Actor").
			Order("created_at DESC").
			Offset(pagination.Offset()).
			Limit(pagination.Limit).
			Find(&entries)

		// Attach circle names
		circleNames := make(map[uuid.UUID]string)
		var circles []models.ExpenseCircle
		database.DB.Where("id IN ?", circleIDs).Find(&circles)
		for _, circle := range circles {
			circleNames[circle.ID] = circle.Name
		}
		for i := range entries {
			entries[i].CircleName = circleNames[entries[i].CircleID]
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "", entries)
}

// GET /api/circles/:id/activity — audit feed for one circle
func GetCircleActivity(c *gin.Context) {
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

	var entries []models.CircleAuditLog
	database.DB.Where("circle_id = ?", circleID).
		Preload("Actor").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&entries)

	utils.SuccessResponse(c, http.StatusOK, "", entries)
}
