package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitcircle-backend/database"
	"splitcircle-backend/ledger"
	"splitcircle-backend/models"
	"splitcircle-backend/utils"
)

// POST /api/circles
func CreateCircle(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateCircleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var memberIDs []uuid.UUID
	for _, raw := range req.Members {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequest(c, "Invalid member ID: "+raw)
			return
		}
		var count int64
		database.DB.Model(&models.User{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			utils.BadRequest(c, "Unknown user: "+raw)
			return
		}
		memberIDs = append(memberIDs, id)
	}

	var creator models.User
	database.DB.First(&creator, userID)

	circle, err := Ledger.CreateCircle(c.Request.Context(), ledger.CreateCircleInput{
		ActorID:          userID,
		ActorName:        creator.Name,
		Name:             req.Name,
		Icon:             req.Icon,
		Currency:         req.Currency,
		DefaultSplitType: req.DefaultSplitType,
		MemberIDs:        memberIDs,
	})
	if err != nil {
		utils.InternalError(c, "Failed to create circle")
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Circle created", buildCircleResponse(circle.ID))
}

// GET /api/circles
func GetCircles(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var memberships []models.CircleMember
	database.DB.Where("user_id = ?", userID).Find(&memberships)

	var responses []models.CircleResponse
	for _, m := range memberships {
		responses = append(responses, buildCircleResponse(m.CircleID))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/circles/:id
func GetCircle(c *gin.Context) {
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

	utils.SuccessResponse(c, http.StatusOK, "", buildCircleResponse(circleID))
}

// PUT /api/circles/:id
func UpdateCircle(c *gin.Context) {
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

	var req struct {
		Name             string `json:"name"`
		Icon             string `json:"icon"`
		DefaultSplitType string `json:"default_split_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Icon != "" {
		updates["icon"] = req.Icon
	}
	if req.DefaultSplitType != "" {
		updates["default_split_type"] = req.DefaultSplitType
	}

	database.DB.Model(&models.ExpenseCircle{}).Where("id = ?", circleID).Updates(updates)

	utils.SuccessResponse(c, http.StatusOK, "Circle updated", buildCircleResponse(circleID))
}

// POST /api/circles/:id/members
func AddCircleMember(c *gin.Context) {
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

	var req models.AddCircleMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var target models.User
	found := false
	if req.UserID != "" {
		if id, err := uuid.Parse(req.UserID); err == nil {
			if err := database.DB.First(&target, id).Error; err == nil {
				found = true
			}
		}
	}
	if !found && req.Email != "" {
		if err := database.DB.Where("email = ?", req.Email).First(&target).Error; err == nil {
			found = true
		}
	}
	if !found {
		utils.NotFound(c, "User not found")
		return
	}

	var adder models.User
	database.DB.First(&adder, userID)
	var circle models.ExpenseCircle
	database.DB.First(&circle, circleID)

	details := fmt.Sprintf("%s added %s to %s", adder.Name, target.Name, circle.Name)
	if err := Ledger.AddMember(c.Request.Context(), circleID, userID, target.ID, details); err != nil {
		if errors.Is(err, ledger.ErrAlreadyMember) {
			utils.BadRequest(c, "User is already a member of this circle")
			return
		}
		utils.InternalError(c, "Failed to add member")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Member added", target.ToResponse())
}

// DELETE /api/circles/:id/members/:uid
func RemoveCircleMember(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	circleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid circle ID")
		return
	}

	memberUID, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	// Only admin or self can remove
	var membership models.CircleMember
	database.DB.Where("circle_id = ? AND user_id = ?", circleID, userID).First(&membership)
	if membership.Role != "admin" && userID != memberUID {
		utils.Forbidden(c, "Only admins can remove other members")
		return
	}

	var removed models.User
	database.DB.First(&removed, memberUID)
	var circle models.ExpenseCircle
	database.DB.First(&circle, circleID)

	details := fmt.Sprintf("%s left %s", removed.Name, circle.Name)
	if err := Ledger.RemoveMember(c.Request.Context(), circleID, userID, memberUID, details); err != nil {
		switch {
		case errors.Is(err, ledger.ErrMemberReferenced):
			utils.Conflict(c, "Member still appears in expenses; settle or reassign them first")
		case errors.Is(err, ledger.ErrUnknownMember):
			utils.NotFound(c, "User is not a member of this circle")
		default:
			utils.InternalError(c, "Failed to remove member")
		}
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Member removed", nil)
}

// Helper: check circle membership
func isMember(circleID, userID uuid.UUID) bool {
	var count int64
	database.DB.Model(&models.CircleMember{}).Where("circle_id = ? AND user_id = ?", circleID, userID).Count(&count)
	return count > 0
}

// Helper: build full circle response with members
func buildCircleResponse(circleID uuid.UUID) models.CircleResponse {
	var circle models.ExpenseCircle
	database.DB.First(&circle, circleID)

	var members []models.CircleMember
	database.DB.Where("circle_id = ?", circleID).Find(&members)

	var memberResponses []models.CircleMemberResponse
	for _, m := range members {
		var user models.User
		database.DB.First(&user, m.UserID)
		memberResponses = append(memberResponses, models.CircleMemberResponse{
			UserID:    user.ID,
			Name:      user.Name,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
			Role:      m.Role,
			JoinedAt:  m.JoinedAt,
		})
	}

	return models.CircleResponse{
		ID:               circle.ID,
		Name:             circle.Name,
		Icon:             circle.Icon,
		Currency:         circle.Currency,
		DefaultSplitType: circle.DefaultSplitType,
		CreatedBy:        circle.CreatedBy,
		Members:          memberResponses,
		CreatedAt:        circle.CreatedAt,
	}
}
