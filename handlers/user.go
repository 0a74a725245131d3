package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"splitcircle-backend/database"
	"splitcircle-backend/models"
	"splitcircle-backend/reminders"
	"splitcircle-backend/utils"
)

// UpdateProfileRequest uses pointers so callers can clear a field by sending
// an empty string; omitted fields are left alone.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
	Currency  *string `json:"currency"`
}

type UpdateFCMTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// GET /api/users/me
func GetProfile(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", user.ToResponse())
}

// PUT /api/users/me
func UpdateProfile(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			utils.BadRequest(c, "Name cannot be empty")
			return
		}
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.Currency != nil {
		code := strings.ToUpper(*req.Currency)
		if len(code) != 3 {
			utils.BadRequest(c, "Currency must be a 3-letter code")
			return
		}
		updates["currency"] = code
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			utils.InternalError(c, "Failed to update profile")
			return
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile updated", user.ToResponse())
}

// PUT /api/users/me/fcm-token
func UpdateFCMToken(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req UpdateFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	database.DB.Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", req.Token)

	utils.SuccessResponse(c, http.StatusOK, "FCM token updated", nil)
}

// PUT /api/users/me/reminder-preferences
func UpdateReminderPreferences(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.UpdateReminderPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	pref, err := reminders.ValidatePreference(userID, req)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := database.DB.Save(pref).Error; err != nil {
		utils.InternalError(c, "Failed to save preferences")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Preferences updated", pref)
}

// GET /api/users/me/reminder-preferences
func GetReminderPreferences(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var pref models.ReminderPreference
	if err := database.DB.First(&pref, "user_id = ?", userID).Error; err != nil {
		utils.SuccessResponse(c, http.StatusOK, "", models.DefaultReminderPreference(userID))
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", pref)
}

// POST /api/users/search
//
// Finds people to add to a circle. The caller is excluded from results.
func SearchUsers(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req struct {
		Query string `json:"query" binding:"required,min=2"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	pattern := "%" + req.Query + "%"
	var users []models.User
	database.DB.
		Where("id <> ?", userID).
		Where("email ILIKE ? OR name ILIKE ? OR phone ILIKE ?", pattern, pattern, pattern).
		Limit(20).
		Find(&users)

	var responses []models.UserResponse
	for _, u := range users {
		responses = append(responses, u.ToResponse())
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}
