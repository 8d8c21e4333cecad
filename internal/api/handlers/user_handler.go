// server/internal/api/handlers/user_handler.go
package handlers

import (
	"net/http"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	Accounts *service.AccountService
}

type LoginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login issues a JWT for valid credentials.
func (h *UserHandler) Login(c *gin.Context) {
	var payload LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.NewValidationError("Username and password are required"))
		return
	}

	result, err := h.Accounts.Login(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"token":   result.Token,
		"role":    result.Role,
		"user_id": result.UserID,
	})
}

// UserView is the account representation returned by the API.
type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Keyword  string `json:"keyword"`
}

func NewUserView(u models.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, Keyword: u.Keyword}
}

type ProfilePayload struct {
	Keyword         *string `json:"keyword"`
	OldPassword     string  `json:"old_password"`
	NewPassword     string  `json:"new_password"`
	ConfirmPassword string  `json:"confirm_password"`
}

func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.Accounts.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "user": NewUserView(*user)})
}

// UpdateProfile changes the caller's keyword and password.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var payload ProfilePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.NewJSONError(err))
		return
	}

	user, err := h.Accounts.UpdateProfile(c.Request.Context(), userID, service.ProfileUpdate{
		Keyword:         payload.Keyword,
		OldPassword:     payload.OldPassword,
		NewPassword:     payload.NewPassword,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Profile updated", "user": NewUserView(*user)})
}
