// server/internal/api/handlers/admin_handler.go
package handlers

import (
	"net/http"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves user and vehicle management for the admin role.
type AdminHandler struct {
	Accounts *service.AccountService
}

type CreateUserPayload struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Keyword  string `json:"keyword"`
}

type UpdateUserPayload struct {
	Username *string `json:"username"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Role     *string `json:"role"`
	Keyword  *string `json:"keyword"`
	Password string  `json:"password"`
}

// VehiclePayload is shared by create and update. On update an omitted
// device_id keeps the linked device and "" unlinks it.
type VehiclePayload struct {
	UserID      uint     `json:"user_id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Plate       string   `json:"plate"`
	DeviceID    *string  `json:"device_id"`
	DevicePhone *string  `json:"device_phone"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Status      string   `json:"status"`
}

func (p VehiclePayload) input() service.VehicleInput {
	return service.VehicleInput{
		UserID:      p.UserID,
		Name:        p.Name,
		Type:        p.Type,
		Plate:       p.Plate,
		DeviceID:    p.DeviceID,
		DevicePhone: p.DevicePhone,
		Lat:         p.Lat,
		Lng:         p.Lng,
		Status:      p.Status,
	}
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var payload CreateUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.NewValidationError("Username, a valid email and password are required"))
		return
	}

	user, err := h.Accounts.CreateUser(c.Request.Context(), service.NewUser{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Keyword:  payload.Keyword,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "user": NewUserView(*user)})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.Accounts.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, NewUserView(u))
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "users": views})
}

// UpdateUser edits a user's details, role and password.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	actorID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "id", "User not found")
	if !ok {
		return
	}
	var payload UpdateUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.NewValidationError("Invalid user data"))
		return
	}

	user, err := h.Accounts.UpdateUser(c.Request.Context(), actorID, userID, service.UserUpdate{
		Username: payload.Username,
		Email:    payload.Email,
		Role:     payload.Role,
		Keyword:  payload.Keyword,
		Password: payload.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "user": NewUserView(*user)})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := uintParam(c, "id", "User not found")
	if !ok {
		return
	}
	if err := h.Accounts.DeleteUser(c.Request.Context(), actorID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "User and their vehicles deleted"})
}

func (h *AdminHandler) ListVehicles(c *gin.Context) {
	vehicles, err := h.Accounts.ListVehicles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "vehicles": vehicleViews(vehicles)})
}

func (h *AdminHandler) CreateVehicle(c *gin.Context) {
	var payload VehiclePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.NewJSONError(err))
		return
	}
	vehicle, err := h.Accounts.CreateVehicle(c.Request.Context(), payload.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "vehicle": NewVehicleView(*vehicle)})
}

func (h *AdminHandler) UpdateVehicle(c *gin.Context) {
	vehicleID, ok := uintParam(c, "id", vehicleNotFound)
	if !ok {
		return
	}
	var payload VehiclePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.NewJSONError(err))
		return
	}
	vehicle, err := h.Accounts.UpdateVehicle(c.Request.Context(), vehicleID, payload.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "vehicle": NewVehicleView(*vehicle)})
}

func (h *AdminHandler) DeleteVehicle(c *gin.Context) {
	vehicleID, ok := uintParam(c, "id", vehicleNotFound)
	if !ok {
		return
	}
	if err := h.Accounts.DeleteVehicle(c.Request.Context(), vehicleID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Vehicle deleted"})
}
