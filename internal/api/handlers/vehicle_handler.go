// server/internal/api/handlers/vehicle_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"gps-fleet-api-server/internal/export"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	vehicleNotFound = "Vehicle not found"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type VehicleHandler struct {
	Service *service.TrackingService
}

// VehicleView is the map/dashboard representation of a vehicle.
type VehicleView struct {
	ID            uint    `json:"id"`
	UserID        uint    `json:"user_id"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Plate         string  `json:"plate"`
	Status        string  `json:"status"`
	DeviceID      *string `json:"device_id"`
	DevicePhone   string  `json:"device_phone"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Speed         float64 `json:"speed"`
	SignalQuality int     `json:"signal_quality"`
	VehicleOn     bool    `json:"vehicle_on"`
	Shutdown      bool    `json:"shutdown"`
	TransmitAudio bool    `json:"transmit_audio"`
	LastUpdated   string  `json:"last_updated"`
}

// NewVehicleView substitutes the fallback coordinate for a zero lat or lng
// and "N/A" for a vehicle that never reported.
func NewVehicleView(v models.Vehicle) VehicleView {
	view := VehicleView{
		ID:            v.ID,
		UserID:        v.UserID,
		Name:          v.Name,
		Type:          v.Type,
		Plate:         v.Plate,
		Status:        v.Status,
		DeviceID:      v.DeviceID,
		DevicePhone:   v.DevicePhone,
		Lat:           v.Lat,
		Lng:           v.Lng,
		Speed:         v.Speed,
		SignalQuality: v.SignalQuality,
		VehicleOn:     v.VehicleOn,
		Shutdown:      v.Shutdown,
		TransmitAudio: v.TransmitAudio,
		LastUpdated:   v.LastUpdatedString(),
	}
	if view.Lat == 0 {
		view.Lat = models.DefaultLat
	}
	if view.Lng == 0 {
		view.Lng = models.DefaultLng
	}
	if view.LastUpdated == "" {
		view.LastUpdated = "N/A"
	}
	return view
}

func vehicleViews(vehicles []models.Vehicle) []VehicleView {
	views := make([]VehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		views = append(views, NewVehicleView(v))
	}
	return views
}

// ListVehicles returns the caller's vehicles.
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	vehicles, err := h.Service.ListVehicles(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "vehicles": vehicleViews(vehicles)})
}

// GetVehicle returns the map snapshot of one of the caller's vehicles.
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicleID, userID, ok := ownedParams(c)
	if !ok {
		return
	}
	vehicle, err := h.Service.OwnedVehicle(c.Request.Context(), vehicleID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "vehicle": NewVehicleView(*vehicle)})
}

// History serves the track between ?from and ?to as json, csv or xlsx.
func (h *VehicleHandler) History(c *gin.Context) {
	vehicleID, userID, ok := ownedParams(c)
	if !ok {
		return
	}

	from, to := h.Service.Window(c.Query("from"), c.Query("to"))
	result, err := h.Service.History(c.Request.Context(), vehicleID, userID, from, to, c.DefaultQuery("source", "mongo"))
	if err != nil {
		respondError(c, err)
		return
	}

	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="vehicle_%d_history.csv"`, vehicleID))
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, result.Points); err != nil {
			_ = c.Error(err)
		}
	case "xlsx":
		c.Header("Content-Type", xlsxContentType)
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="vehicle_%d_history.xlsx"`, vehicleID))
		c.Status(http.StatusOK)
		if err := export.WriteXLSX(c.Writer, result.Points); err != nil {
			_ = c.Error(err)
		}
	default:
		c.JSON(http.StatusOK, gin.H{"status": "success", "source": result.Source, "points": result.Points})
	}
}

// ArchiveHistory uploads the CSV of the requested window to object storage.
func (h *VehicleHandler) ArchiveHistory(c *gin.Context) {
	vehicleID, userID, ok := ownedParams(c)
	if !ok {
		return
	}

	from, to := h.Service.Window(c.Query("from"), c.Query("to"))
	url, err := h.Service.ArchiveHistory(c.Request.Context(), vehicleID, userID, from, to, c.DefaultQuery("source", "mongo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "url": url})
}

func (h *VehicleHandler) ToggleShutdown(c *gin.Context) {
	vehicleID, userID, ok := ownedParams(c)
	if !ok {
		return
	}
	result, err := h.Service.ToggleShutdown(c.Request.Context(), vehicleID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"message":        "Ok",
		"shutdown":       result.Shutdown,
		"transmit_audio": result.TransmitAudio,
	})
}

func (h *VehicleHandler) ToggleAudio(c *gin.Context) {
	vehicleID, userID, ok := ownedParams(c)
	if !ok {
		return
	}
	result, err := h.Service.ToggleAudio(c.Request.Context(), vehicleID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"message":        "Ok",
		"transmit_audio": result.TransmitAudio,
		"audio_url":      result.AudioURL,
	})
}

func ownedParams(c *gin.Context) (vehicleID, userID uint, ok bool) {
	if userID, ok = currentUser(c); !ok {
		return 0, 0, false
	}
	if vehicleID, ok = uintParam(c, "id", vehicleNotFound); !ok {
		return 0, 0, false
	}
	return vehicleID, userID, true
}
