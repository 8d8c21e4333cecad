package handlers

import (
	"net/http"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/service"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	Service *service.TrackingService
}

// UpdateLocation is the unauthenticated device endpoint. The response tells
// the device its pending shutdown and audio commands.
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		respondError(c, apperrors.NewMethodNotAllowedError())
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		respondError(c, apperrors.NewJSONError(err))
		return
	}

	update, err := service.ParseLocationUpdate(body)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.Service.Ingest(c.Request.Context(), update)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"shutdown":       result.Shutdown,
		"transmit_audio": result.TransmitAudio,
		"last_updated":   result.LastUpdated,
	})
}
