package models

import (
	"strconv"
	"time"
)

// TopicForVehicle names the live channel topic of a vehicle.
func TopicForVehicle(vehicleID uint) string {
	return "vehicle_" + strconv.FormatUint(uint64(vehicleID), 10)
}

// TelemetryEvent is broadcast to live viewers after every ingestion call.
type TelemetryEvent struct {
	VehicleID     string  `json:"vehicle_id"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Speed         float64 `json:"speed"`
	SignalQuality int     `json:"signal_quality"`
	VehicleOn     bool    `json:"vehicle_on"`
	Shutdown      bool    `json:"shutdown"`
	TransmitAudio bool    `json:"transmit_audio"`
	LastUpdated   *string `json:"last_updated"`
}

// Command names carried by CommandEvent.
const (
	CommandShutdown      = "shutdown"
	CommandTurnOn        = "turn_on"
	CommandTransmitAudio = "transmit_audio"
	CommandStopAudio     = "stop_audio"
)

// CommandEvent is broadcast when an owner toggles a command flag. Exactly one
// of Shutdown and TransmitAudio is set.
type CommandEvent struct {
	VehicleID     string `json:"vehicle_id"`
	Command       string `json:"command"`
	Shutdown      *bool  `json:"shutdown,omitempty"`
	TransmitAudio *bool  `json:"transmit_audio,omitempty"`
}

// HistoryPoint is one sample of a history query result, from either store.
type HistoryPoint struct {
	Timestamp     time.Time `json:"-"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	Speed         float64   `json:"speed"`
	SignalQuality int       `json:"signal_quality"`
	VehicleOn     bool      `json:"vehicle_on"`
	// TimestampText is Timestamp rendered in the server zone (RFC 3339).
	TimestampText string `json:"timestamp"`
}
