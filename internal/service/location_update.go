package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"gps-fleet-api-server/internal/apperrors"
)

// LocationUpdate is a decoded device report.
type LocationUpdate struct {
	DeviceID      string
	Lat           float64
	Lng           float64
	Speed         float64
	SignalQuality int
	VehicleOn     bool
}

// IsSentinel reports the (0,0) "no GPS fix" marker.
func (u LocationUpdate) IsSentinel() bool {
	return u.Lat == 0 && u.Lng == 0
}

// ParseLocationUpdate decodes a device report. device_id, lat and lng must be
// present (not null, not ""), numeric fields accept numbers or numeric
// strings, and absent optional fields default to zero values.
func ParseLocationUpdate(body []byte) (LocationUpdate, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return LocationUpdate{}, apperrors.NewJSONError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return LocationUpdate{}, apperrors.NewJSONError(errors.New("unexpected data after JSON body"))
	}

	for _, key := range []string{"device_id", "lat", "lng"} {
		if !present(raw[key]) {
			return LocationUpdate{}, apperrors.NewValidationError("Missing required fields")
		}
	}

	invalid := apperrors.NewValidationError("Invalid lat/lng/speed/signal")

	deviceID, ok := toDeviceID(raw["device_id"])
	if !ok {
		return LocationUpdate{}, apperrors.NewValidationError("Invalid device_id")
	}

	var u LocationUpdate
	u.DeviceID = deviceID
	if u.Lat, ok = toFloat(raw["lat"]); !ok {
		return LocationUpdate{}, invalid
	}
	if u.Lng, ok = toFloat(raw["lng"]); !ok {
		return LocationUpdate{}, invalid
	}
	if v := raw["speed"]; v != nil {
		if u.Speed, ok = toFloat(v); !ok {
			return LocationUpdate{}, invalid
		}
	}
	if v := raw["signal_quality"]; v != nil {
		if u.SignalQuality, ok = toInt(v); !ok {
			return LocationUpdate{}, invalid
		}
	}
	u.VehicleOn = truthy(raw["vehicle_on"])
	return u, nil
}

func present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

func toDeviceID(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func toFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt truncates fractional JSON numbers; strings must hold an integer.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		f, err := t.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

// truthy treats zero numbers, empty values and strings such as "false" or "0" as false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return false
	}
}
