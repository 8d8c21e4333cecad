package service

import (
	"net/http"
	"testing"

	"gps-fleet-api-server/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocationUpdate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    LocationUpdate
		status  int
		message string
	}{
		{
			name: "full report",
			body: `{"device_id":"DEV-1","lat":-34.6,"lng":-58.4,"speed":12.5,"signal_quality":80,"vehicle_on":true}`,
			want: LocationUpdate{DeviceID: "DEV-1", Lat: -34.6, Lng: -58.4, Speed: 12.5, SignalQuality: 80, VehicleOn: true},
		},
		{
			name: "numeric strings and defaults",
			body: `{"device_id":"DEV-1","lat":"-34.6","lng":" -58.4 "}`,
			want: LocationUpdate{DeviceID: "DEV-1", Lat: -34.6, Lng: -58.4},
		},
		{
			name: "null optionals take defaults",
			body: `{"device_id":"DEV-1","lat":1,"lng":2,"speed":null,"signal_quality":null,"vehicle_on":null}`,
			want: LocationUpdate{DeviceID: "DEV-1", Lat: 1, Lng: 2},
		},
		{
			name: "zero coordinates are present",
			body: `{"device_id":"DEV-1","lat":0,"lng":0}`,
			want: LocationUpdate{DeviceID: "DEV-1"},
		},
		{
			name: "numeric device id",
			body: `{"device_id":1234,"lat":1,"lng":2,"signal_quality":75.9,"vehicle_on":"false"}`,
			want: LocationUpdate{DeviceID: "1234", Lat: 1, Lng: 2, SignalQuality: 75},
		},
		{
			name: "truthy vehicle_on",
			body: `{"device_id":"DEV-1","lat":1,"lng":2,"vehicle_on":1}`,
			want: LocationUpdate{DeviceID: "DEV-1", Lat: 1, Lng: 2, VehicleOn: true},
		},
		{name: "invalid json", body: `{"device_id":`, status: http.StatusBadRequest, message: "Invalid JSON"},
		{name: "trailing data", body: `{"device_id":"x","lat":1,"lng":1} {}`, status: http.StatusBadRequest, message: "Invalid JSON"},
		{name: "array body", body: `[1,2]`, status: http.StatusBadRequest, message: "Invalid JSON"},
		{name: "missing lat", body: `{"device_id":"DEV-1","lng":2}`, status: http.StatusBadRequest, message: "Missing required fields"},
		{name: "empty device", body: `{"device_id":"","lat":1,"lng":2}`, status: http.StatusBadRequest, message: "Missing required fields"},
		{name: "null lng", body: `{"device_id":"DEV-1","lat":1,"lng":null}`, status: http.StatusBadRequest, message: "Missing required fields"},
		{name: "bad lat", body: `{"device_id":"DEV-1","lat":"north","lng":2}`, status: http.StatusBadRequest, message: "Invalid lat/lng/speed/signal"},
		{name: "bad signal", body: `{"device_id":"DEV-1","lat":1,"lng":2,"signal_quality":"80.5"}`, status: http.StatusBadRequest, message: "Invalid lat/lng/speed/signal"},
		{name: "boolean speed", body: `{"device_id":"DEV-1","lat":1,"lng":2,"speed":true}`, status: http.StatusBadRequest, message: "Invalid lat/lng/speed/signal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocationUpdate([]byte(tt.body))
			if tt.status != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.status, apperrors.StatusOf(err))
				assert.Equal(t, tt.message, apperrors.MessageOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocationUpdate_IsSentinel(t *testing.T) {
	assert.True(t, LocationUpdate{}.IsSentinel())
	assert.False(t, LocationUpdate{Lat: 0, Lng: 0.0001}.IsSentinel())
}
