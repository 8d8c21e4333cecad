package service

import (
	"context"
	"errors"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/isolate"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/repository"

	"go.uber.org/zap"
)

// IngestResult is what the device gets back: its pending command flags.
type IngestResult struct {
	Shutdown      bool
	TransmitAudio bool
	LastUpdated   *string

	// Outcomes of the best-effort steps, for logging and tests. Mirror is
	// zero for sentinel reports and when no mirror is configured.
	Mirror    isolate.Outcome
	Broadcast isolate.Outcome
}

// Ingest applies a device report. Only a failure of the relational store is
// returned as an error; mirror and broadcast failures are logged.
func (s *TrackingService) Ingest(ctx context.Context, update LocationUpdate) (*IngestResult, error) {
	vehicle, err := s.vehicles.FindByDeviceID(ctx, update.DeviceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Device not found")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	result := &IngestResult{}
	logFields := []zap.Field{zap.Uint("vehicle_id", vehicle.ID), zap.String("device_id", update.DeviceID)}

	if update.IsSentinel() {
		s.logger.Debug("Ignoring no-fix location report", logFields...)
	} else {
		now := s.now().In(s.loc)
		stamp := now.Format(models.LastUpdatedLayout)

		vehicle.Lat = update.Lat
		vehicle.Lng = update.Lng
		vehicle.Speed = update.Speed
		vehicle.SignalQuality = update.SignalQuality
		vehicle.VehicleOn = update.VehicleOn
		vehicle.LastUpdated = &stamp

		sample := &models.LocationHistory{
			Lat:           update.Lat,
			Lng:           update.Lng,
			Speed:         update.Speed,
			SignalQuality: update.SignalQuality,
			VehicleOn:     update.VehicleOn,
			Timestamp:     now,
		}
		if err := s.vehicles.ApplyFix(ctx, vehicle, sample); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}

		if s.mirror != nil {
			pos := models.PositionDocument{
				VehicleID:     vehicle.ID,
				Lat:           update.Lat,
				Lng:           update.Lng,
				Speed:         update.Speed,
				SignalQuality: update.SignalQuality,
				VehicleOn:     update.VehicleOn,
				Timestamp:     now.UTC(),
			}
			state := models.CurrentStateDocument{
				VehicleID:     vehicle.ID,
				Lat:           update.Lat,
				Lng:           update.Lng,
				Speed:         update.Speed,
				SignalQuality: update.SignalQuality,
				VehicleOn:     update.VehicleOn,
				LastUpdated:   stamp,
			}
			result.Mirror = s.sideEffect(ctx, "mirror", logFields, func(ctx context.Context) error {
				return s.mirror.RecordPosition(ctx, pos, state)
			})
		}
	}

	result.Broadcast = s.broadcast(ctx, vehicle.ID, telemetryEvent(vehicle))

	result.Shutdown = vehicle.Shutdown
	result.TransmitAudio = vehicle.TransmitAudio
	result.LastUpdated = vehicle.LastUpdated
	return result, nil
}

func telemetryEvent(v *models.Vehicle) models.TelemetryEvent {
	return models.TelemetryEvent{
		VehicleID:     vehicleKey(v.ID),
		Lat:           v.Lat,
		Lng:           v.Lng,
		Speed:         v.Speed,
		SignalQuality: v.SignalQuality,
		VehicleOn:     v.VehicleOn,
		Shutdown:      v.Shutdown,
		TransmitAudio: v.TransmitAudio,
		LastUpdated:   v.LastUpdated,
	}
}
