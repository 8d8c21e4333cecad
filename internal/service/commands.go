package service

import (
	"context"
	"errors"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/repository"

	"go.uber.org/zap"
)

const simulatedAudioURL = "simulated_audio.mp3"

// CommandResult carries the vehicle's flags after a toggle.
type CommandResult struct {
	Shutdown      bool
	TransmitAudio bool
	// AudioURL is set only while audio transmission is on.
	AudioURL *string
}

// OwnedVehicle returns the vehicle if userID owns it. Missing and foreign
// vehicles are both reported as not found.
func (s *TrackingService) OwnedVehicle(ctx context.Context, vehicleID, userID uint) (*models.Vehicle, error) {
	vehicle, err := s.vehicles.FindOwned(ctx, vehicleID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Vehicle not found")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return vehicle, nil
}

func (s *TrackingService) ListVehicles(ctx context.Context, userID uint) ([]models.Vehicle, error) {
	vehicles, err := s.vehicles.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return vehicles, nil
}

// ToggleShutdown flips the remote shutdown flag the device reads on its next report.
func (s *TrackingService) ToggleShutdown(ctx context.Context, vehicleID, userID uint) (*CommandResult, error) {
	vehicle, err := s.OwnedVehicle(ctx, vehicleID, userID)
	if err != nil {
		return nil, err
	}

	vehicle.Shutdown = !vehicle.Shutdown
	if err := s.vehicles.SaveFlags(ctx, vehicle); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	command := models.CommandTurnOn
	if vehicle.Shutdown {
		command = models.CommandShutdown
	}
	flag := vehicle.Shutdown
	s.dispatchCommand(ctx, vehicle, models.CommandEvent{
		VehicleID: vehicleKey(vehicle.ID),
		Command:   command,
		Shutdown:  &flag,
	})

	return &CommandResult{Shutdown: vehicle.Shutdown, TransmitAudio: vehicle.TransmitAudio}, nil
}

// ToggleAudio flips cabin audio transmission.
func (s *TrackingService) ToggleAudio(ctx context.Context, vehicleID, userID uint) (*CommandResult, error) {
	vehicle, err := s.OwnedVehicle(ctx, vehicleID, userID)
	if err != nil {
		return nil, err
	}

	vehicle.TransmitAudio = !vehicle.TransmitAudio
	if err := s.vehicles.SaveFlags(ctx, vehicle); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	command := models.CommandStopAudio
	if vehicle.TransmitAudio {
		command = models.CommandTransmitAudio
	}
	flag := vehicle.TransmitAudio
	s.dispatchCommand(ctx, vehicle, models.CommandEvent{
		VehicleID:     vehicleKey(vehicle.ID),
		Command:       command,
		TransmitAudio: &flag,
	})

	result := &CommandResult{Shutdown: vehicle.Shutdown, TransmitAudio: vehicle.TransmitAudio}
	if vehicle.TransmitAudio {
		url := s.audioURL(ctx, vehicle.ID)
		result.AudioURL = &url
	}
	return result, nil
}

func (s *TrackingService) dispatchCommand(ctx context.Context, vehicle *models.Vehicle, event models.CommandEvent) {
	s.broadcast(ctx, vehicle.ID, event)

	deviceID := vehicle.DeviceIDString()
	if s.notifier == nil || deviceID == "" {
		return
	}
	s.sideEffect(ctx, "device push",
		[]zap.Field{zap.Uint("vehicle_id", vehicle.ID), zap.String("command", event.Command)},
		func(ctx context.Context) error {
			return s.notifier.NotifyCommand(ctx, deviceID, event)
		},
	)
}

func (s *TrackingService) audioURL(ctx context.Context, vehicleID uint) string {
	if s.audio == nil {
		return simulatedAudioURL
	}
	url, err := s.audio.AudioURL(ctx, vehicleID)
	if err != nil {
		s.logger.Warn("Falling back to simulated audio", zap.Uint("vehicle_id", vehicleID), zap.Error(err))
		return simulatedAudioURL
	}
	return url
}
