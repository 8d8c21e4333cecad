package service

import (
	"context"
	"io"
	"strconv"
	"time"

	"gps-fleet-api-server/internal/isolate"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/repository"

	"go.uber.org/zap"
)

// Mirror is the secondary document store for positions.
type Mirror interface {
	RecordPosition(ctx context.Context, pos models.PositionDocument, state models.CurrentStateDocument) error
	Positions(ctx context.Context, vehicleID uint, fromUTC, toUTC time.Time) ([]models.PositionDocument, error)
	DeleteVehicle(ctx context.Context, vehicleID uint) error
}

// Publisher delivers an event to the live sessions of a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Notifier pushes command changes to the physical device.
type Notifier interface {
	NotifyCommand(ctx context.Context, deviceID string, event models.CommandEvent) error
}

type AudioLinker interface {
	AudioURL(ctx context.Context, vehicleID uint) (string, error)
}

type Archiver interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

// Dependencies wires a TrackingService. Mirror, Notifier, Audio and Archiver
// are optional and leave their feature disabled when nil.
type Dependencies struct {
	Vehicles          repository.VehicleRepository
	History           repository.HistoryRepository
	Mirror            Mirror
	Publisher         Publisher
	Notifier          Notifier
	Audio             AudioLinker
	Archiver          Archiver
	Location          *time.Location
	SideEffectTimeout time.Duration
	Logger            *zap.Logger
	Now               func() time.Time
}

// TrackingService owns the device ingestion, history and command paths.
type TrackingService struct {
	vehicles  repository.VehicleRepository
	history   repository.HistoryRepository
	mirror    Mirror
	publisher Publisher
	notifier  Notifier
	audio     AudioLinker
	archiver  Archiver
	loc       *time.Location
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewTrackingService(deps Dependencies) *TrackingService {
	s := &TrackingService{
		vehicles:  deps.Vehicles,
		history:   deps.History,
		mirror:    deps.Mirror,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		audio:     deps.Audio,
		archiver:  deps.Archiver,
		loc:       deps.Location,
		timeout:   deps.SideEffectTimeout,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Location is the civil zone used for stamps and query bounds.
func (s *TrackingService) Location() *time.Location {
	return s.loc
}

func (s *TrackingService) sideEffect(ctx context.Context, step string, fields []zap.Field, fn func(ctx context.Context) error) isolate.Outcome {
	return runSideEffect(ctx, s.logger, s.timeout, step, fields, fn)
}

func (s *TrackingService) broadcast(ctx context.Context, vehicleID uint, payload any) isolate.Outcome {
	topic := models.TopicForVehicle(vehicleID)
	if s.publisher == nil {
		return isolate.Outcome{Step: "broadcast"}
	}
	return s.sideEffect(ctx, "broadcast", []zap.Field{zap.String("topic", topic)}, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, topic, payload)
	})
}

func vehicleKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
