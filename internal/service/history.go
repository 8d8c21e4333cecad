package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/export"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/s3"

	"go.uber.org/zap"
)

// History sources.
const (
	SourceMirror     = "mirror"
	SourceRelational = "relational"
)

var boundLayouts = []string{"2006-01-02T15:04", "2006-01-02"}

// NormalizeSource maps the source query parameter to a history source.
// Unknown values select the mirror.
func NormalizeSource(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqlite", "relational", "db":
		return SourceRelational
	default:
		return SourceMirror
	}
}

// Window parses the from/to bounds as civil time in the server zone. Missing
// or unparsable bounds fall back to the start of today and now.
func (s *TrackingService) Window(fromRaw, toRaw string) (from, to time.Time) {
	now := s.now().In(s.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return s.parseBound(fromRaw, startOfDay), s.parseBound(toRaw, now)
}

func (s *TrackingService) parseBound(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	for _, layout := range boundLayouts {
		if t, err := time.ParseInLocation(layout, raw, s.loc); err == nil {
			return t
		}
	}
	return fallback
}

// HistoryResult is a point series and the store that produced it.
type HistoryResult struct {
	Points []models.HistoryPoint
	Source string
}

// History returns the owner's vehicle track between from and to, oldest first.
// The mirror is tried first unless source selects the relational store; a
// mirror error, timeout or empty answer falls back to the relational store.
func (s *TrackingService) History(ctx context.Context, vehicleID, userID uint, from, to time.Time, source string) (*HistoryResult, error) {
	if _, err := s.OwnedVehicle(ctx, vehicleID, userID); err != nil {
		return nil, err
	}

	if NormalizeSource(source) == SourceMirror && s.mirror != nil {
		var docs []models.PositionDocument
		outcome := s.sideEffect(ctx, "mirror history", []zap.Field{zap.Uint("vehicle_id", vehicleID)},
			func(ctx context.Context) error {
				var err error
				docs, err = s.mirror.Positions(ctx, vehicleID, from.UTC(), to.UTC())
				return err
			},
		)
		if outcome.OK() && len(docs) > 0 {
			points := make([]models.HistoryPoint, 0, len(docs))
			for _, d := range docs {
				points = append(points, s.point(d.Timestamp, d.Lat, d.Lng, d.Speed, d.SignalQuality, d.VehicleOn))
			}
			return &HistoryResult{Points: points, Source: SourceMirror}, nil
		}
	}

	rows, err := s.history.Range(ctx, vehicleID, from, to)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	points := make([]models.HistoryPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, s.point(r.Timestamp, r.Lat, r.Lng, r.Speed, r.SignalQuality, r.VehicleOn))
	}
	return &HistoryResult{Points: points, Source: SourceRelational}, nil
}

func (s *TrackingService) point(ts time.Time, lat, lng, speed float64, signal int, on bool) models.HistoryPoint {
	local := ts.In(s.loc)
	return models.HistoryPoint{
		Timestamp:     local,
		Lat:           lat,
		Lng:           lng,
		Speed:         speed,
		SignalQuality: signal,
		VehicleOn:     on,
		TimestampText: local.Format(time.RFC3339),
	}
}

// ArchiveHistory renders the window as CSV and stores it in object storage,
// returning the object URL.
func (s *TrackingService) ArchiveHistory(ctx context.Context, vehicleID, userID uint, from, to time.Time, source string) (string, error) {
	if s.archiver == nil {
		return "", apperrors.NewUnavailableError("Archive storage is not configured")
	}

	result, err := s.History(ctx, vehicleID, userID, from, to, source)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, result.Points); err != nil {
		return "", apperrors.NewInternalError(err)
	}

	url, err := s.archiver.UploadFile(ctx, &buf, s3.ArchiveKey(vehicleID, "csv"), "text/csv")
	if err != nil {
		s.logger.Error("History archive upload failed", zap.Uint("vehicle_id", vehicleID), zap.Error(err))
		return "", apperrors.NewUnavailableError("Archive upload failed")
	}
	return url, nil
}
