// Package mirror keeps a best-effort Mongo copy of positions and current vehicle state.
package mirror

import (
	"context"
	"fmt"
	"time"

	"gps-fleet-api-server/config"
	"gps-fleet-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	historyCollection = "location_history"
	vehicleCollection = "vehicles"
)

type Store struct {
	client *mongo.Client
	DB     *mongo.Database
}

// Connect dials the document store. The driver connects lazily, so an
// unreachable server surfaces later as per-operation errors.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout).
		SetConnectTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return &Store{client: client, DB: client.Database(cfg.DBName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// RecordPosition appends the position document and upserts the vehicle's
// current state. The two writes are independent.
func (s *Store) RecordPosition(ctx context.Context, pos models.PositionDocument, state models.CurrentStateDocument) error {
	pos.Timestamp = pos.Timestamp.UTC()
	if _, err := s.DB.Collection(historyCollection).InsertOne(ctx, pos); err != nil {
		return fmt.Errorf("mirror history insert: %w", err)
	}

	_, err := s.DB.Collection(vehicleCollection).UpdateOne(ctx,
		bson.M{"vehicle_id": state.VehicleID},
		bson.M{"$set": bson.M{
			"lat":            state.Lat,
			"lng":            state.Lng,
			"speed":          state.Speed,
			"signal_quality": state.SignalQuality,
			"vehicle_on":     state.VehicleOn,
			"last_updated":   state.LastUpdated,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mirror state upsert: %w", err)
	}
	return nil
}

// Positions returns the vehicle's mirrored samples with fromUTC <= timestamp <= toUTC, oldest first.
func (s *Store) Positions(ctx context.Context, vehicleID uint, fromUTC, toUTC time.Time) ([]models.PositionDocument, error) {
	filter := bson.M{
		"vehicle_id": vehicleID,
		"timestamp":  bson.M{"$gte": fromUTC.UTC(), "$lte": toUTC.UTC()},
	}
	cursor, err := s.DB.Collection(historyCollection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mirror history query: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.PositionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mirror history decode: %w", err)
	}
	return docs, nil
}

// DeleteVehicle drops every mirrored document of the vehicle.
func (s *Store) DeleteVehicle(ctx context.Context, vehicleID uint) error {
	filter := bson.M{"vehicle_id": vehicleID}
	if _, err := s.DB.Collection(historyCollection).DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("mirror history delete: %w", err)
	}
	if _, err := s.DB.Collection(vehicleCollection).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("mirror state delete: %w", err)
	}
	return nil
}
