package models

import "time"

// PositionDocument is the mirrored copy of a LocationHistory row. Timestamp is UTC.
type PositionDocument struct {
	VehicleID     uint      `bson:"vehicle_id"`
	Lat           float64   `bson:"lat"`
	Lng           float64   `bson:"lng"`
	Speed         float64   `bson:"speed"`
	SignalQuality int       `bson:"signal_quality"`
	VehicleOn     bool      `bson:"vehicle_on"`
	Timestamp     time.Time `bson:"timestamp"`
}

// CurrentStateDocument is upserted per vehicle, keyed by vehicle_id.
type CurrentStateDocument struct {
	VehicleID     uint    `bson:"vehicle_id"`
	Lat           float64 `bson:"lat"`
	Lng           float64 `bson:"lng"`
	Speed         float64 `bson:"speed"`
	SignalQuality int     `bson:"signal_quality"`
	VehicleOn     bool    `bson:"vehicle_on"`
	LastUpdated   string  `bson:"last_updated"`
}
