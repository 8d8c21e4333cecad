package models

import "time"

// LocationHistory is an immutable position sample, one per accepted device fix.
type LocationHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	VehicleID     uint      `gorm:"not null;index:idx_history_vehicle_ts,priority:1" json:"vehicleID"`
	Lat           float64   `gorm:"not null" json:"lat"`
	Lng           float64   `gorm:"not null" json:"lng"`
	Speed         float64   `gorm:"not null" json:"speed"`
	SignalQuality int       `gorm:"not null" json:"signalQuality"`
	VehicleOn     bool      `gorm:"not null" json:"vehicleOn"`
	Timestamp     time.Time `gorm:"not null;autoCreateTime;index:idx_history_vehicle_ts,priority:2" json:"timestamp"`
}

func (LocationHistory) TableName() string {
	return "location_history"
}
