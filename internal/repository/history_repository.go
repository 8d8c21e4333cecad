package repository

import (
	"context"
	"time"

	"gps-fleet-api-server/internal/models"

	"gorm.io/gorm"
)

type HistoryRepository interface {
	// Range returns samples with from <= timestamp <= to, oldest first.
	Range(ctx context.Context, vehicleID uint, from, to time.Time) ([]models.LocationHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Range(ctx context.Context, vehicleID uint, from, to time.Time) ([]models.LocationHistory, error) {
	var rows []models.LocationHistory
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND timestamp >= ? AND timestamp <= ?", vehicleID, from, to).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&rows).
		Error
	return rows, err
}
