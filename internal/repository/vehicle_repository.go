package repository

import (
	"context"
	"errors"

	"gps-fleet-api-server/internal/models"

	"gorm.io/gorm"
)

type VehicleRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Vehicle, error)
	FindByDeviceID(ctx context.Context, deviceID string) (*models.Vehicle, error)
	// FindOwned matches on both id and owner, so a foreign vehicle is ErrNotFound.
	FindOwned(ctx context.Context, id, userID uint) (*models.Vehicle, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Vehicle, error)
	ListAll(ctx context.Context) ([]models.Vehicle, error)
	DeviceIDTaken(ctx context.Context, deviceID string, exceptVehicleID uint) (bool, error)
	Create(ctx context.Context, vehicle *models.Vehicle) error
	Update(ctx context.Context, vehicle *models.Vehicle) error
	Delete(ctx context.Context, id uint) error
	// ApplyFix writes the new current state and appends sample in one transaction.
	ApplyFix(ctx context.Context, vehicle *models.Vehicle, sample *models.LocationHistory) error
	SaveFlags(ctx context.Context, vehicle *models.Vehicle) error
}

type vehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) first(ctx context.Context, query interface{}, args ...interface{}) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).Where(query, args...).First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) FindByID(ctx context.Context, id uint) (*models.Vehicle, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *vehicleRepository) FindByDeviceID(ctx context.Context, deviceID string) (*models.Vehicle, error) {
	return r.first(ctx, "device_id = ?", deviceID)
}

func (r *vehicleRepository) FindOwned(ctx context.Context, id, userID uint) (*models.Vehicle, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *vehicleRepository) ListByUser(ctx context.Context, userID uint) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&vehicles).
		Error
	return vehicles, err
}

func (r *vehicleRepository) ListAll(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := r.db.WithContext(ctx).Order("id ASC").Find(&vehicles).Error
	return vehicles, err
}

func (r *vehicleRepository) DeviceIDTaken(ctx context.Context, deviceID string, exceptVehicleID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("device_id = ? AND id <> ?", deviceID, exceptVehicleID).
		Count(&count).
		Error
	return count > 0, err
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *vehicleRepository) Update(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Save(vehicle).Error
}

func (r *vehicleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vehicle_id = ?", id).Delete(&models.LocationHistory{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Vehicle{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *vehicleRepository) ApplyFix(ctx context.Context, vehicle *models.Vehicle, sample *models.LocationHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(vehicle).Updates(map[string]interface{}{
			"lat":            vehicle.Lat,
			"lng":            vehicle.Lng,
			"speed":          vehicle.Speed,
			"signal_quality": vehicle.SignalQuality,
			"vehicle_on":     vehicle.VehicleOn,
			"last_updated":   vehicle.LastUpdated,
		}).Error
		if err != nil {
			return err
		}
		sample.VehicleID = vehicle.ID
		return tx.Create(sample).Error
	})
}

func (r *vehicleRepository) SaveFlags(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Model(vehicle).Updates(map[string]interface{}{
		"shutdown":       vehicle.Shutdown,
		"transmit_audio": vehicle.TransmitAudio,
	}).Error
}
