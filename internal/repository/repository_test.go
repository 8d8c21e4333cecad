package repository

import (
	"context"
	"testing"
	"time"

	"gps-fleet-api-server/internal/database"
	"gps-fleet-api-server/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func strPtr(s string) *string { return &s }

func seedOwner(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func seedVehicle(t *testing.T, db *gorm.DB, ownerID uint, deviceID string) *models.Vehicle {
	t.Helper()
	vehicle := &models.Vehicle{
		UserID:   ownerID,
		Name:     "Truck " + deviceID,
		Type:     "truck",
		Plate:    "AB" + deviceID,
		DeviceID: strPtr(deviceID),
		Lat:      models.DefaultLat,
		Lng:      models.DefaultLng,
	}
	require.NoError(t, NewVehicleRepository(db).Create(context.Background(), vehicle))
	return vehicle
}

func TestVehicleRepository_Lookups(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewVehicleRepository(db)
	alice := seedOwner(t, db, "alice")
	bob := seedOwner(t, db, "bob")
	v := seedVehicle(t, db, alice.ID, "DEV-1")

	found, err := repo.FindByDeviceID(ctx, "DEV-1")
	require.NoError(t, err)
	assert.Equal(t, v.ID, found.ID)

	_, err = repo.FindByDeviceID(ctx, "UNKNOWN")
	assert.ErrorIs(t, err, ErrNotFound)

	owned, err := repo.FindOwned(ctx, v.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "DEV-1", owned.DeviceIDString())

	_, err = repo.FindOwned(ctx, v.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.ListByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	taken, err := repo.DeviceIDTaken(ctx, "DEV-1", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.DeviceIDTaken(ctx, "DEV-1", v.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestVehicleRepository_ApplyFixAppendsHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewVehicleRepository(db)
	history := NewHistoryRepository(db)
	owner := seedOwner(t, db, "alice")
	v := seedVehicle(t, db, owner.ID, "DEV-1")

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		v.Lat = -34.6 + float64(i)/100
		v.Lng = -58.38
		v.Speed = float64(10 * i)
		v.SignalQuality = 80
		v.VehicleOn = true
		v.LastUpdated = strPtr(base.Add(time.Duration(i) * time.Minute).Format(models.LastUpdatedLayout))
		sample := &models.LocationHistory{
			Lat: v.Lat, Lng: v.Lng, Speed: v.Speed, SignalQuality: v.SignalQuality, VehicleOn: v.VehicleOn,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.ApplyFix(ctx, v, sample))
		assert.Equal(t, v.ID, sample.VehicleID)
	}

	stored, err := repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.InDelta(t, -34.58, stored.Lat, 1e-9)
	assert.Equal(t, 20.0, stored.Speed)
	assert.Equal(t, "01-05-2024 10:02", stored.LastUpdatedString())

	rows, err := history.Range(ctx, v.ID, base, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Timestamp.Before(rows[1].Timestamp))

	rows, err = history.Range(ctx, v.ID, base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestVehicleRepository_SaveFlagsLeavesPosition(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewVehicleRepository(db)
	owner := seedOwner(t, db, "alice")
	v := seedVehicle(t, db, owner.ID, "DEV-1")

	v.Shutdown = true
	v.Lat = 1 // not persisted by SaveFlags
	require.NoError(t, repo.SaveFlags(ctx, v))

	stored, err := repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, stored.Shutdown)
	assert.False(t, stored.TransmitAudio)
	assert.Equal(t, models.DefaultLat, stored.Lat)
}

func TestVehicleRepository_DeleteRemovesHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewVehicleRepository(db)
	owner := seedOwner(t, db, "alice")
	v := seedVehicle(t, db, owner.ID, "DEV-1")
	require.NoError(t, repo.ApplyFix(ctx, v, &models.LocationHistory{Timestamp: time.Now().UTC()}))

	require.NoError(t, repo.Delete(ctx, v.ID))
	assert.ErrorIs(t, repo.Delete(ctx, v.ID), ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.LocationHistory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	owner := seedOwner(t, db, "alice")
	v1 := seedVehicle(t, db, owner.ID, "DEV-1")
	v2 := seedVehicle(t, db, owner.ID, "DEV-2")

	exists, err := users.Exists(ctx, "nobody", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	found, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, found.ID)

	ids, err := users.Delete(ctx, owner.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{v1.ID, v2.ID}, ids)

	_, err = users.FindByID(ctx, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = NewVehicleRepository(db).FindByID(ctx, v1.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = users.Delete(ctx, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_ListUpdateTaken(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	alice := seedOwner(t, db, "alice")
	bob := seedOwner(t, db, "bob")

	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, alice.ID, list[0].ID)

	taken, err := users.Taken(ctx, "alice", "new@example.com", alice.ID)
	require.NoError(t, err)
	assert.False(t, taken)
	taken, err = users.Taken(ctx, "alice", "new@example.com", bob.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	bob.Role = models.RoleAdmin
	bob.Keyword = "blue"
	require.NoError(t, users.Update(ctx, bob))
	found, err := users.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, found.Role)
	assert.Equal(t, "blue", found.Keyword)
}
