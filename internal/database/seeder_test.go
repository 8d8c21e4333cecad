package database

import (
	"context"
	"testing"

	"gps-fleet-api-server/config"
	"gps-fleet-api-server/internal/auth"
	"gps-fleet-api-server/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestSeedAdmin_CreatesOnce(t *testing.T) {
	db := openTestDB(t)
	cfg := config.AdminConfig{Username: "root", Email: "root@example.com", Password: "s3cret!"}

	require.NoError(t, SeedAdmin(context.Background(), db, cfg, zap.NewNop()))
	require.NoError(t, SeedAdmin(context.Background(), db, cfg, zap.NewNop()))

	var admins []models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "root", admins[0].Username)
	assert.True(t, auth.CheckPasswordHash("s3cret!", admins[0].Password))
}

func TestSeedAdmin_SkipsWithoutPassword(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, SeedAdmin(context.Background(), db, config.AdminConfig{Username: "root"}, zap.NewNop()))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
