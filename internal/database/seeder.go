package database

import (
	"context"
	"fmt"

	"gps-fleet-api-server/config"
	"gps-fleet-api-server/internal/auth"
	"gps-fleet-api-server/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedAdmin creates the first admin account when none exists. An empty
// password skips seeding so that no default credential ever ships.
func SeedAdmin(ctx context.Context, db *gorm.DB, cfg config.AdminConfig, log *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Info("Admin already exists. Seeding skipped.")
		return nil
	}
	if cfg.Password == "" {
		log.Warn("No admin account exists and admin.password is empty; seeding skipped")
		return nil
	}

	log.Info("Admin not found. Seeding...", zap.String("username", cfg.Username))
	hashedPassword, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: hashedPassword,
		Role:     models.RoleAdmin,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	log.Info("Admin seeded successfully.")
	return nil
}
