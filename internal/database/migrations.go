package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/models"
	"github.com/aidalert/aidalert/pkg/crypto"
	"github.com/aidalert/aidalert/pkg/logger"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Responder{},
		&models.Incident{},
		&models.IncidentStatusHistory{},
		&models.ResponderAvailabilityHistory{},
		&models.Notification{},
		&models.Feedback{},
		&models.Facility{},
		&models.MedicalKit{},
		&models.KitItem{},
		&models.PasswordResetToken{},
	)
}

// SeedData provisions a bootstrap administrator when the user table is
// empty. The generated password is logged once so operators can sign in
// and rotate it.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	password, err := crypto.GenerateToken(18)
	if err != nil {
		return fmt.Errorf("generate admin password: %w", err)
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Username: "admin",
		Email:    "admin@aidalert.local",
		Password: hashed,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	logger.WithModule("database").Info("bootstrap admin created",
		zap.String("username", admin.Username),
		zap.String("initial_password", password),
	)
	return nil
}
