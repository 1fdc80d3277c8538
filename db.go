package main

import (
	"errors"
	"log"
	"os"

	"ibanscan/models"
	"ibanscan/pkg/config"

	"gorm.io/gorm"
)

// openDB connects, migrates when enabled and seeds the admin account.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	ensureUploadBase(cfg.Server.UploadBase)
	if !cfg.Database.Enabled() {
		return nil, errors.New("DB_DSN is not set")
	}
	db, err := models.Open(cfg.Database.DSN, cfg.Database.AutoMigrate)
	if err != nil {
		return nil, err
	}
	seedAdmin(db)
	return db, nil
}

func seedAdmin(db *gorm.DB) {
	_, err := models.CreateUser(db, "admin", "admin123", models.RoleAdministrator)
	switch {
	case err == nil:
		log.Println("Seeded admin user: username=admin, password=admin123")
	case errors.Is(err, models.ErrUserExists):
	default:
		log.Printf("failed to seed admin user: %v", err)
	}
}

// ensureUploadBase creates the base directory for stored photos.
func ensureUploadBase(base string) {
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}
