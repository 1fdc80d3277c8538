package models

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUserExists is returned by CreateUser for a taken username.
var ErrUserExists = errors.New("user already exists")

// Open connects to Postgres and, when migrate is set, creates the schema.
// Master roles are always seeded.
func Open(dsn string, migrate bool) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if migrate {
		Migrate(db)
	}
	if err := SeedRoles(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate model by model; a failure on one table is logged
// and does not block the others.
func Migrate(db *gorm.DB) {
	// roles first so the users FK can be applied.
	for _, m := range []struct {
		table string
		model any
	}{
		{"roles", &Role{}},
		{"users", &User{}},
		{"iban_scans", &IbanScan{}},
	} {
		if err := db.AutoMigrate(m.model); err != nil {
			log.Printf("migration warning (%s): %v", m.table, err)
		}
	}
}

// SeedRoles makes sure the master roles exist.
func SeedRoles(db *gorm.DB) error {
	roles := []Role{{Name: RoleAdministrator, Description: "full access"}, {Name: RoleUser, Description: "regular user"}}
	for _, r := range roles {
		if err := db.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	return nil
}

// CreateUser stores a user with a bcrypt hash of password under roleName.
func CreateUser(db *gorm.DB, username, password, roleName string) (User, error) {
	var existing User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return existing, ErrUserExists
	}
	var role Role
	if err := db.Where("name = ?", roleName).FirstOrCreate(&role, Role{Name: roleName}).Error; err != nil {
		return User{}, fmt.Errorf("ensure role %s: %w", roleName, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	rid := role.ID
	user := User{Username: username, HashedPassword: hashed, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		// race with a concurrent register after the pre-check
		if IsUniqueConstraintError(err) {
			return User{}, ErrUserExists
		}
		return User{}, err
	}
	return user, nil
}

// SetPassword replaces the bcrypt hash of username.
func SetPassword(db *gorm.DB, username, password string) error {
	var user User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return fmt.Errorf("user %s: %w", username, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Model(&user).Update("hashed_password", hash).Error
}

// RoleName resolves the role of u, "" when unset or missing.
func RoleName(db *gorm.DB, u User) string {
	if u.RoleID == nil {
		return ""
	}
	var r Role
	if err := db.First(&r, *u.RoleID).Error; err != nil {
		return ""
	}
	return r.Name
}

// SaveScan inserts s unless the (user, iban, session) row already exists.
// created is false for a duplicate.
func SaveScan(db *gorm.DB, s *IbanScan) (created bool, err error) {
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(s)
	if res.Error != nil {
		return false, fmt.Errorf("save scan: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IsUniqueConstraintError matches Postgres duplicate key errors by message.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
