// Package sanitize truncates the service tables, typically to reset a
// development or demo database.
package sanitize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"ibanscan/models"
)

// DefaultTables are the tables owned by the service.
const DefaultTables = "iban_scans,users,roles"

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseTables splits a comma-separated list and drops names that are not
// plain identifiers.
func ParseTables(list string) []string {
	var wanted []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nameRe.MatchString(p) {
			log.Printf("warning: skipping invalid table name '%s'", p)
			continue
		}
		wanted = append(wanted, p)
	}
	return wanted
}

// TruncateStatement builds the TRUNCATE for already validated names.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("\"%s\"", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// ExistingTables keeps the tables present in the public schema.
func ExistingTables(ctx context.Context, db *gorm.DB, wanted []string) ([]string, error) {
	var existing []string
	// one lookup per name keeps the query parameterized
	for _, t := range wanted {
		var cnt int64
		if err := db.WithContext(ctx).Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			return nil, fmt.Errorf("query pg_tables for %s: %w", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		} else {
			log.Printf("info: table %s not found, skipping", t)
		}
	}
	return existing, nil
}

// Truncate empties tables and, with reseed, recreates the master roles and
// the admin account.
func Truncate(ctx context.Context, db *gorm.DB, tables []string, reseed bool) error {
	stmt := TruncateStatement(tables)
	log.Printf("Executing: %s", stmt)
	if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	if !reseed {
		return nil
	}
	if err := models.SeedRoles(db); err != nil {
		return err
	}
	if _, err := models.CreateUser(db, "admin", "admin123", models.RoleAdministrator); err != nil && !errors.Is(err, models.ErrUserExists) {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return nil
}
