package models

import "time"

// Scan sources.
const (
	SourceCamera = "camera"
	SourcePhoto  = "photo"
	SourceWatch  = "watch"
)

// IbanScan is an accepted IBAN. A user keeps one row per IBAN and session;
// photo reads have an empty SessionID, so the same IBAN photographed twice
// is stored once.
type IbanScan struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint   `gorm:"not null;uniqueIndex:idx_scan_user_iban_session"`
	Iban      string `gorm:"size:24;not null;uniqueIndex:idx_scan_user_iban_session"`
	SessionID string `gorm:"size:64;not null;default:'';uniqueIndex:idx_scan_user_iban_session"`
	Formatted string `gorm:"size:40"`
	Source    string `gorm:"size:16;not null;index"`
	Frames    int64  // tracker frame index at acceptance; 0 for photos
	FileName  string `gorm:"size:255"`
}
