package models

import "time"

// SourceConnection stores the credentials and flags of one external LMS integration.
type SourceConnection struct {
	Source       AssignmentSource `gorm:"primaryKey;size:32" json:"source"`
	BaseURL      string           `gorm:"size:512" json:"base_url"`
	Token        string           `gorm:"size:2048" json:"-"`
	Connected    bool             `gorm:"not null" json:"connected"`
	AutoSync     bool             `gorm:"not null" json:"auto_sync"`
	LastTestedAt *time.Time       `json:"last_tested_at"`
	LastSyncedAt *time.Time       `json:"last_synced_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Syncable reports whether automatic sync passes should include this source.
func (c SourceConnection) Syncable() bool {
	return c.Connected && c.AutoSync
}
