package models

import (
	"time"
)

// Vote is one ballot on one poll. UserIdentifier is the fingerprint when the
// client supplied one, otherwise the device ID; the composite unique index is
// the storage-level guarantee that races past the application dedup check
// still cannot produce two rows.
type Vote struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	PollID            uint      `gorm:"not null;uniqueIndex:idx_poll_voter;index" json:"poll_id"`
	Poll              *Poll     `gorm:"constraint:OnDelete:CASCADE" json:"poll,omitempty"`
	UserIdentifier    string    `gorm:"size:120;not null;uniqueIndex:idx_poll_voter" json:"user_identifier"`
	DeviceID          string    `gorm:"size:120;not null;index" json:"device_id"`
	DeviceFingerprint *string   `gorm:"size:120;index" json:"device_fingerprint,omitempty"`
	IPAddress         *string   `gorm:"size:64;index" json:"ip_address,omitempty"`
	UserAgentHash     string    `gorm:"size:32;not null;index" json:"user_agent_hash"`
	Vote              string    `gorm:"size:3;not null" json:"vote"` // "yes" or "no"
	CreatedAt         time.Time `json:"created_at"`
}
