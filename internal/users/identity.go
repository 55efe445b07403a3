package users

import (
	"strings"
	"time"
)

const (
	// ProviderLocal identifies profiles created by email login or registration.
	ProviderLocal = "local"
	// ProviderGuest identifies anonymous guest profiles.
	ProviderGuest = "guest"
)

// Identity maps a login (provider + subject) to the canonical profile id that scopes stored data.
type Identity struct {
	Provider    string    `gorm:"column:provider;primaryKey;size:32;not null"`
	Subject     string    `gorm:"column:subject;primaryKey;size:190;not null"`
	ProfileID   string    `gorm:"column:profile_id;size:190;not null;uniqueIndex"`
	Email       string    `gorm:"column:email;size:320"`
	DisplayName string    `gorm:"column:display_name;size:320"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user identities.
func (Identity) TableName() string {
	return "user_identities"
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}

// normalizeEmail folds case so one address always maps to one profile.
func normalizeEmail(value string) string {
	return strings.ToLower(normalize(value))
}
