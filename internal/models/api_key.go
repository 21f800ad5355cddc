package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey is an authentication credential belonging to exactly one consumer.
// Only the SHA-256 digest of the secret is stored; the plaintext is returned
// once at creation and is never retrievable afterwards.
type APIKey struct {
	ID         string `gorm:"type:uuid;primaryKey"`     // Primary key (UUID).
	ConsumerID string `gorm:"type:uuid;not null;index"` // Owning consumer.

	KeyHash string  `gorm:"type:varchar(64);not null;uniqueIndex"` // SHA-256 hex digest of the secret.
	Name    *string `gorm:"type:varchar(100)"`                     // Optional display name.

	Enabled bool `gorm:"not null;default:true"` // Whether the key may authenticate.

	CreatedAt  time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	LastUsedAt *time.Time // Last successful authentication time.
	ExpiresAt  *time.Time // Optional expiry time.
}

// BeforeCreate assigns a UUID when none is set.
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
