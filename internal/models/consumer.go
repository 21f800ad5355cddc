package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Consumer represents an API client application identified by username.
type Consumer struct {
	ID string `gorm:"type:uuid;primaryKey"` // Primary key (UUID).

	Username string         `gorm:"type:varchar(100);not null;uniqueIndex"` // Unique consumer username.
	Email    *string        `gorm:"type:varchar(255)"`                      // Optional contact email.
	CustomID *string        `gorm:"type:varchar(100)"`                      // Optional external correlation id.
	Metadata datatypes.JSON `gorm:"column:metadata;type:json"`              // Free-form metadata map.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.

	APIKeys []APIKey `gorm:"foreignKey:ConsumerID"` // Credentials owned by the consumer.
}

// BeforeCreate assigns a UUID when none is set.
func (c *Consumer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
