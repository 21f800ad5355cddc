package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Route maps incoming requests to a backend service by path, method and
// optionally host.
type Route struct {
	ID        string `gorm:"type:uuid;primaryKey"`     // Primary key (UUID).
	ServiceID string `gorm:"type:uuid;not null;index"` // Owning service.

	Name *string `gorm:"type:varchar(100);uniqueIndex"` // Optional unique route name.

	// Matching
	Hosts   datatypes.JSON `gorm:"type:json"`          // Optional host-match list.
	Paths   datatypes.JSON `gorm:"type:json;not null"` // Non-empty path-match list.
	Methods datatypes.JSON `gorm:"type:json"`          // Uppercase HTTP method list.

	// Path handling
	StripPath    bool `gorm:"not null;default:false"` // Strip the matched path prefix.
	PreserveHost bool `gorm:"not null;default:false"` // Forward the original Host header.

	Enabled bool `gorm:"not null;default:true"` // Whether the route is active.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BeforeCreate assigns a UUID when none is set.
func (r *Route) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
