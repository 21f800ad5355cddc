package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plugin scopes. A plugin attaches behavior at exactly one of these levels.
const (
	ScopeGlobal   = "global"
	ScopeService  = "service"
	ScopeRoute    = "route"
	ScopeConsumer = "consumer"
)

// Plugin is a named behavior attachment (auth, rate limiting, caching, ...)
// stored for the data plane to execute. Exactly one of ServiceID, RouteID
// and ConsumerID is set, determined by Scope; all three are empty for
// global plugins. The same rule is enforced again at the storage layer, see
// db.Migrate.
type Plugin struct {
	ID string `gorm:"type:uuid;primaryKey"` // Primary key (UUID).

	Name  string `gorm:"type:varchar(50);not null"`  // Plugin type name, e.g. rate-limit.
	Scope string `gorm:"type:varchar(20);not null"`  // One of global, service, route, consumer.

	ServiceID  *string `gorm:"type:uuid;index"` // Set when scope is service.
	RouteID    *string `gorm:"type:uuid;index"` // Set when scope is route.
	ConsumerID *string `gorm:"type:uuid;index"` // Set when scope is consumer.

	Config   datatypes.JSON `gorm:"type:json;not null"`     // Plugin configuration blob.
	Enabled  bool           `gorm:"not null;default:true"`  // Whether the data plane runs the plugin.
	Priority int            `gorm:"not null;default:100"`   // Execution order, 1-1000, lower runs first.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BeforeCreate assigns a UUID when none is set.
func (p *Plugin) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
