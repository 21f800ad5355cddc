package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service represents a backend service the gateway can route traffic to.
type Service struct {
	ID string `gorm:"type:uuid;primaryKey"` // Primary key (UUID).

	Name string `gorm:"type:varchar(100);not null;uniqueIndex"` // Unique service name.

	// Connection
	Protocol string `gorm:"type:varchar(10);not null;default:http"` // One of http, https, grpc.
	Host     string `gorm:"type:varchar(255);not null"`             // Upstream host.
	Port     int    `gorm:"not null;default:80"`                    // Upstream port (1-65535).
	Path     string `gorm:"type:varchar(255)"`                      // Optional path prefix.

	// Timeouts (milliseconds)
	ConnectTimeoutMs int `gorm:"default:5000"`  // Connect timeout.
	ReadTimeoutMs    int `gorm:"default:60000"` // Read timeout.
	WriteTimeoutMs   int `gorm:"default:60000"` // Write timeout.
	Retries          int `gorm:"default:0"`     // Retry attempts (0-10).

	LoadBalancerType string `gorm:"type:varchar(50);default:round-robin"` // Load balancing strategy tag.

	Enabled bool `gorm:"not null;default:true"` // Whether the service is active.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.

	Targets []ServiceTarget `gorm:"foreignKey:ServiceID"` // Owned backend targets.
	Routes  []Route         `gorm:"foreignKey:ServiceID"` // Routes pointing at this service.
}

// BeforeCreate assigns a UUID when none is set.
func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ServiceTarget is one physical backend instance of a Service, used for
// weighted load balancing by the data plane.
type ServiceTarget struct {
	ID        string `gorm:"type:uuid;primaryKey"`     // Primary key (UUID).
	ServiceID string `gorm:"type:uuid;not null;index"` // Owning service.

	Target          string `gorm:"type:varchar(255);not null"`        // host:port of the backend instance.
	Weight          int    `gorm:"not null;default:100"`              // Relative load-balancing weight.
	HealthCheckPath string `gorm:"type:varchar(255);default:/health"` // Health probe path.
	Enabled         bool   `gorm:"not null;default:true"`             // Whether the target receives traffic.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// BeforeCreate assigns a UUID when none is set.
func (t *ServiceTarget) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
