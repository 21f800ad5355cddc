// Package scope validates plugin attachment scopes.
//
// A plugin is attached at exactly one of four levels: global, service,
// route or consumer. The validator enforces the exclusivity rule table and
// resolves referenced entities so callers can audit-log their names. The
// same rule table is enforced structurally by the store (db.Migrate) as a
// defense against write paths that bypass this package.
package scope

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
)

// InvalidScopeError reports a violated scope rule with a reason suitable
// for returning to the caller.
type InvalidScopeError struct {
	Reason string
}

func (e *InvalidScopeError) Error() string { return e.Reason }

// IsInvalidScope reports whether err is a scope validation rejection.
func IsInvalidScope(err error) bool {
	var invalid *InvalidScopeError
	return errors.As(err, &invalid)
}

// Result carries the names of entities resolved during validation. The
// names are advisory context for audit logging, not required for
// correctness.
type Result struct {
	EntityNames map[string]string
}

// Validate checks a plugin scope against its three association ids and
// verifies that the referenced entity exists.
//
// Callers validating an update must pass the resulting state (current
// values merged with the patch), never the patch alone. Returns an
// *InvalidScopeError for rule violations and missing references; any other
// error is a storage failure.
func Validate(ctx context.Context, conn *gorm.DB, pluginScope string, serviceID, routeID, consumerID *string) (Result, error) {
	result := Result{EntityNames: map[string]string{}}

	switch pluginScope {
	case models.ScopeGlobal:
		if serviceID != nil || routeID != nil || consumerID != nil {
			return result, &InvalidScopeError{Reason: "Global plugins cannot be associated with service, route, or consumer"}
		}

	case models.ScopeService:
		if serviceID == nil || routeID != nil || consumerID != nil {
			return result, &InvalidScopeError{Reason: "Service plugins must have service_id only"}
		}
		var service models.Service
		if errFind := conn.WithContext(ctx).First(&service, "id = ?", *serviceID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return result, &InvalidScopeError{Reason: fmt.Sprintf("Service with id '%s' not found", *serviceID)}
			}
			return result, errFind
		}
		result.EntityNames["service"] = service.Name

	case models.ScopeRoute:
		if routeID == nil || serviceID != nil || consumerID != nil {
			return result, &InvalidScopeError{Reason: "Route plugins must have route_id only"}
		}
		var route models.Route
		if errFind := conn.WithContext(ctx).First(&route, "id = ?", *routeID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return result, &InvalidScopeError{Reason: fmt.Sprintf("Route with id '%s' not found", *routeID)}
			}
			return result, errFind
		}
		if route.Name != nil {
			result.EntityNames["route"] = *route.Name
		}
		var service models.Service
		if errFind := conn.WithContext(ctx).First(&service, "id = ?", route.ServiceID).Error; errFind == nil {
			result.EntityNames["service"] = service.Name
		}

	case models.ScopeConsumer:
		if consumerID == nil || serviceID != nil || routeID != nil {
			return result, &InvalidScopeError{Reason: "Consumer plugins must have consumer_id only"}
		}
		var consumer models.Consumer
		if errFind := conn.WithContext(ctx).First(&consumer, "id = ?", *consumerID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return result, &InvalidScopeError{Reason: fmt.Sprintf("Consumer with id '%s' not found", *consumerID)}
			}
			return result, errFind
		}
		result.EntityNames["consumer"] = consumer.Username

	default:
		return result, &InvalidScopeError{Reason: fmt.Sprintf("Invalid scope: %s. Must be one of: global, service, route, consumer", pluginScope)}
	}

	return result, nil
}
