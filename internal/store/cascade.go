// Package store implements the ownership-driven delete routines of the
// entity graph.
//
// Cascades are explicit and transactional rather than delegated to
// storage-engine foreign-key actions, so the behavior is identical across
// PostgreSQL and SQLite: Service owns its targets, routes and
// service-scoped plugins (and, through routes, route-scoped plugins);
// Route owns its route-scoped plugins; Consumer owns its API keys and
// consumer-scoped plugins.
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
)

// DeleteServiceCascade removes a service together with all entities it
// owns, directly or through its routes. Returns gorm.ErrRecordNotFound
// when the service does not exist; nothing is deleted in that case.
func DeleteServiceCascade(ctx context.Context, conn *gorm.DB, serviceID string) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var routeIDs []string
		if errPluck := tx.Model(&models.Route{}).
			Where("service_id = ?", serviceID).
			Pluck("id", &routeIDs).Error; errPluck != nil {
			return errPluck
		}

		if len(routeIDs) > 0 {
			if errDelete := tx.Where("route_id IN ?", routeIDs).Delete(&models.Plugin{}).Error; errDelete != nil {
				return errDelete
			}
		}
		if errDelete := tx.Where("service_id = ?", serviceID).Delete(&models.Plugin{}).Error; errDelete != nil {
			return errDelete
		}
		if errDelete := tx.Where("service_id = ?", serviceID).Delete(&models.Route{}).Error; errDelete != nil {
			return errDelete
		}
		if errDelete := tx.Where("service_id = ?", serviceID).Delete(&models.ServiceTarget{}).Error; errDelete != nil {
			return errDelete
		}

		result := tx.Where("id = ?", serviceID).Delete(&models.Service{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteRouteCascade removes a route and its route-scoped plugins.
func DeleteRouteCascade(ctx context.Context, conn *gorm.DB, routeID string) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelete := tx.Where("route_id = ?", routeID).Delete(&models.Plugin{}).Error; errDelete != nil {
			return errDelete
		}

		result := tx.Where("id = ?", routeID).Delete(&models.Route{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteConsumerCascade removes a consumer, its API keys and its
// consumer-scoped plugins.
func DeleteConsumerCascade(ctx context.Context, conn *gorm.DB, consumerID string) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelete := tx.Where("consumer_id = ?", consumerID).Delete(&models.APIKey{}).Error; errDelete != nil {
			return errDelete
		}
		if errDelete := tx.Where("consumer_id = ?", consumerID).Delete(&models.Plugin{}).Error; errDelete != nil {
			return errDelete
		}

		result := tx.Where("id = ?", consumerID).Delete(&models.Consumer{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
