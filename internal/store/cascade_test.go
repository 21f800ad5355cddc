package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
)

func setupStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:store_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	errMigrate := conn.AutoMigrate(
		&models.Service{},
		&models.ServiceTarget{},
		&models.Route{},
		&models.Consumer{},
		&models.APIKey{},
		&models.Plugin{},
	)
	if errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func TestDeleteServiceCascade(t *testing.T) {
	t.Parallel()

	conn := setupStoreTestDB(t)
	ctx := context.Background()

	service := &models.Service{Name: "users", Protocol: "http", Host: "users.internal", Port: 80}
	if errCreate := conn.Create(service).Error; errCreate != nil {
		t.Fatalf("create service: %v", errCreate)
	}
	other := &models.Service{Name: "orders", Protocol: "http", Host: "orders.internal", Port: 80}
	if errCreate := conn.Create(other).Error; errCreate != nil {
		t.Fatalf("create other service: %v", errCreate)
	}

	var routeIDs []string
	for i := 0; i < 3; i++ {
		route := &models.Route{ServiceID: service.ID, Paths: []byte(fmt.Sprintf(`["/users/%d"]`, i))}
		if errCreate := conn.Create(route).Error; errCreate != nil {
			t.Fatalf("create route: %v", errCreate)
		}
		routeIDs = append(routeIDs, route.ID)
		plugin := &models.Plugin{Name: "rate-limit", Scope: models.ScopeRoute, RouteID: &route.ID, Config: []byte(`{}`)}
		if errCreate := conn.Create(plugin).Error; errCreate != nil {
			t.Fatalf("create route plugin: %v", errCreate)
		}
	}
	servicePlugin := &models.Plugin{Name: "auth", Scope: models.ScopeService, ServiceID: &service.ID, Config: []byte(`{}`)}
	if errCreate := conn.Create(servicePlugin).Error; errCreate != nil {
		t.Fatalf("create service plugin: %v", errCreate)
	}
	target := &models.ServiceTarget{ServiceID: service.ID, Target: "10.0.0.1:8080", Weight: 100}
	if errCreate := conn.Create(target).Error; errCreate != nil {
		t.Fatalf("create target: %v", errCreate)
	}
	otherRoute := &models.Route{ServiceID: other.ID, Paths: []byte(`["/orders"]`)}
	if errCreate := conn.Create(otherRoute).Error; errCreate != nil {
		t.Fatalf("create other route: %v", errCreate)
	}

	if errDelete := DeleteServiceCascade(ctx, conn, service.ID); errDelete != nil {
		t.Fatalf("cascade delete: %v", errDelete)
	}

	for table, model := range map[string]any{
		"routes":  &models.Route{},
		"targets": &models.ServiceTarget{},
	} {
		var count int64
		conn.Model(model).Where("service_id = ?", service.ID).Count(&count)
		if count != 0 {
			t.Fatalf("expected no %s for deleted service, got %d", table, count)
		}
	}
	var pluginCount int64
	conn.Model(&models.Plugin{}).Where("route_id IN ? OR service_id = ?", routeIDs, service.ID).Count(&pluginCount)
	if pluginCount != 0 {
		t.Fatalf("expected no plugins for deleted service graph, got %d", pluginCount)
	}

	// Unrelated rows survive.
	var otherRoutes int64
	conn.Model(&models.Route{}).Where("service_id = ?", other.ID).Count(&otherRoutes)
	if otherRoutes != 1 {
		t.Fatalf("expected unrelated route to survive, got %d", otherRoutes)
	}
}

func TestDeleteServiceCascade_NotFound(t *testing.T) {
	t.Parallel()

	conn := setupStoreTestDB(t)
	errDelete := DeleteServiceCascade(context.Background(), conn, "00000000-0000-0000-0000-000000000000")
	if !errors.Is(errDelete, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", errDelete)
	}
}

func TestDeleteRouteCascade(t *testing.T) {
	t.Parallel()

	conn := setupStoreTestDB(t)
	service := &models.Service{Name: "users", Protocol: "http", Host: "users.internal", Port: 80}
	if errCreate := conn.Create(service).Error; errCreate != nil {
		t.Fatalf("create service: %v", errCreate)
	}
	route := &models.Route{ServiceID: service.ID, Paths: []byte(`["/users"]`)}
	if errCreate := conn.Create(route).Error; errCreate != nil {
		t.Fatalf("create route: %v", errCreate)
	}
	plugin := &models.Plugin{Name: "rate-limit", Scope: models.ScopeRoute, RouteID: &route.ID, Config: []byte(`{}`)}
	if errCreate := conn.Create(plugin).Error; errCreate != nil {
		t.Fatalf("create plugin: %v", errCreate)
	}

	if errDelete := DeleteRouteCascade(context.Background(), conn, route.ID); errDelete != nil {
		t.Fatalf("cascade delete: %v", errDelete)
	}

	var count int64
	conn.Model(&models.Plugin{}).Where("route_id = ?", route.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected route plugins removed, got %d", count)
	}
	// The owning service is untouched.
	var serviceCount int64
	conn.Model(&models.Service{}).Where("id = ?", service.ID).Count(&serviceCount)
	if serviceCount != 1 {
		t.Fatalf("expected service to survive route delete")
	}
}

func TestDeleteConsumerCascade(t *testing.T) {
	t.Parallel()

	conn := setupStoreTestDB(t)
	consumer := &models.Consumer{Username: "mobile-app"}
	if errCreate := conn.Create(consumer).Error; errCreate != nil {
		t.Fatalf("create consumer: %v", errCreate)
	}
	for i := 0; i < 2; i++ {
		key := &models.APIKey{ConsumerID: consumer.ID, KeyHash: fmt.Sprintf("%064d", i)}
		if errCreate := conn.Create(key).Error; errCreate != nil {
			t.Fatalf("create key: %v", errCreate)
		}
	}
	plugin := &models.Plugin{Name: "rate-limit", Scope: models.ScopeConsumer, ConsumerID: &consumer.ID, Config: []byte(`{}`)}
	if errCreate := conn.Create(plugin).Error; errCreate != nil {
		t.Fatalf("create plugin: %v", errCreate)
	}

	if errDelete := DeleteConsumerCascade(context.Background(), conn, consumer.ID); errDelete != nil {
		t.Fatalf("cascade delete: %v", errDelete)
	}

	var keyCount, pluginCount int64
	conn.Model(&models.APIKey{}).Where("consumer_id = ?", consumer.ID).Count(&keyCount)
	conn.Model(&models.Plugin{}).Where("consumer_id = ?", consumer.ID).Count(&pluginCount)
	if keyCount != 0 || pluginCount != 0 {
		t.Fatalf("expected cascade to remove owned rows, got keys=%d plugins=%d", keyCount, pluginCount)
	}
}
