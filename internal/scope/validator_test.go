package scope

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
)

func setupScopeTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:scope_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Service{}, &models.Route{}, &models.Consumer{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func strPtr(s string) *string { return &s }

func TestValidate_RuleTable(t *testing.T) {
	t.Parallel()

	conn := setupScopeTestDB(t)
	service := &models.Service{Name: "users", Protocol: "http", Host: "users.internal", Port: 80}
	if errCreate := conn.Create(service).Error; errCreate != nil {
		t.Fatalf("create service: %v", errCreate)
	}
	route := &models.Route{ServiceID: service.ID, Name: strPtr("users-list"), Paths: []byte(`["/users"]`)}
	if errCreate := conn.Create(route).Error; errCreate != nil {
		t.Fatalf("create route: %v", errCreate)
	}
	consumer := &models.Consumer{Username: "mobile-app"}
	if errCreate := conn.Create(consumer).Error; errCreate != nil {
		t.Fatalf("create consumer: %v", errCreate)
	}

	cases := []struct {
		name       string
		scope      string
		serviceID  *string
		routeID    *string
		consumerID *string
		wantErr    string
	}{
		{name: "global clean", scope: "global"},
		{name: "global with service", scope: "global", serviceID: &service.ID, wantErr: "Global plugins cannot be associated"},
		{name: "global with consumer", scope: "global", consumerID: &consumer.ID, wantErr: "Global plugins cannot be associated"},
		{name: "service clean", scope: "service", serviceID: &service.ID},
		{name: "service missing id", scope: "service", wantErr: "Service plugins must have service_id only"},
		{name: "service with route", scope: "service", serviceID: &service.ID, routeID: &route.ID, wantErr: "Service plugins must have service_id only"},
		{name: "route clean", scope: "route", routeID: &route.ID},
		{name: "route with service", scope: "route", routeID: &route.ID, serviceID: &service.ID, wantErr: "Route plugins must have route_id only"},
		{name: "consumer clean", scope: "consumer", consumerID: &consumer.ID},
		{name: "consumer with route", scope: "consumer", consumerID: &consumer.ID, routeID: &route.ID, wantErr: "Consumer plugins must have consumer_id only"},
		{name: "unknown scope", scope: "tenant", wantErr: "Invalid scope: tenant"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, errValidate := Validate(context.Background(), conn, tc.scope, tc.serviceID, tc.routeID, tc.consumerID)
			if tc.wantErr == "" {
				if errValidate != nil {
					t.Fatalf("expected valid, got %v", errValidate)
				}
				return
			}
			if errValidate == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !IsInvalidScope(errValidate) {
				t.Fatalf("expected InvalidScopeError, got %T", errValidate)
			}
			if !strings.Contains(errValidate.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tc.wantErr, errValidate.Error())
			}
		})
	}
}

func TestValidate_MissingReferences(t *testing.T) {
	t.Parallel()

	conn := setupScopeTestDB(t)
	missing := "00000000-0000-0000-0000-000000000000"

	for _, tc := range []struct {
		scope      string
		serviceID  *string
		routeID    *string
		consumerID *string
		wantErr    string
	}{
		{scope: "service", serviceID: &missing, wantErr: "Service with id '" + missing + "' not found"},
		{scope: "route", routeID: &missing, wantErr: "Route with id '" + missing + "' not found"},
		{scope: "consumer", consumerID: &missing, wantErr: "Consumer with id '" + missing + "' not found"},
	} {
		_, errValidate := Validate(context.Background(), conn, tc.scope, tc.serviceID, tc.routeID, tc.consumerID)
		if errValidate == nil || errValidate.Error() != tc.wantErr {
			t.Fatalf("scope %s: expected %q, got %v", tc.scope, tc.wantErr, errValidate)
		}
		if !IsInvalidScope(errValidate) {
			t.Fatalf("scope %s: expected InvalidScopeError, got %T", tc.scope, errValidate)
		}
	}
}

func TestValidate_ResolvesEntityNames(t *testing.T) {
	t.Parallel()

	conn := setupScopeTestDB(t)
	service := &models.Service{Name: "users", Protocol: "http", Host: "users.internal", Port: 80}
	if errCreate := conn.Create(service).Error; errCreate != nil {
		t.Fatalf("create service: %v", errCreate)
	}
	route := &models.Route{ServiceID: service.ID, Name: strPtr("users-list"), Paths: []byte(`["/users"]`)}
	if errCreate := conn.Create(route).Error; errCreate != nil {
		t.Fatalf("create route: %v", errCreate)
	}

	result, errValidate := Validate(context.Background(), conn, "route", nil, &route.ID, nil)
	if errValidate != nil {
		t.Fatalf("expected valid, got %v", errValidate)
	}
	if result.EntityNames["route"] != "users-list" {
		t.Fatalf("expected route name resolved, got %v", result.EntityNames)
	}
	if result.EntityNames["service"] != "users" {
		t.Fatalf("expected owning service name resolved, got %v", result.EntityNames)
	}
}
