package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/saidutt46/switchboard-admin/internal/models"
	"github.com/saidutt46/switchboard-admin/internal/notify"
)

// downPublisher simulates an unreachable notification broker.
type downPublisher struct{}

func (downPublisher) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestNormalizeMethods(t *testing.T) {
	t.Parallel()

	got, errNormalize := normalizeMethods([]string{"get", "Post", "DELETE"})
	if errNormalize != nil {
		t.Fatalf("normalizeMethods: %v", errNormalize)
	}
	want := []string{"GET", "POST", "DELETE"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if _, errInvalid := normalizeMethods([]string{"TRACE"}); errInvalid == nil {
		t.Fatalf("expected error for unsupported method")
	}
}

func TestRouteHandler_CreateAppliesDefaults(t *testing.T) {
	t.Parallel()

	conn := setupHandlerTestDB(t)
	h := NewRouteHandler(conn, nil)
	service := createTestService(t, conn, "users")

	c, w := newTestContext(t, http.MethodPost, "/routes", map[string]any{
		"service_id": service.ID,
		"paths":      []string{"/users"},
	})
	h.Create(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	methods, _ := body["methods"].([]any)
	if len(methods) != 5 {
		t.Fatalf("expected 5 default methods, got %v", body["methods"])
	}
	if body["strip_path"] != false {
		t.Fatalf("expected strip_path false by default, got %v", body["strip_path"])
	}
	if body["enabled"] != true {
		t.Fatalf("expected enabled by default, got %v", body["enabled"])
	}
}

func TestRouteHandler_CreateRejectsBadInput(t *testing.T) {
	t.Parallel()

	conn := setupHandlerTestDB(t)
	h := NewRouteHandler(conn, nil)
	service := createTestService(t, conn, "users")

	c, w := newTestContext(t, http.MethodPost, "/routes", map[string]any{
		"service_id": service.ID,
		"paths":      []string{"users"},
	})
	h.Create(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for relative path, got %d (%s)", w.Code, w.Body.String())
	}

	c, w = newTestContext(t, http.MethodPost, "/routes", map[string]any{
		"service_id": service.ID,
		"paths":      []string{},
	})
	h.Create(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty paths, got %d (%s)", w.Code, w.Body.String())
	}

	c, w = newTestContext(t, http.MethodPost, "/routes", map[string]any{
		"service_id": "00000000-0000-0000-0000-000000000000",
		"paths":      []string{"/users"},
	})
	h.Create(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown service, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestRouteHandler_CreateDuplicateName(t *testing.T) {
	t.Parallel()

	conn := setupHandlerTestDB(t)
	h := NewRouteHandler(conn, nil)
	service := createTestService(t, conn, "users")

	c, w := newTestContext(t, http.MethodPost, "/routes", map[string]any{
		"service_id": service.ID,
		"name":       "users-list",
		"paths":      []string{"/users"},
	})
	h.Create(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	c, w = newTestContext(t, http.MethodPost, "/routes", map[string]any{
		"service_id": service.ID,
		"name":       "users-list",
		"paths":      []string{"/users/v2"},
	})
	h.Create(c)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["error"] != "Route with name 'users-list' already exists" {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
}

func TestRouteHandler_UnnamedRoutesDoNotConflict(t *testing.T) {
	t.Parallel()

	conn := setupHandlerTestDB(t)
	h := NewRouteHandler(conn, nil)
	service := createTestService(t, conn, "users")

	for _, path := range []string{"/a", "/b"} {
		c, w := newTestContext(t, http.MethodPost, "/routes", map[string]any{
			"service_id": service.ID,
			"paths":      []string{path},
		})
		h.Create(c)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201 for unnamed route %s, got %d (%s)", path, w.Code, w.Body.String())
		}
	}
}

func TestRouteHandler_CreateSucceedsWhenBrokerDown(t *testing.T) {
	t.Parallel()

	conn := setupHandlerTestDB(t)
	h := NewRouteHandler(conn, notify.New(downPublisher{}))
	service := createTestService(t, conn, "users")

	c, w := newTestContext(t, http.MethodPost, "/routes", map[string]any{
		"service_id": service.ID,
		"paths":      []string{"/users"},
	})
	h.Create(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite broker outage, got %d (%s)", w.Code, w.Body.String())
	}
	routeID, _ := decodeBody(t, w)["id"].(string)

	var count int64
	conn.Model(&models.Route{}).Where("id = ?", routeID).Count(&count)
	if count != 1 {
		t.Fatalf("expected route persisted despite broker outage, got count=%d", count)
	}
}

func TestRouteHandler_DeleteCascadesPlugins(t *testing.T) {
	t.Parallel()

	conn := setupHandlerTestDB(t)
	h := NewRouteHandler(conn, nil)
	service := createTestService(t, conn, "users")

	route := &models.Route{
		ServiceID: service.ID,
		Paths:     []byte(`["/users"]`),
		Enabled:   true,
	}
	if errCreate := conn.Create(route).Error; errCreate != nil {
		t.Fatalf("create route: %v", errCreate)
	}
	plugin := &models.Plugin{
		Name:    "rate-limit",
		Scope:   models.ScopeRoute,
		RouteID: &route.ID,
		Config:  []byte(`{}`),
		Enabled: true,
	}
	if errCreate := conn.Create(plugin).Error; errCreate != nil {
		t.Fatalf("create plugin: %v", errCreate)
	}

	c, w := newTestContext(t, http.MethodDelete, "/routes/"+route.ID, nil)
	c.Params = gin.Params{{Key: "id", Value: route.ID}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (%s)", w.Code, w.Body.String())
	}
	var pluginCount int64
	conn.Model(&models.Plugin{}).Where("route_id = ?", route.ID).Count(&pluginCount)
	if pluginCount != 0 {
		t.Fatalf("expected route plugins removed, got %d", pluginCount)
	}
}

func TestRouteHandler_Details(t *testing.T) {
	t.Parallel()

	conn := setupHandlerTestDB(t)
	h := NewRouteHandler(conn, nil)
	service := createTestService(t, conn, "users")

	route := &models.Route{
		ServiceID: service.ID,
		Paths:     []byte(`["/users"]`),
		Enabled:   true,
	}
	if errCreate := conn.Create(route).Error; errCreate != nil {
		t.Fatalf("create route: %v", errCreate)
	}

	c, w := newTestContext(t, http.MethodGet, "/routes/"+route.ID+"/details", nil)
	c.Params = gin.Params{{Key: "id", Value: route.ID}}
	h.Details(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	serviceBody, _ := body["service"].(map[string]any)
	if serviceBody["name"] != "users" {
		t.Fatalf("expected owning service in details, got %v", body["service"])
	}
	if body["plugins_count"] != float64(0) {
		t.Fatalf("expected zero plugins, got %v", body["plugins_count"])
	}
}
