package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
	"github.com/saidutt46/switchboard-admin/internal/notify"
	"github.com/saidutt46/switchboard-admin/internal/store"
)

// validMethods is the set of HTTP methods a route may match.
var validMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
}

// defaultMethods is applied when a route declares no method list.
var defaultMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// RouteHandler manages CRUD for request-matching routes.
type RouteHandler struct {
	db       *gorm.DB         // Database handle.
	notifier *notify.Notifier // Change notifier for the data plane.
}

// NewRouteHandler constructs a route handler.
func NewRouteHandler(db *gorm.DB, notifier *notify.Notifier) *RouteHandler {
	return &RouteHandler{db: db, notifier: notifier}
}

// createRouteRequest captures the payload for creating routes.
type createRouteRequest struct {
	ServiceID    string    `json:"service_id"`    // Owning service id.
	Name         *string   `json:"name"`          // Optional unique route name.
	Hosts        []string  `json:"hosts"`         // Optional host-match list.
	Paths        []string  `json:"paths"`         // Non-empty path-match list.
	Methods      []string  `json:"methods"`       // Optional method list.
	StripPath    *bool     `json:"strip_path"`    // Optional path stripping flag.
	PreserveHost *bool     `json:"preserve_host"` // Optional host preservation flag.
	Enabled      *bool     `json:"enabled"`       // Optional enabled state.
}

// updateRouteRequest captures optional fields for partial updates.
type updateRouteRequest struct {
	ServiceID    *string   `json:"service_id"`
	Name         *string   `json:"name"`
	Hosts        *[]string `json:"hosts"`
	Paths        *[]string `json:"paths"`
	Methods      *[]string `json:"methods"`
	StripPath    *bool     `json:"strip_path"`
	PreserveHost *bool     `json:"preserve_host"`
	Enabled      *bool     `json:"enabled"`
}

// normalizeMethods uppercases a method list and rejects unknown methods.
func normalizeMethods(methods []string) ([]string, error) {
	out := make([]string, 0, len(methods))
	for _, method := range methods {
		upper := strings.ToUpper(strings.TrimSpace(method))
		if !validMethods[upper] {
			return nil, fmt.Errorf("Invalid HTTP method: %s", method)
		}
		out = append(out, upper)
	}
	return out, nil
}

// validatePaths requires a non-empty list of absolute paths.
func validatePaths(paths []string) error {
	if len(paths) == 0 {
		return errors.New("paths must contain at least one entry")
	}
	for _, path := range paths {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("Path must start with /: %s", path)
		}
	}
	return nil
}

// Create validates and inserts a route, then notifies the data plane.
func (h *RouteHandler) Create(c *gin.Context) {
	var body createRouteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	serviceID := strings.TrimSpace(body.ServiceID)
	if serviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service_id is required"})
		return
	}

	if errPaths := validatePaths(body.Paths); errPaths != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errPaths.Error()})
		return
	}

	methods := defaultMethods
	if len(body.Methods) > 0 {
		normalized, errMethods := normalizeMethods(body.Methods)
		if errMethods != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errMethods.Error()})
			return
		}
		methods = normalized
	}

	var service models.Service
	if errFind := h.db.WithContext(c.Request.Context()).First(&service, "id = ?", serviceID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + serviceID + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service failed"})
		return
	}

	var name *string
	if body.Name != nil {
		trimmed := strings.TrimSpace(*body.Name)
		if trimmed != "" {
			var existing models.Route
			errExisting := h.db.WithContext(c.Request.Context()).First(&existing, "name = ?", trimmed).Error
			if errExisting == nil {
				c.JSON(http.StatusConflict, gin.H{"error": "Route with name '" + trimmed + "' already exists"})
				return
			}
			if !errors.Is(errExisting, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "create route failed"})
				return
			}
			name = &trimmed
		}
	}

	hostsJSON, errHosts := marshalJSON(body.Hosts)
	if errHosts != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hosts"})
		return
	}
	pathsJSON, errPathsJSON := marshalJSON(body.Paths)
	if errPathsJSON != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paths"})
		return
	}
	methodsJSON, errMethodsJSON := marshalJSON(methods)
	if errMethodsJSON != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid methods"})
		return
	}

	row := models.Route{
		ServiceID: serviceID,
		Name:      name,
		Hosts:     hostsJSON,
		Paths:     pathsJSON,
		Methods:   methodsJSON,
		Enabled:   true,
	}
	if body.StripPath != nil {
		row.StripPath = *body.StripPath
	}
	if body.PreserveHost != nil {
		row.PreserveHost = *body.PreserveHost
	}
	if body.Enabled != nil {
		row.Enabled = *body.Enabled
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		if isDuplicate(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Route with name '" + derefString(name) + "' already exists"})
			return
		}
		log.WithError(errCreate).WithField("service_id", serviceID).Error("failed to create route")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create route failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityRoute, row.ID, notify.ActionCreated, map[string]any{
		"name":       derefString(row.Name),
		"paths":      decodeStringList(row.Paths),
		"service_id": row.ServiceID,
	})

	c.JSON(http.StatusCreated, formatRouteRow(&row))
}

// List returns routes with pagination, optionally filtered by service and
// enabled state.
func (h *RouteHandler) List(c *gin.Context) {
	skip, limit := parsePagination(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Route{})
	if serviceID := strings.TrimSpace(c.Query("service_id")); serviceID != "" {
		q = q.Where("service_id = ?", serviceID)
	}
	if boolQuery(c, "enabled_only") {
		q = q.Where("enabled = ?", true)
	}

	var rows []models.Route
	if errFind := q.Order("created_at ASC").Offset(skip).Limit(limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list routes failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatRouteRow(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a single route by id.
func (h *RouteHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Route
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch route failed"})
		return
	}
	c.JSON(http.StatusOK, formatRouteRow(&row))
}

// Update applies a partial update to a route and notifies the data plane.
func (h *RouteHandler) Update(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Route
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch route failed"})
		return
	}

	var body updateRouteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updated := make([]string, 0, 8)
	if body.ServiceID != nil {
		serviceID := strings.TrimSpace(*body.ServiceID)
		var service models.Service
		if errFind := h.db.WithContext(c.Request.Context()).First(&service, "id = ?", serviceID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + serviceID + "' not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service failed"})
			return
		}
		row.ServiceID = serviceID
		updated = append(updated, "service_id")
	}
	if body.Name != nil {
		trimmed := strings.TrimSpace(*body.Name)
		if trimmed == "" {
			row.Name = nil
		} else {
			if row.Name == nil || trimmed != *row.Name {
				var existing models.Route
				errExisting := h.db.WithContext(c.Request.Context()).
					Where("name = ? AND id <> ?", trimmed, id).
					First(&existing).Error
				if errExisting == nil {
					c.JSON(http.StatusConflict, gin.H{"error": "Route with name '" + trimmed + "' already exists"})
					return
				}
				if !errors.Is(errExisting, gorm.ErrRecordNotFound) {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "update route failed"})
					return
				}
			}
			row.Name = &trimmed
		}
		updated = append(updated, "name")
	}
	if body.Hosts != nil {
		hostsJSON, errHosts := marshalJSON(*body.Hosts)
		if errHosts != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hosts"})
			return
		}
		row.Hosts = hostsJSON
		updated = append(updated, "hosts")
	}
	if body.Paths != nil {
		if errPaths := validatePaths(*body.Paths); errPaths != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errPaths.Error()})
			return
		}
		pathsJSON, errPathsJSON := marshalJSON(*body.Paths)
		if errPathsJSON != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paths"})
			return
		}
		row.Paths = pathsJSON
		updated = append(updated, "paths")
	}
	if body.Methods != nil {
		normalized, errMethods := normalizeMethods(*body.Methods)
		if errMethods != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errMethods.Error()})
			return
		}
		if len(normalized) == 0 {
			normalized = defaultMethods
		}
		methodsJSON, errMethodsJSON := marshalJSON(normalized)
		if errMethodsJSON != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid methods"})
			return
		}
		row.Methods = methodsJSON
		updated = append(updated, "methods")
	}
	if body.StripPath != nil {
		row.StripPath = *body.StripPath
		updated = append(updated, "strip_path")
	}
	if body.PreserveHost != nil {
		row.PreserveHost = *body.PreserveHost
		updated = append(updated, "preserve_host")
	}
	if body.Enabled != nil {
		row.Enabled = *body.Enabled
		updated = append(updated, "enabled")
	}

	row.UpdatedAt = time.Now().UTC()
	if errSave := h.db.WithContext(c.Request.Context()).Save(&row).Error; errSave != nil {
		if isDuplicate(errSave) {
			c.JSON(http.StatusConflict, gin.H{"error": "Route with name '" + derefString(row.Name) + "' already exists"})
			return
		}
		log.WithError(errSave).WithField("route_id", id).Error("failed to update route")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update route failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityRoute, row.ID, notify.ActionUpdated, map[string]any{
		"name":           derefString(row.Name),
		"updated_fields": updated,
	})

	c.JSON(http.StatusOK, formatRouteRow(&row))
}

// Delete removes a route and its route-scoped plugins.
func (h *RouteHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Route
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch route failed"})
		return
	}

	if errDelete := store.DeleteRouteCascade(c.Request.Context(), h.db, id); errDelete != nil {
		if errors.Is(errDelete, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route with id '" + id + "' not found"})
			return
		}
		log.WithError(errDelete).WithField("route_id", id).Error("failed to delete route")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete route failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityRoute, id, notify.ActionDeleted, map[string]any{
		"name":       derefString(row.Name),
		"service_id": row.ServiceID,
	})

	c.Status(http.StatusNoContent)
}

// Details returns a route together with its owning service and the number
// of plugins attached to it.
func (h *RouteHandler) Details(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	ctx := c.Request.Context()

	var row models.Route
	if errFind := h.db.WithContext(ctx).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch route failed"})
		return
	}

	var service models.Service
	if errFind := h.db.WithContext(ctx).First(&service, "id = ?", row.ServiceID).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch route details failed"})
		return
	}

	var pluginCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.Plugin{}).Where("route_id = ?", id).Count(&pluginCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch route details failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"route": formatRouteRow(&row),
		"service": gin.H{
			"id":       service.ID,
			"name":     service.Name,
			"protocol": service.Protocol,
			"host":     service.Host,
			"port":     service.Port,
			"enabled":  service.Enabled,
		},
		"plugins_count": pluginCount,
	})
}

// formatRouteRow converts a route record into response JSON.
func formatRouteRow(row *models.Route) gin.H {
	return gin.H{
		"id":            row.ID,
		"service_id":    row.ServiceID,
		"name":          row.Name,
		"hosts":         decodeStringList(row.Hosts),
		"paths":         decodeStringList(row.Paths),
		"methods":       decodeStringList(row.Methods),
		"strip_path":    row.StripPath,
		"preserve_host": row.PreserveHost,
		"enabled":       row.Enabled,
		"created_at":    row.CreatedAt,
		"updated_at":    row.UpdatedAt,
	}
}
