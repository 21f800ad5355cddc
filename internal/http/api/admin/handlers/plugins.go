package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/catalog"
	"github.com/saidutt46/switchboard-admin/internal/models"
	"github.com/saidutt46/switchboard-admin/internal/notify"
	"github.com/saidutt46/switchboard-admin/internal/scope"
)

// Plugin priority bounds; lower priority executes first.
const (
	minPluginPriority = 1
	maxPluginPriority = 1000
)

// PluginHandler manages plugin attachments across the four scopes.
type PluginHandler struct {
	db       *gorm.DB         // Database handle.
	notifier *notify.Notifier // Change notifier for the data plane.
}

// NewPluginHandler constructs a plugin handler.
func NewPluginHandler(db *gorm.DB, notifier *notify.Notifier) *PluginHandler {
	return &PluginHandler{db: db, notifier: notifier}
}

// createPluginRequest captures the payload for attaching a plugin.
type createPluginRequest struct {
	Name       string         `json:"name"`        // Plugin type name.
	Scope      string         `json:"scope"`       // global, service, route or consumer.
	ServiceID  *string        `json:"service_id"`  // Set for service scope.
	RouteID    *string        `json:"route_id"`    // Set for route scope.
	ConsumerID *string        `json:"consumer_id"` // Set for consumer scope.
	Config     map[string]any `json:"config"`      // Plugin configuration.
	Enabled    *bool          `json:"enabled"`     // Optional enabled state.
	Priority   *int           `json:"priority"`    // Optional priority, 1-1000.
}

// updatePluginRequest captures optional fields for partial updates.
type updatePluginRequest struct {
	Name       *string         `json:"name"`
	Scope      *string         `json:"scope"`
	ServiceID  *string         `json:"service_id"`
	RouteID    *string         `json:"route_id"`
	ConsumerID *string         `json:"consumer_id"`
	Config     *map[string]any `json:"config"`
	Enabled    *bool           `json:"enabled"`
	Priority   *int            `json:"priority"`
}

// scopeFields are the request fields that participate in the scope
// exclusivity rule.
var scopeFields = []string{"scope", "service_id", "route_id", "consumer_id"}

// Create validates scope exclusivity, inserts the plugin and notifies the
// data plane.
func (h *PluginHandler) Create(c *gin.Context) {
	var body createPluginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.Priority != nil && (*body.Priority < minPluginPriority || *body.Priority > maxPluginPriority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be between 1 and 1000"})
		return
	}

	pluginScope := strings.TrimSpace(body.Scope)
	if pluginScope == "" {
		pluginScope = models.ScopeGlobal
	}

	resolved, errValidate := scope.Validate(c.Request.Context(), h.db, pluginScope, body.ServiceID, body.RouteID, body.ConsumerID)
	if errValidate != nil {
		if scope.IsInvalidScope(errValidate) {
			status := http.StatusBadRequest
			if strings.Contains(errValidate.Error(), "not found") {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": errValidate.Error()})
			return
		}
		log.WithError(errValidate).Error("failed to validate plugin scope")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create plugin failed"})
		return
	}

	configJSON, errConfig := marshalJSON(body.Config)
	if errConfig != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config"})
		return
	}
	if configJSON == nil {
		configJSON = []byte("{}")
	}

	row := models.Plugin{
		Name:       name,
		Scope:      pluginScope,
		ServiceID:  body.ServiceID,
		RouteID:    body.RouteID,
		ConsumerID: body.ConsumerID,
		Config:     configJSON,
		Enabled:    true,
		Priority:   100,
	}
	if body.Enabled != nil {
		row.Enabled = *body.Enabled
	}
	if body.Priority != nil {
		row.Priority = *body.Priority
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithField("name", name).Error("failed to create plugin")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create plugin failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityPlugin, row.ID, notify.ActionCreated, map[string]any{
		"name":     row.Name,
		"scope":    row.Scope,
		"entities": resolved.EntityNames,
	})

	c.JSON(http.StatusCreated, formatPluginRow(&row))
}

// List returns plugins ordered by execution position: priority first, then
// creation time, then id so equal rows always list in a stable order.
func (h *PluginHandler) List(c *gin.Context) {
	skip, limit := parsePagination(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Plugin{})
	if scopeFilter := strings.TrimSpace(c.Query("scope")); scopeFilter != "" {
		q = q.Where("scope = ?", scopeFilter)
	}
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		q = q.Where("name = ?", name)
	}
	if serviceID := strings.TrimSpace(c.Query("service_id")); serviceID != "" {
		q = q.Where("service_id = ?", serviceID)
	}
	if routeID := strings.TrimSpace(c.Query("route_id")); routeID != "" {
		q = q.Where("route_id = ?", routeID)
	}
	if consumerID := strings.TrimSpace(c.Query("consumer_id")); consumerID != "" {
		q = q.Where("consumer_id = ?", consumerID)
	}
	if boolQuery(c, "enabled_only") {
		q = q.Where("enabled = ?", true)
	}

	var rows []models.Plugin
	if errFind := q.Order("priority ASC").
		Order("created_at ASC").
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plugins failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatPluginRow(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a single plugin by id.
func (h *PluginHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Plugin
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plugin with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch plugin failed"})
		return
	}
	c.JSON(http.StatusOK, formatPluginRow(&row))
}

// Update applies a partial update to a plugin. When the patch touches any
// scope field, the merged resulting state is re-validated against the
// exclusivity rule; a patch that leaves scope fields alone never triggers
// re-validation.
func (h *PluginHandler) Update(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Plugin
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plugin with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch plugin failed"})
		return
	}

	raw, errRead := c.GetRawData()
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	// The pointer struct cannot distinguish an absent field from an
	// explicit null, and clearing an association id requires null. Decode
	// the body a second time into a presence map to tell them apart.
	var body updatePluginRequest
	if errBind := json.Unmarshal(raw, &body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var present map[string]json.RawMessage
	if errBind := json.Unmarshal(raw, &present); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if body.Priority != nil && (*body.Priority < minPluginPriority || *body.Priority > maxPluginPriority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be between 1 and 1000"})
		return
	}

	touchesScope := false
	for _, field := range scopeFields {
		if _, ok := present[field]; ok {
			touchesScope = true
			break
		}
	}

	updated := make([]string, 0, 8)
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		row.Name = name
		updated = append(updated, "name")
	}
	if _, ok := present["scope"]; ok {
		if body.Scope == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scope cannot be null"})
			return
		}
		row.Scope = strings.TrimSpace(*body.Scope)
		updated = append(updated, "scope")
	}
	if _, ok := present["service_id"]; ok {
		row.ServiceID = body.ServiceID
		updated = append(updated, "service_id")
	}
	if _, ok := present["route_id"]; ok {
		row.RouteID = body.RouteID
		updated = append(updated, "route_id")
	}
	if _, ok := present["consumer_id"]; ok {
		row.ConsumerID = body.ConsumerID
		updated = append(updated, "consumer_id")
	}
	if body.Config != nil {
		configJSON, errConfig := marshalJSON(*body.Config)
		if errConfig != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config"})
			return
		}
		if configJSON == nil {
			configJSON = []byte("{}")
		}
		row.Config = configJSON
		updated = append(updated, "config")
	}
	if body.Enabled != nil {
		row.Enabled = *body.Enabled
		updated = append(updated, "enabled")
	}
	if body.Priority != nil {
		row.Priority = *body.Priority
		updated = append(updated, "priority")
	}

	if touchesScope {
		_, errValidate := scope.Validate(c.Request.Context(), h.db, row.Scope, row.ServiceID, row.RouteID, row.ConsumerID)
		if errValidate != nil {
			if scope.IsInvalidScope(errValidate) {
				status := http.StatusBadRequest
				if strings.Contains(errValidate.Error(), "not found") {
					status = http.StatusNotFound
				}
				c.JSON(status, gin.H{"error": errValidate.Error()})
				return
			}
			log.WithError(errValidate).Error("failed to validate plugin scope")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update plugin failed"})
			return
		}
	}

	row.UpdatedAt = time.Now().UTC()
	if errSave := h.db.WithContext(c.Request.Context()).Save(&row).Error; errSave != nil {
		log.WithError(errSave).WithField("plugin_id", id).Error("failed to update plugin")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update plugin failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityPlugin, row.ID, notify.ActionUpdated, map[string]any{
		"name":           row.Name,
		"scope":          row.Scope,
		"updated_fields": updated,
	})

	c.JSON(http.StatusOK, formatPluginRow(&row))
}

// Delete removes a plugin attachment.
func (h *PluginHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Plugin
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plugin with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch plugin failed"})
		return
	}

	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&row).Error; errDelete != nil {
		log.WithError(errDelete).WithField("plugin_id", id).Error("failed to delete plugin")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete plugin failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityPlugin, id, notify.ActionDeleted, map[string]any{
		"name":  row.Name,
		"scope": row.Scope,
	})

	c.Status(http.StatusNoContent)
}

// Available returns the static catalog of supported plugin types grouped by
// category.
func (h *PluginHandler) Available(c *gin.Context) {
	types, errLoad := catalog.Available()
	if errLoad != nil {
		log.WithError(errLoad).Error("failed to load plugin catalog")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load plugin catalog failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plugins": types})
}

// formatPluginRow converts a plugin record into response JSON.
func formatPluginRow(row *models.Plugin) gin.H {
	return gin.H{
		"id":          row.ID,
		"name":        row.Name,
		"scope":       row.Scope,
		"service_id":  row.ServiceID,
		"route_id":    row.RouteID,
		"consumer_id": row.ConsumerID,
		"config":      decodeMap(row.Config),
		"enabled":     row.Enabled,
		"priority":    row.Priority,
		"created_at":  row.CreatedAt,
		"updated_at":  row.UpdatedAt,
	}
}
