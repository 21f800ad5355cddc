package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/db"
	"github.com/saidutt46/switchboard-admin/internal/models"
	"github.com/saidutt46/switchboard-admin/internal/notify"
	"github.com/saidutt46/switchboard-admin/internal/store"
)

// validProtocols are the upstream protocols a service may declare.
var validProtocols = map[string]bool{
	"http":  true,
	"https": true,
	"grpc":  true,
}

// ServiceHandler manages CRUD for backend services.
type ServiceHandler struct {
	db       *gorm.DB         // Database handle.
	notifier *notify.Notifier // Change notifier for the data plane.
}

// NewServiceHandler constructs a service handler.
func NewServiceHandler(db *gorm.DB, notifier *notify.Notifier) *ServiceHandler {
	return &ServiceHandler{db: db, notifier: notifier}
}

// createServiceRequest captures the payload for creating services.
type createServiceRequest struct {
	Name             string  `json:"name"`               // Unique service name.
	Protocol         *string `json:"protocol"`           // Optional protocol, defaults to http.
	Host             string  `json:"host"`               // Upstream host.
	Port             *int    `json:"port"`               // Optional port, defaults to 80.
	Path             *string `json:"path"`               // Optional path prefix.
	ConnectTimeoutMs *int    `json:"connect_timeout_ms"` // Optional connect timeout.
	ReadTimeoutMs    *int    `json:"read_timeout_ms"`    // Optional read timeout.
	WriteTimeoutMs   *int    `json:"write_timeout_ms"`   // Optional write timeout.
	Retries          *int    `json:"retries"`            // Optional retry attempts.
	LoadBalancerType *string `json:"load_balancer_type"` // Optional LB strategy tag.
	Enabled          *bool   `json:"enabled"`            // Optional enabled state.
}

// updateServiceRequest captures optional fields for partial updates. Only
// non-nil fields are applied.
type updateServiceRequest struct {
	Name             *string `json:"name"`
	Protocol         *string `json:"protocol"`
	Host             *string `json:"host"`
	Port             *int    `json:"port"`
	Path             *string `json:"path"`
	ConnectTimeoutMs *int    `json:"connect_timeout_ms"`
	ReadTimeoutMs    *int    `json:"read_timeout_ms"`
	WriteTimeoutMs   *int    `json:"write_timeout_ms"`
	Retries          *int    `json:"retries"`
	LoadBalancerType *string `json:"load_balancer_type"`
	Enabled          *bool   `json:"enabled"`
}

// Create validates and inserts a service, then notifies the data plane.
func (h *ServiceHandler) Create(c *gin.Context) {
	var body createServiceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	host := strings.TrimSpace(body.Host)
	if host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host is required"})
		return
	}

	protocol := "http"
	if body.Protocol != nil {
		protocol = strings.ToLower(strings.TrimSpace(*body.Protocol))
	}
	if !validProtocols[protocol] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "protocol must be one of: http, https, grpc"})
		return
	}

	port := 80
	if body.Port != nil {
		port = *body.Port
	}
	if port < 1 || port > 65535 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "port must be between 1 and 65535"})
		return
	}

	retries := 0
	if body.Retries != nil {
		retries = *body.Retries
	}
	if retries < 0 || retries > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "retries must be between 0 and 10"})
		return
	}

	var existing models.Service
	errExisting := h.db.WithContext(c.Request.Context()).First(&existing, "name = ?", name).Error
	if errExisting == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Service with name '" + name + "' already exists"})
		return
	}
	if !errors.Is(errExisting, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create service failed"})
		return
	}

	row := models.Service{
		Name:             name,
		Protocol:         protocol,
		Host:             host,
		Port:             port,
		Path:             strings.TrimSpace(derefString(body.Path)),
		ConnectTimeoutMs: 5000,
		ReadTimeoutMs:    60000,
		WriteTimeoutMs:   60000,
		Retries:          retries,
		LoadBalancerType: "round-robin",
		Enabled:          true,
	}
	if body.ConnectTimeoutMs != nil {
		row.ConnectTimeoutMs = *body.ConnectTimeoutMs
	}
	if body.ReadTimeoutMs != nil {
		row.ReadTimeoutMs = *body.ReadTimeoutMs
	}
	if body.WriteTimeoutMs != nil {
		row.WriteTimeoutMs = *body.WriteTimeoutMs
	}
	if body.LoadBalancerType != nil {
		row.LoadBalancerType = strings.TrimSpace(*body.LoadBalancerType)
	}
	if body.Enabled != nil {
		row.Enabled = *body.Enabled
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		if isDuplicate(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Service with name '" + name + "' already exists"})
			return
		}
		log.WithError(errCreate).WithField("service_name", name).Error("failed to create service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create service failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityService, row.ID, notify.ActionCreated, map[string]any{
		"name": row.Name,
		"host": row.Host,
		"port": row.Port,
	})

	c.JSON(http.StatusCreated, formatServiceRow(&row))
}

// List returns services with pagination, an optional enabled filter and an
// optional case-insensitive name substring match.
func (h *ServiceHandler) List(c *gin.Context) {
	skip, limit := parsePagination(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Service{})
	if boolQuery(c, "enabled_only") {
		q = q.Where("enabled = ?", true)
	}
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+name+"%")
		q = q.Where(db.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}

	var rows []models.Service
	if errFind := q.Order("created_at ASC").Offset(skip).Limit(limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list services failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatServiceRow(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a single service by id.
func (h *ServiceHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Service
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service failed"})
		return
	}
	c.JSON(http.StatusOK, formatServiceRow(&row))
}

// Update applies a partial update to a service and notifies the data plane.
func (h *ServiceHandler) Update(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Service
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service failed"})
		return
	}

	var body updateServiceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updated := make([]string, 0, 8)
	if body.Name != nil {
		newName := strings.TrimSpace(*body.Name)
		if newName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		if newName != row.Name {
			var existing models.Service
			errExisting := h.db.WithContext(c.Request.Context()).
				Where("name = ? AND id <> ?", newName, id).
				First(&existing).Error
			if errExisting == nil {
				c.JSON(http.StatusConflict, gin.H{"error": "Service with name '" + newName + "' already exists"})
				return
			}
			if !errors.Is(errExisting, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "update service failed"})
				return
			}
		}
		row.Name = newName
		updated = append(updated, "name")
	}
	if body.Protocol != nil {
		protocol := strings.ToLower(strings.TrimSpace(*body.Protocol))
		if !validProtocols[protocol] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "protocol must be one of: http, https, grpc"})
			return
		}
		row.Protocol = protocol
		updated = append(updated, "protocol")
	}
	if body.Host != nil {
		host := strings.TrimSpace(*body.Host)
		if host == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "host is required"})
			return
		}
		row.Host = host
		updated = append(updated, "host")
	}
	if body.Port != nil {
		if *body.Port < 1 || *body.Port > 65535 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "port must be between 1 and 65535"})
			return
		}
		row.Port = *body.Port
		updated = append(updated, "port")
	}
	if body.Path != nil {
		row.Path = strings.TrimSpace(*body.Path)
		updated = append(updated, "path")
	}
	if body.ConnectTimeoutMs != nil {
		row.ConnectTimeoutMs = *body.ConnectTimeoutMs
		updated = append(updated, "connect_timeout_ms")
	}
	if body.ReadTimeoutMs != nil {
		row.ReadTimeoutMs = *body.ReadTimeoutMs
		updated = append(updated, "read_timeout_ms")
	}
	if body.WriteTimeoutMs != nil {
		row.WriteTimeoutMs = *body.WriteTimeoutMs
		updated = append(updated, "write_timeout_ms")
	}
	if body.Retries != nil {
		if *body.Retries < 0 || *body.Retries > 10 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "retries must be between 0 and 10"})
			return
		}
		row.Retries = *body.Retries
		updated = append(updated, "retries")
	}
	if body.LoadBalancerType != nil {
		row.LoadBalancerType = strings.TrimSpace(*body.LoadBalancerType)
		updated = append(updated, "load_balancer_type")
	}
	if body.Enabled != nil {
		row.Enabled = *body.Enabled
		updated = append(updated, "enabled")
	}

	row.UpdatedAt = time.Now().UTC()
	if errSave := h.db.WithContext(c.Request.Context()).Save(&row).Error; errSave != nil {
		if isDuplicate(errSave) {
			c.JSON(http.StatusConflict, gin.H{"error": "Service with name '" + row.Name + "' already exists"})
			return
		}
		log.WithError(errSave).WithField("service_id", id).Error("failed to update service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update service failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityService, row.ID, notify.ActionUpdated, map[string]any{
		"name":           row.Name,
		"updated_fields": updated,
	})

	c.JSON(http.StatusOK, formatServiceRow(&row))
}

// Delete removes a service and cascades to its targets, routes and plugins.
func (h *ServiceHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Service
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service failed"})
		return
	}

	if errDelete := store.DeleteServiceCascade(c.Request.Context(), h.db, id); errDelete != nil {
		if errors.Is(errDelete, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + id + "' not found"})
			return
		}
		log.WithError(errDelete).WithField("service_id", id).Error("failed to delete service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete service failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityService, id, notify.ActionDeleted, map[string]any{
		"name": row.Name,
	})

	c.Status(http.StatusNoContent)
}

// Stats returns counts of entities associated with a service.
func (h *ServiceHandler) Stats(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	ctx := c.Request.Context()

	var row models.Service
	if errFind := h.db.WithContext(ctx).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service failed"})
		return
	}

	var routeCount, targetCount, pluginCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.Route{}).Where("service_id = ?", id).Count(&routeCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service stats failed"})
		return
	}
	if errCount := h.db.WithContext(ctx).Model(&models.ServiceTarget{}).Where("service_id = ?", id).Count(&targetCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service stats failed"})
		return
	}
	if errCount := h.db.WithContext(ctx).Model(&models.Plugin{}).Where("service_id = ?", id).Count(&pluginCount).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service stats failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service_id":    row.ID,
		"service_name":  row.Name,
		"routes_count":  routeCount,
		"targets_count": targetCount,
		"plugins_count": pluginCount,
		"enabled":       row.Enabled,
	})
}

// formatServiceRow converts a service record into response JSON.
func formatServiceRow(row *models.Service) gin.H {
	return gin.H{
		"id":                 row.ID,
		"name":               row.Name,
		"protocol":           row.Protocol,
		"host":               row.Host,
		"port":               row.Port,
		"path":               row.Path,
		"connect_timeout_ms": row.ConnectTimeoutMs,
		"read_timeout_ms":    row.ReadTimeoutMs,
		"write_timeout_ms":   row.WriteTimeoutMs,
		"retries":            row.Retries,
		"load_balancer_type": row.LoadBalancerType,
		"enabled":            row.Enabled,
		"created_at":         row.CreatedAt,
		"updated_at":         row.UpdatedAt,
	}
}
