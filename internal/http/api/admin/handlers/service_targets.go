package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
)

// ServiceTargetHandler manages the backend instances of a service. Target
// mutations are not broadcast to the data plane; the gateway reads targets
// when it reloads the owning service.
type ServiceTargetHandler struct {
	db *gorm.DB // Database handle.
}

// NewServiceTargetHandler constructs a target handler.
func NewServiceTargetHandler(db *gorm.DB) *ServiceTargetHandler {
	return &ServiceTargetHandler{db: db}
}

// createServiceTargetRequest captures the payload for adding a target.
type createServiceTargetRequest struct {
	Target          string  `json:"target"`            // host:port of the backend instance.
	Weight          *int    `json:"weight"`            // Optional weight, defaults to 100.
	HealthCheckPath *string `json:"health_check_path"` // Optional probe path, defaults to /health.
	Enabled         *bool   `json:"enabled"`           // Optional enabled state.
}

// updateServiceTargetRequest captures optional fields for partial updates.
type updateServiceTargetRequest struct {
	Target          *string `json:"target"`
	Weight          *int    `json:"weight"`
	HealthCheckPath *string `json:"health_check_path"`
	Enabled         *bool   `json:"enabled"`
}

// Create adds a backend target to a service.
func (h *ServiceTargetHandler) Create(c *gin.Context) {
	serviceID := strings.TrimSpace(c.Param("id"))

	var service models.Service
	if errFind := h.db.WithContext(c.Request.Context()).First(&service, "id = ?", serviceID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + serviceID + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service failed"})
		return
	}

	var body createServiceTargetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	target := strings.TrimSpace(body.Target)
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target is required"})
		return
	}

	row := models.ServiceTarget{
		ServiceID:       serviceID,
		Target:          target,
		Weight:          100,
		HealthCheckPath: "/health",
		Enabled:         true,
	}
	if body.Weight != nil {
		if *body.Weight < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weight must be positive"})
			return
		}
		row.Weight = *body.Weight
	}
	if body.HealthCheckPath != nil {
		row.HealthCheckPath = strings.TrimSpace(*body.HealthCheckPath)
	}
	if body.Enabled != nil {
		row.Enabled = *body.Enabled
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithField("service_id", serviceID).Error("failed to create service target")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create target failed"})
		return
	}

	c.JSON(http.StatusCreated, formatServiceTargetRow(&row))
}

// List returns the targets of a service.
func (h *ServiceTargetHandler) List(c *gin.Context) {
	serviceID := strings.TrimSpace(c.Param("id"))

	var service models.Service
	if errFind := h.db.WithContext(c.Request.Context()).First(&service, "id = ?", serviceID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Service with id '" + serviceID + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch service failed"})
		return
	}

	var rows []models.ServiceTarget
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("service_id = ?", serviceID).
		Order("created_at ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list targets failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatServiceTargetRow(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Update applies a partial update to a target.
func (h *ServiceTargetHandler) Update(c *gin.Context) {
	serviceID := strings.TrimSpace(c.Param("id"))
	targetID := strings.TrimSpace(c.Param("target_id"))

	var row models.ServiceTarget
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND service_id = ?", targetID, serviceID).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Target with id '" + targetID + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch target failed"})
		return
	}

	var body updateServiceTargetRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if body.Target != nil {
		target := strings.TrimSpace(*body.Target)
		if target == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "target is required"})
			return
		}
		row.Target = target
	}
	if body.Weight != nil {
		if *body.Weight < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weight must be positive"})
			return
		}
		row.Weight = *body.Weight
	}
	if body.HealthCheckPath != nil {
		row.HealthCheckPath = strings.TrimSpace(*body.HealthCheckPath)
	}
	if body.Enabled != nil {
		row.Enabled = *body.Enabled
	}

	if errSave := h.db.WithContext(c.Request.Context()).Save(&row).Error; errSave != nil {
		log.WithError(errSave).WithField("target_id", targetID).Error("failed to update service target")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update target failed"})
		return
	}

	c.JSON(http.StatusOK, formatServiceTargetRow(&row))
}

// Delete removes a target from a service.
func (h *ServiceTargetHandler) Delete(c *gin.Context) {
	serviceID := strings.TrimSpace(c.Param("id"))
	targetID := strings.TrimSpace(c.Param("target_id"))

	result := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND service_id = ?", targetID, serviceID).
		Delete(&models.ServiceTarget{})
	if result.Error != nil {
		log.WithError(result.Error).WithField("target_id", targetID).Error("failed to delete service target")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete target failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target with id '" + targetID + "' not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// formatServiceTargetRow converts a target record into response JSON.
func formatServiceTargetRow(row *models.ServiceTarget) gin.H {
	return gin.H{
		"id":                row.ID,
		"service_id":        row.ServiceID,
		"target":            row.Target,
		"weight":            row.Weight,
		"health_check_path": row.HealthCheckPath,
		"enabled":           row.Enabled,
		"created_at":        row.CreatedAt,
	}
}
