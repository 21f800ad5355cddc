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

// ConsumerHandler manages CRUD for API client applications.
type ConsumerHandler struct {
	db       *gorm.DB         // Database handle.
	notifier *notify.Notifier // Change notifier for the data plane.
}

// NewConsumerHandler constructs a consumer handler.
func NewConsumerHandler(db *gorm.DB, notifier *notify.Notifier) *ConsumerHandler {
	return &ConsumerHandler{db: db, notifier: notifier}
}

// createConsumerRequest captures the payload for creating consumers.
type createConsumerRequest struct {
	Username string         `json:"username"`  // Unique consumer username.
	Email    *string        `json:"email"`     // Optional contact email.
	CustomID *string        `json:"custom_id"` // Optional external correlation id.
	Metadata map[string]any `json:"metadata"`  // Optional free-form metadata.
}

// updateConsumerRequest captures optional fields for partial updates.
type updateConsumerRequest struct {
	Username *string         `json:"username"`
	Email    *string         `json:"email"`
	CustomID *string         `json:"custom_id"`
	Metadata *map[string]any `json:"metadata"`
}

// Create validates and inserts a consumer, then notifies the data plane.
func (h *ConsumerHandler) Create(c *gin.Context) {
	var body createConsumerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	var existing models.Consumer
	errExisting := h.db.WithContext(c.Request.Context()).First(&existing, "username = ?", username).Error
	if errExisting == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Consumer with username '" + username + "' already exists"})
		return
	}
	if !errors.Is(errExisting, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create consumer failed"})
		return
	}

	metadataJSON, errMetadata := marshalJSON(body.Metadata)
	if errMetadata != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata"})
		return
	}

	row := models.Consumer{
		Username: username,
		Email:    body.Email,
		CustomID: body.CustomID,
		Metadata: metadataJSON,
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		if isDuplicate(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Consumer with username '" + username + "' already exists"})
			return
		}
		log.WithError(errCreate).WithField("username", username).Error("failed to create consumer")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create consumer failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityConsumer, row.ID, notify.ActionCreated, map[string]any{
		"username": row.Username,
	})

	c.JSON(http.StatusCreated, formatConsumerRow(&row))
}

// List returns consumers with pagination and an optional case-insensitive
// username substring match.
func (h *ConsumerHandler) List(c *gin.Context) {
	skip, limit := parsePagination(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Consumer{})
	if username := strings.TrimSpace(c.Query("username")); username != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+username+"%")
		q = q.Where(db.CaseInsensitiveLikeExpr(h.db, "username"), pattern)
	}

	var rows []models.Consumer
	if errFind := q.
		Order("created_at ASC").
		Offset(skip).
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list consumers failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatConsumerRow(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a single consumer by id.
func (h *ConsumerHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Consumer
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Consumer with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch consumer failed"})
		return
	}
	c.JSON(http.StatusOK, formatConsumerRow(&row))
}

// Update applies a partial update to a consumer and notifies the data plane.
func (h *ConsumerHandler) Update(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Consumer
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Consumer with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch consumer failed"})
		return
	}

	var body updateConsumerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updated := make([]string, 0, 4)
	if body.Username != nil {
		username := strings.TrimSpace(*body.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
			return
		}
		if username != row.Username {
			var existing models.Consumer
			errExisting := h.db.WithContext(c.Request.Context()).
				Where("username = ? AND id <> ?", username, id).
				First(&existing).Error
			if errExisting == nil {
				c.JSON(http.StatusConflict, gin.H{"error": "Consumer with username '" + username + "' already exists"})
				return
			}
			if !errors.Is(errExisting, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "update consumer failed"})
				return
			}
		}
		row.Username = username
		updated = append(updated, "username")
	}
	if body.Email != nil {
		row.Email = body.Email
		updated = append(updated, "email")
	}
	if body.CustomID != nil {
		row.CustomID = body.CustomID
		updated = append(updated, "custom_id")
	}
	if body.Metadata != nil {
		metadataJSON, errMetadata := marshalJSON(*body.Metadata)
		if errMetadata != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata"})
			return
		}
		row.Metadata = metadataJSON
		updated = append(updated, "metadata")
	}

	row.UpdatedAt = time.Now().UTC()
	if errSave := h.db.WithContext(c.Request.Context()).Save(&row).Error; errSave != nil {
		if isDuplicate(errSave) {
			c.JSON(http.StatusConflict, gin.H{"error": "Consumer with username '" + row.Username + "' already exists"})
			return
		}
		log.WithError(errSave).WithField("consumer_id", id).Error("failed to update consumer")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update consumer failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityConsumer, row.ID, notify.ActionUpdated, map[string]any{
		"username":       row.Username,
		"updated_fields": updated,
	})

	c.JSON(http.StatusOK, formatConsumerRow(&row))
}

// Delete removes a consumer together with its API keys and consumer-scoped
// plugins.
func (h *ConsumerHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var row models.Consumer
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Consumer with id '" + id + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch consumer failed"})
		return
	}

	if errDelete := store.DeleteConsumerCascade(c.Request.Context(), h.db, id); errDelete != nil {
		if errors.Is(errDelete, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Consumer with id '" + id + "' not found"})
			return
		}
		log.WithError(errDelete).WithField("consumer_id", id).Error("failed to delete consumer")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete consumer failed"})
		return
	}

	h.notifier.ConfigChanged(c.Request.Context(), notify.EntityConsumer, id, notify.ActionDeleted, map[string]any{
		"username": row.Username,
	})

	c.Status(http.StatusNoContent)
}

// formatConsumerRow converts a consumer record into response JSON.
func formatConsumerRow(row *models.Consumer) gin.H {
	return gin.H{
		"id":         row.ID,
		"username":   row.Username,
		"email":      row.Email,
		"custom_id":  row.CustomID,
		"metadata":   decodeMap(row.Metadata),
		"created_at": row.CreatedAt,
		"updated_at": row.UpdatedAt,
	}
}
