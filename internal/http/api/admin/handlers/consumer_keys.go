package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/saidutt46/switchboard-admin/internal/models"
	"github.com/saidutt46/switchboard-admin/internal/security"
)

// plaintextWarning accompanies every key-creation response.
const plaintextWarning = "Store this API key securely. It will not be shown again."

// ConsumerKeyHandler manages API key credentials of consumers. Plaintext
// secrets are returned once at creation and never stored.
type ConsumerKeyHandler struct {
	db           *gorm.DB // Database handle.
	keyNamespace string   // Environment tag embedded in generated keys.
}

// NewConsumerKeyHandler constructs a consumer key handler.
func NewConsumerKeyHandler(db *gorm.DB, keyNamespace string) *ConsumerKeyHandler {
	return &ConsumerKeyHandler{db: db, keyNamespace: keyNamespace}
}

// createConsumerKeyRequest captures the payload for minting a key.
type createConsumerKeyRequest struct {
	Name      *string    `json:"name"`       // Optional display name.
	ExpiresAt *time.Time `json:"expires_at"` // Optional expiry time.
}

// loadConsumerKey fetches a key scoped to its owning consumer. A key id
// that exists under a different consumer is reported as not found.
func (h *ConsumerKeyHandler) loadConsumerKey(c *gin.Context) (*models.APIKey, bool) {
	consumerID := strings.TrimSpace(c.Param("id"))
	keyID := strings.TrimSpace(c.Param("key_id"))

	var consumer models.Consumer
	if errFind := h.db.WithContext(c.Request.Context()).First(&consumer, "id = ?", consumerID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Consumer with id '" + consumerID + "' not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch consumer failed"})
		return nil, false
	}

	var row models.APIKey
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND consumer_id = ?", keyID, consumerID).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key with id '" + keyID + "' not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch api key failed"})
		return nil, false
	}
	return &row, true
}

// Create mints a new API key for a consumer. The response carries the
// plaintext secret exactly once.
func (h *ConsumerKeyHandler) Create(c *gin.Context) {
	consumerID := strings.TrimSpace(c.Param("id"))

	var consumer models.Consumer
	if errFind := h.db.WithContext(c.Request.Context()).First(&consumer, "id = ?", consumerID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Consumer with id '" + consumerID + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch consumer failed"})
		return
	}

	var body createConsumerKeyRequest
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	// The display name may also arrive as a query parameter; a body field
	// takes precedence.
	if body.Name == nil {
		if name := strings.TrimSpace(c.Query("name")); name != "" {
			body.Name = &name
		}
	}

	plaintext, digest, errGenerate := security.GenerateAPIKey(h.keyNamespace)
	if errGenerate != nil {
		log.WithError(errGenerate).Error("failed to generate api key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create api key failed"})
		return
	}

	row := models.APIKey{
		ConsumerID: consumerID,
		KeyHash:    digest,
		Name:       body.Name,
		Enabled:    true,
		ExpiresAt:  body.ExpiresAt,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithField("consumer_id", consumerID).Error("failed to create api key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create api key failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          row.ID,
		"consumer_id": row.ConsumerID,
		"api_key":     plaintext,
		"key_preview": security.DigestPreview(row.KeyHash),
		"name":        row.Name,
		"enabled":     row.Enabled,
		"created_at":  row.CreatedAt,
		"expires_at":  row.ExpiresAt,
		"warning":     plaintextWarning,
	})
}

// List returns the keys of a consumer. Secrets are represented by a short
// digest preview only.
func (h *ConsumerKeyHandler) List(c *gin.Context) {
	consumerID := strings.TrimSpace(c.Param("id"))

	var consumer models.Consumer
	if errFind := h.db.WithContext(c.Request.Context()).First(&consumer, "id = ?", consumerID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Consumer with id '" + consumerID + "' not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch consumer failed"})
		return
	}

	var rows []models.APIKey
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("consumer_id = ?", consumerID).
		Order("created_at ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list api keys failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatAPIKeyRow(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Disable marks a key as unusable without deleting it. The stored digest
// is unchanged, so a later enable restores the same credential.
func (h *ConsumerKeyHandler) Disable(c *gin.Context) {
	row, ok := h.loadConsumerKey(c)
	if !ok {
		return
	}

	row.Enabled = false
	if errSave := h.db.WithContext(c.Request.Context()).Save(row).Error; errSave != nil {
		log.WithError(errSave).WithField("key_id", row.ID).Error("failed to disable api key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update api key failed"})
		return
	}
	c.JSON(http.StatusOK, formatAPIKeyRow(row))
}

// Enable re-activates a disabled key.
func (h *ConsumerKeyHandler) Enable(c *gin.Context) {
	row, ok := h.loadConsumerKey(c)
	if !ok {
		return
	}

	row.Enabled = true
	if errSave := h.db.WithContext(c.Request.Context()).Save(row).Error; errSave != nil {
		log.WithError(errSave).WithField("key_id", row.ID).Error("failed to enable api key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update api key failed"})
		return
	}
	c.JSON(http.StatusOK, formatAPIKeyRow(row))
}

// Revoke permanently deletes a key. Revocation cannot be undone; the
// credential stops authenticating as soon as the gateway observes the
// removal.
func (h *ConsumerKeyHandler) Revoke(c *gin.Context) {
	row, ok := h.loadConsumerKey(c)
	if !ok {
		return
	}

	if errDelete := h.db.WithContext(c.Request.Context()).Delete(row).Error; errDelete != nil {
		log.WithError(errDelete).WithField("key_id", row.ID).Error("failed to revoke api key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete api key failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// formatAPIKeyRow converts a key record into response JSON. The plaintext
// secret is never part of this shape.
func formatAPIKeyRow(row *models.APIKey) gin.H {
	return gin.H{
		"id":           row.ID,
		"consumer_id":  row.ConsumerID,
		"key_preview":  security.DigestPreview(row.KeyHash),
		"name":         row.Name,
		"enabled":      row.Enabled,
		"created_at":   row.CreatedAt,
		"last_used_at": row.LastUsedAt,
		"expires_at":   row.ExpiresAt,
	}
}
