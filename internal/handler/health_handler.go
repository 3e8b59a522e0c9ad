package handler

import (
	"net/http"

	"ytthumb/internal/storage"
	"ytthumb/internal/style"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness and the active deployment settings
type HealthHandler struct {
	schema style.Schema
	store  *storage.Manager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(schema style.Schema, store *storage.Manager) *HealthHandler {
	return &HealthHandler{schema: schema, store: store}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "ytthumb",
		"style_schema":  h.schema,
		"stored_images": h.store.TrackedCount(),
	})
}
