package handler

import "github.com/gin-gonic/gin"

// Handlers groups the API handlers mounted under /api
type Handlers struct {
	Thumbnail *ThumbnailHandler
	Style     *StyleHandler
	Remake    *RemakeHandler
	Health    *HealthHandler
}

// Register mounts every API route on api
func Register(api *gin.RouterGroup, h Handlers) {
	// Static thumbnails
	api.GET("/thumbnails", h.Thumbnail.List)
	api.GET("/thumbnails/:id/tiers", h.Thumbnail.CheckTiers)
	api.GET("/thumbnails/:id/:tier/download", h.Thumbnail.Download)
	api.GET("/thumbnails/:id/:tier/preview", h.Thumbnail.Preview)

	// Style analysis
	api.POST("/analyze-thumbnail", h.Style.Analyze)

	// Remakes
	api.POST("/remake", h.Remake.Create)
	api.GET("/remake/latest", h.Remake.Latest)
	api.GET("/remake/:id", h.Remake.GetFile)

	// Health check
	api.GET("/health", h.Health.HealthCheck)
}
