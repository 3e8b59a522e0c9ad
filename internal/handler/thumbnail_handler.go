package handler

import (
	"errors"
	"net/http"

	"ytthumb/internal/metrics"
	"ytthumb/internal/model"
	"ytthumb/internal/service"
	"ytthumb/internal/youtube"
	"ytthumb/pkg/logger"
	"ytthumb/pkg/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ThumbnailHandler handles static thumbnail requests
type ThumbnailHandler struct {
	thumbnails *service.ThumbnailService
}

// NewThumbnailHandler creates a new thumbnail handler
func NewThumbnailHandler(ts *service.ThumbnailService) *ThumbnailHandler {
	return &ThumbnailHandler{thumbnails: ts}
}

// List handles GET /api/thumbnails?url=
func (h *ThumbnailHandler) List(c *gin.Context) {
	resp, err := h.thumbnails.List(c.Query("url"))
	if err != nil {
		logger.Logger.Warn("Rejected thumbnail lookup", zap.String("url", c.Query("url")), zap.Error(err))
		badRequest(c, inputErrorCode(err), err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Download handles GET /api/thumbnails/:id/:tier/download
func (h *ThumbnailHandler) Download(c *gin.Context) {
	id, tier, ok := parseThumbnailParams(c)
	if !ok {
		return
	}

	thumb, err := h.thumbnails.Download(c.Request.Context(), id, tier)
	if err != nil {
		// the client opens the image itself
		rawURL := h.thumbnails.Resolver().Resolve(id, tier)
		logger.Logger.Warn("Thumbnail download failed, redirecting to origin",
			zap.String("video_id", string(id)),
			zap.String("tier", string(tier)),
			zap.Error(err))
		metrics.ThumbnailFallbackTotal.WithLabelValues("redirect").Inc()
		c.Redirect(http.StatusFound, rawURL)
		return
	}

	c.Header("Content-Disposition", validator.ContentDisposition(thumb.Filename, false))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, thumb.ContentType, thumb.Data)
}

// Preview handles GET /api/thumbnails/:id/:tier/preview
func (h *ThumbnailHandler) Preview(c *gin.Context) {
	id, tier, ok := parseThumbnailParams(c)
	if !ok {
		return
	}

	thumb, err := h.thumbnails.Preview(c.Request.Context(), id, tier)
	if err != nil {
		logger.Logger.Warn("Thumbnail preview unavailable",
			zap.String("video_id", string(id)),
			zap.String("tier", string(tier)),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Error:   "thumbnail_unavailable",
			Message: "The thumbnail could not be loaded",
			Code:    http.StatusBadGateway,
		})
		return
	}

	c.Header("X-Thumbnail-Tier", string(thumb.Tier))
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, thumb.ContentType, thumb.Data)
}

// CheckTiers handles GET /api/thumbnails/:id/tiers
func (h *ThumbnailHandler) CheckTiers(c *gin.Context) {
	id, err := youtube.ParseVideoID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_video_id", err)
		return
	}

	c.JSON(http.StatusOK, h.thumbnails.CheckTiers(c.Request.Context(), id))
}

func parseThumbnailParams(c *gin.Context) (youtube.VideoID, youtube.Tier, bool) {
	id, err := youtube.ParseVideoID(c.Param("id"))
	if err != nil {
		badRequest(c, inputErrorCode(err), err)
		return "", "", false
	}
	tier, err := youtube.ParseTier(c.Param("tier"))
	if err != nil {
		badRequest(c, inputErrorCode(err), err)
		return "", "", false
	}
	return id, tier, true
}

// inputErrorCode maps extraction and route errors to API error codes
func inputErrorCode(err error) string {
	switch {
	case errors.Is(err, youtube.ErrMissingURL):
		return "missing_url"
	case errors.Is(err, youtube.ErrInvalidVideoID):
		return "invalid_video_id"
	case errors.Is(err, youtube.ErrUnknownTier):
		return "invalid_tier"
	default:
		return "invalid_url"
	}
}

func badRequest(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   code,
		Message: youtube.Message(err),
		Code:    http.StatusBadRequest,
	})
}
