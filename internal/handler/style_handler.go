package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"ytthumb/internal/model"
	"ytthumb/internal/style"
	"ytthumb/pkg/logger"
	"ytthumb/pkg/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StyleHandler serves the analyze-thumbnail endpoint
type StyleHandler struct {
	analyzer     style.Analyzer
	allowedHosts []string
}

// NewStyleHandler creates a new style handler. Only thumbnails on
// allowedHosts are analyzed.
func NewStyleHandler(a style.Analyzer, allowedHosts []string) *StyleHandler {
	return &StyleHandler{analyzer: a, allowedHosts: allowedHosts}
}

// Analyze handles POST /api/analyze-thumbnail
func (h *StyleHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ThumbnailURL) == "" {
		c.JSON(http.StatusBadRequest, model.AnalyzeFailure{
			Success: false,
			Error:   "Thumbnail URL is required",
		})
		return
	}

	thumbnailURL := strings.TrimSpace(req.ThumbnailURL)
	result := style.Result{Attributes: style.Default(h.analyzer.Schema()), Source: style.SourceDefault}
	switch {
	case !validator.ValidateHTTPURL(thumbnailURL):
		logger.Logger.Warn("Thumbnail URL is not fetchable, using default style", zap.String("url", thumbnailURL))
	case !validator.ValidateURL(thumbnailURL, h.allowedHosts):
		logger.Logger.Warn("Thumbnail host is not allowed, using default style",
			zap.String("url", thumbnailURL),
			zap.Strings("allowed_hosts", h.allowedHosts))
	default:
		result = h.analyzer.Analyze(c.Request.Context(), thumbnailURL)
	}

	body, err := analyzeBody(result.Attributes)
	if err != nil {
		logger.Logger.Error("Failed to encode style attributes", zap.Error(err))
		body, _ = analyzeBody(style.Default(h.analyzer.Schema()))
	}

	c.Header("X-Style-Source", string(result.Source))
	c.JSON(http.StatusOK, body)
}

// analyzeBody flattens attrs next to "success": true
func analyzeBody(attrs style.Attributes) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["success"] = json.RawMessage("true")
	return fields, nil
}
