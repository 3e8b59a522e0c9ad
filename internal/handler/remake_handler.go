package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ytthumb/internal/compose"
	"ytthumb/internal/model"
	"ytthumb/internal/service"
	"ytthumb/internal/storage"
	"ytthumb/internal/youtube"
	"ytthumb/pkg/logger"
	"ytthumb/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHeader carries the client's session id. Without it the client IP
// is the session.
const SessionHeader = "X-Session-ID"

const maxSessionLen = 128

// RemakeHandler handles thumbnail remake requests
type RemakeHandler struct {
	remakes        *service.RemakeService
	maxUploadBytes int64
}

// NewRemakeHandler creates a new remake handler
func NewRemakeHandler(rs *service.RemakeService, cfg *model.Config) *RemakeHandler {
	maxMB := cfg.Remake.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 10
	}
	return &RemakeHandler{
		remakes:        rs,
		maxUploadBytes: int64(maxMB) << 20,
	}
}

// Create handles POST /api/remake
func (h *RemakeHandler) Create(c *gin.Context) {
	id, err := remakeVideoID(c)
	if err != nil {
		badRequest(c, inputErrorCode(err), err)
		return
	}

	tier := youtube.TierMaxRes
	if raw := strings.TrimSpace(c.PostForm("tier")); raw != "" {
		if tier, err = youtube.ParseTier(raw); err != nil {
			badRequest(c, "invalid_tier", err)
			return
		}
	}

	userImage, ok := h.readUpload(c)
	if !ok {
		return
	}

	session := sessionID(c)
	result, err := h.remakes.Generate(c.Request.Context(), service.RemakeRequest{
		Session:   session,
		VideoID:   id,
		Tier:      tier,
		Caption:   c.PostForm("caption"),
		UserImage: userImage,
	})
	if err != nil {
		if errors.Is(err, service.ErrGenerationInProgress) {
			c.JSON(http.StatusConflict, model.ErrorResponse{
				Error:   "generation_in_progress",
				Message: "A thumbnail is already being generated. Please wait for it to finish.",
				Code:    http.StatusConflict,
			})
			return
		}
		if errors.Is(err, compose.ErrImageTooLarge) {
			imageTooLarge(c)
			return
		}

		message := "Failed to generate the thumbnail"
		var genErr *compose.GenerationError
		if errors.As(err, &genErr) {
			message = fmt.Sprintf("Failed to generate the thumbnail (%s)", genErr.Step)
		}
		logger.Logger.Error("Remake failed",
			zap.String("video_id", string(id)),
			zap.String("session", session),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "generation_failed",
			Message: message,
			Code:    http.StatusInternalServerError,
		})
		return
	}

	img := result.Image
	c.JSON(http.StatusOK, model.RemakeResponse{
		ID:           img.ID,
		VideoID:      img.VideoID,
		Tier:         string(result.Tier),
		DownloadLink: downloadLink(img.ID),
		PreviewLink:  downloadLink(img.ID) + "?inline=1",
		ExpiresAt:    img.ExpiresAt.Unix(),
		Style:        result.Style.Attributes,
		StyleSource:  result.Style.Source,
	})
}

// GetFile handles GET /api/remake/:id
func (h *RemakeHandler) GetFile(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid image id",
			Code:    http.StatusBadRequest,
		})
		return
	}

	img, err := h.remakes.Get(id)
	if err != nil {
		notFound(c, err)
		return
	}

	inline := c.Query("inline") == "1"
	c.Header("Content-Disposition", validator.ContentDisposition(img.Filename, inline))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", img.Data)

	logger.Logger.Info("Remade thumbnail served",
		zap.String("id", img.ID),
		zap.String("filename", img.Filename),
		zap.Bool("inline", inline))
}

// Latest handles GET /api/remake/latest?video_id=
func (h *RemakeHandler) Latest(c *gin.Context) {
	id, err := youtube.ParseVideoID(strings.TrimSpace(c.Query("video_id")))
	if err != nil {
		badRequest(c, "invalid_video_id", err)
		return
	}

	img, err := h.remakes.Latest(sessionID(c), id)
	if err != nil {
		notFound(c, err)
		return
	}

	c.JSON(http.StatusOK, model.LatestImageResponse{
		ID:           img.ID,
		VideoID:      img.VideoID,
		DownloadLink: downloadLink(img.ID),
		CreatedAt:    img.CreatedAt.Unix(),
		ExpiresAt:    img.ExpiresAt.Unix(),
		Style:        img.Style,
	})
}

// readUpload returns the optional "image" file. It writes the error response
// itself and reports false when the upload is rejected.
func (h *RemakeHandler) readUpload(c *gin.Context) ([]byte, bool) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_upload",
			Message: "The uploaded image could not be read",
			Code:    http.StatusBadRequest,
		})
		return nil, false
	}

	if fh.Size > h.maxUploadBytes {
		uploadTooLarge(c, h.maxUploadBytes)
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		logger.Logger.Error("Failed to open upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_upload",
			Message: "The uploaded image could not be read",
			Code:    http.StatusBadRequest,
		})
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_upload",
			Message: "The uploaded image could not be read",
			Code:    http.StatusBadRequest,
		})
		return nil, false
	}
	if int64(len(data)) > h.maxUploadBytes {
		uploadTooLarge(c, h.maxUploadBytes)
		return nil, false
	}

	mime, err := validator.SniffImage(data)
	if err != nil {
		logger.Logger.Warn("Rejected upload", zap.String("filename", fh.Filename), zap.Error(err))
		c.JSON(http.StatusUnsupportedMediaType, model.ErrorResponse{
			Error:   "unsupported_image",
			Message: "Please upload a JPEG, PNG, GIF, WebP or BMP image",
			Code:    http.StatusUnsupportedMediaType,
		})
		return nil, false
	}

	if err := compose.CheckDimensions(data); err != nil {
		logger.Logger.Warn("Rejected upload dimensions", zap.String("filename", fh.Filename), zap.Error(err))
		if errors.Is(err, compose.ErrImageTooLarge) {
			imageTooLarge(c)
			return nil, false
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_upload",
			Message: "The uploaded image could not be read",
			Code:    http.StatusBadRequest,
		})
		return nil, false
	}

	logger.Logger.Debug("Upload accepted",
		zap.String("filename", fh.Filename),
		zap.String("mime", mime),
		zap.Int("size", len(data)))
	return data, true
}

func remakeVideoID(c *gin.Context) (youtube.VideoID, error) {
	if raw := strings.TrimSpace(c.PostForm("video_id")); raw != "" {
		return youtube.ParseVideoID(raw)
	}
	return youtube.Extract(c.PostForm("url"))
}

func sessionID(c *gin.Context) string {
	s := strings.TrimSpace(c.GetHeader(SessionHeader))
	if s == "" {
		return c.ClientIP()
	}
	if len(s) > maxSessionLen {
		s = s[:maxSessionLen]
	}
	return s
}

func downloadLink(id string) string {
	return "/api/remake/" + id
}

func notFound(c *gin.Context, err error) {
	message := "Image not found"
	if errors.Is(err, storage.ErrNotFound) {
		message = "Image not found or expired"
	}
	c.JSON(http.StatusNotFound, model.ErrorResponse{
		Error:   "not_found",
		Message: message,
		Code:    http.StatusNotFound,
	})
}

func uploadTooLarge(c *gin.Context, limit int64) {
	c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
		Error:   "upload_too_large",
		Message: fmt.Sprintf("The uploaded image exceeds %d MB", limit>>20),
		Code:    http.StatusRequestEntityTooLarge,
	})
}

func imageTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
		Error:   "image_too_large",
		Message: fmt.Sprintf("Images may be at most %dx%d pixels", compose.MaxImageSide, compose.MaxImageSide),
		Code:    http.StatusRequestEntityTooLarge,
	})
}
