package model

import (
	"time"

	"ytthumb/internal/style"
)

// ThumbnailOption is one resolution tier of a video's thumbnail
type ThumbnailOption struct {
	Tier        string `json:"tier"`
	Label       string `json:"label"`
	Resolution  string `json:"resolution"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	PreviewURL  string `json:"preview_url"`
}

// ThumbnailListResponse lists every tier for a video, highest first
type ThumbnailListResponse struct {
	VideoID    string            `json:"video_id"`
	Pattern    string            `json:"pattern"`
	Thumbnails []ThumbnailOption `json:"thumbnails"`
}

// TierAvailability reports whether the origin serves a tier
type TierAvailability struct {
	Tier       string `json:"tier"`
	URL        string `json:"url"`
	DisplayURL string `json:"display_url"`
	Available  bool   `json:"available"`
	Status     int    `json:"status,omitempty"`
}

// TierCheckResponse is the result of checking all tiers of a video
type TierCheckResponse struct {
	VideoID string             `json:"video_id"`
	Tiers   []TierAvailability `json:"tiers"`
}

// AnalyzeRequest is the body of POST /api/analyze-thumbnail
type AnalyzeRequest struct {
	ThumbnailURL string `json:"thumbnailUrl"`
}

// AnalyzeFailure is the error body of POST /api/analyze-thumbnail
type AnalyzeFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RemakeResponse represents the response to a remake request
type RemakeResponse struct {
	ID           string           `json:"id"`
	VideoID      string           `json:"video_id"`
	Tier         string           `json:"tier"`
	DownloadLink string           `json:"download_link"`
	PreviewLink  string           `json:"preview_link"`
	ExpiresAt    int64            `json:"expires_at"`
	Style        style.Attributes `json:"style"`
	StyleSource  style.Source     `json:"style_source"`
}

// GeneratedImage tracks a composed PNG until it expires
type GeneratedImage struct {
	ID         string
	SessionKey string
	VideoID    string
	Filename   string
	Data       []byte
	Style      style.Attributes
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// LatestImageResponse describes a session's most recent remake
type LatestImageResponse struct {
	ID           string           `json:"id"`
	VideoID      string           `json:"video_id"`
	DownloadLink string           `json:"download_link"`
	CreatedAt    int64            `json:"created_at"`
	ExpiresAt    int64            `json:"expires_at"`
	Style        style.Attributes `json:"style"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
