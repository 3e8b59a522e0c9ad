package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ytthumb/internal/model"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

// ErrTooLarge is returned when an image body exceeds the configured cap
var ErrTooLarge = errors.New("image exceeds size limit")

// FetchError describes a failed image retrieval. Status is zero when no
// response was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves images with a single attempt and a bounded body
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *zap.Logger
}

// NewFetcher creates a new image fetcher
func NewFetcher(cfg *model.ThumbnailConfig, logger *zap.Logger) *Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Fetch downloads url and returns its bytes and MIME type. It never retries.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn("Image fetch failed", zap.String("url", url), zap.Error(err))
		return nil, "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		f.logger.Warn("Non-OK status from image origin", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, "", &FetchError{URL: url, Status: resp.StatusCode, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if resp.ContentLength > f.maxBytes {
		return nil, "", &FetchError{URL: url, Status: resp.StatusCode, Err: ErrTooLarge}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", &FetchError{URL: url, Err: ErrTooLarge}
	}

	return data, contentType(resp.Header.Get("Content-Type"), data), nil
}

// contentType prefers a declared image type and sniffs otherwise
func contentType(declared string, data []byte) string {
	if mt := strings.TrimSpace(strings.Split(declared, ";")[0]); strings.HasPrefix(mt, "image/") {
		return mt
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}
