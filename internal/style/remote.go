package style

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RemoteClient is an Analyzer backed by another deployment's
// /api/analyze-thumbnail endpoint.
type RemoteClient struct {
	endpoint   string
	schema     Schema
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRemoteClient creates a client for the service at baseURL.
func NewRemoteClient(baseURL string, schema Schema, timeout time.Duration, logger *zap.Logger) *RemoteClient {
	if timeout <= 0 {
		timeout = defaultAnalyzeTimeout
	}
	if schema != SchemaZone {
		schema = SchemaPercent
	}
	return &RemoteClient{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/analyze-thumbnail",
		schema:     schema,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *RemoteClient) Schema() Schema {
	return c.schema
}

type remoteRequest struct {
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Analyze implements Analyzer.
func (c *RemoteClient) Analyze(ctx context.Context, thumbnailURL string) Result {
	attrs, err := c.call(ctx, thumbnailURL)
	if err != nil {
		c.logger.Warn("Remote style analysis failed, using default style",
			zap.String("endpoint", c.endpoint),
			zap.String("url", thumbnailURL),
			zap.Error(err),
		)
		return Result{Attributes: Default(c.schema), Source: SourceDefault}
	}
	return Result{Attributes: attrs, Source: SourceModel}
}

func (c *RemoteClient) call(ctx context.Context, thumbnailURL string) (Attributes, error) {
	body, err := json.Marshal(remoteRequest{ThumbnailURL: thumbnailURL})
	if err != nil {
		return Attributes{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Attributes{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Attributes{}, fmt.Errorf("failed to call style service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Attributes{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Attributes{}, fmt.Errorf("style service returned status %d", resp.StatusCode)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return Attributes{}, fmt.Errorf("failed to decode response: %w", err)
	}

	var success bool
	if raw, ok := fields["success"]; ok {
		_ = json.Unmarshal(raw, &success)
	}
	if !success {
		var msg string
		_ = json.Unmarshal(fields["error"], &msg)
		return Attributes{}, fmt.Errorf("style service reported failure: %s", msg)
	}

	if raw, ok := fields["schema"]; ok {
		var schema Schema
		if err := json.Unmarshal(raw, &schema); err != nil || schema != c.schema {
			return Attributes{}, fmt.Errorf("style service schema %q does not match %q", schema, c.schema)
		}
	}

	return Normalize(c.schema, fields), nil
}
