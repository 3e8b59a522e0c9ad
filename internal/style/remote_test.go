package style

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func remoteServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/analyze-thumbnail", r.URL.Path)
		var req remoteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.ThumbnailURL)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteClientSuccess(t *testing.T) {
	srv := remoteServer(t, http.StatusOK,
		`{"success":true,"schema":"zone","text_color":"#EEEEEE","text_position":"top-right","font_size":"small","font_style":"thin"}`)

	client := NewRemoteClient(srv.URL+"/", SchemaZone, time.Second, zap.NewNop())
	res := client.Analyze(context.Background(), "https://img.youtube.com/vi/a/hqdefault.jpg")

	require.Equal(t, SourceModel, res.Source)
	assert.Equal(t, ZoneTopRight, res.Attributes.Zone.TextPosition)
	assert.Equal(t, SizeSmall, res.Attributes.Zone.FontSize)
}

func TestRemoteClientFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"reported failure", http.StatusOK, `{"success":false,"error":"boom"}`},
		{"server error", http.StatusInternalServerError, `{"success":true}`},
		{"bad json", http.StatusOK, `<html>`},
		{"schema mismatch", http.StatusOK, `{"success":true,"schema":"percent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := remoteServer(t, tt.status, tt.body)
			client := NewRemoteClient(srv.URL, SchemaZone, time.Second, zap.NewNop())

			res := client.Analyze(context.Background(), "u")

			assert.Equal(t, SourceDefault, res.Source)
			assert.Equal(t, Default(SchemaZone), res.Attributes)
		})
	}
}

func TestRemoteClientUnreachable(t *testing.T) {
	client := NewRemoteClient("http://127.0.0.1:1", SchemaPercent, 200*time.Millisecond, zap.NewNop())

	res := client.Analyze(context.Background(), "u")

	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, SchemaPercent, client.Schema())
}
