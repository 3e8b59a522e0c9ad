package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ytthumb/internal/model"
	"ytthumb/internal/youtube"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		// started at init by the genai transport dependencies
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

const testVideoID = youtube.VideoID("dQw4w9WgXcQ")

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// origin is a fake static thumbnail host. Files listed in missing answer 404.
type origin struct {
	*httptest.Server
	hits    atomic.Int32
	missing map[string]bool
	body    []byte
}

func newOrigin(t *testing.T, missing ...string) *origin {
	t.Helper()
	o := &origin{missing: map[string]bool{}, body: testPNG(t, 64, 36)}
	for _, m := range missing {
		o.missing[m] = true
	}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.hits.Add(1)
		file := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		if o.missing[strings.TrimSuffix(file, ".jpg")] {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(o.body)
	}))
	t.Cleanup(o.Close)
	return o
}

func newTestFetcher(maxBytes int64) *Fetcher {
	return NewFetcher(&model.ThumbnailConfig{FetchTimeout: 2 * time.Second, MaxBytes: maxBytes}, zap.NewNop())
}

func newTestThumbnailService(o *origin) *ThumbnailService {
	return NewThumbnailService(youtube.NewResolver(o.URL), newTestFetcher(1<<20), zap.NewNop())
}

func contextWithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
