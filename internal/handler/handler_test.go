package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ytthumb/internal/compose"
	"ytthumb/internal/model"
	"ytthumb/internal/service"
	"ytthumb/internal/storage"
	"ytthumb/internal/style"
	"ytthumb/internal/youtube"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testVideoID = "dQw4w9WgXcQ"

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newOrigin serves a PNG for every thumbnail file except the missing ones
func newOrigin(t *testing.T, missing ...string) *httptest.Server {
	t.Helper()
	body := testPNG(t, 64, 36)
	skip := map[string]bool{}
	for _, m := range missing {
		skip[m+".jpg"] = true
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		if skip[file] {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixedAnalyzer struct {
	attrs style.Attributes
}

func (a fixedAnalyzer) Schema() style.Schema { return a.attrs.Schema }

func (a fixedAnalyzer) Analyze(context.Context, string) style.Result {
	return style.Result{Attributes: a.attrs, Source: style.SourceModel}
}

type fakeGenerator struct {
	calls atomic.Int32
}

func (g *fakeGenerator) Generate(context.Context, []byte, string, string) (string, error) {
	g.calls.Add(1)
	return `{"text_color":"#FF0000","stroke_color":null,"x_percent":10,"y_percent":20,"font_size_percent":8,"alignment":"left","font_weight":"bold"}`, nil
}

type testServer struct {
	router *gin.Engine
	origin *httptest.Server
	store  *storage.Manager
}

func newTestServer(t *testing.T, analyzer style.Analyzer, missing ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	origin := newOrigin(t, missing...)
	cfg := &model.Config{
		Thumbnail: model.ThumbnailConfig{BaseURL: origin.URL, FetchTimeout: 2 * time.Second, MaxBytes: 1 << 20},
		Remake:    model.RemakeConfig{MaxUploadMB: 1},
		Security:  model.SecurityConfig{AllowedHosts: []string{"img.youtube.com", "i.ytimg.com", strings.TrimPrefix(origin.URL, "http://")}},
	}

	fetcher := service.NewFetcher(&cfg.Thumbnail, zap.NewNop())
	thumbnails := service.NewThumbnailService(youtube.NewResolver(origin.URL), fetcher, zap.NewNop())

	fonts, err := compose.LoadFonts("")
	require.NoError(t, err)
	store := storage.NewManager(&model.StorageConfig{ImageTTL: time.Minute, CleanupInterval: time.Hour, MaxImages: 10})
	remakes := service.NewRemakeService(thumbnails, analyzer, compose.NewCompositor(fonts, zap.NewNop()), store, "", zap.NewNop())

	router := gin.New()
	Register(router.Group("/api"), Handlers{
		Thumbnail: NewThumbnailHandler(thumbnails),
		Style:     NewStyleHandler(analyzer, cfg.Security.AllowedHosts),
		Remake:    NewRemakeHandler(remakes, cfg),
		Health:    NewHealthHandler(analyzer.Schema(), store),
	})

	return &testServer{router: router, origin: origin, store: store}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func defaultAnalyzer() style.Analyzer {
	return style.NewService(style.ServiceOptions{Schema: style.SchemaPercent}, zap.NewNop())
}

func TestListThumbnails(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	w := s.get(t, "/api/thumbnails?url="+"https://youtu.be/"+testVideoID)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.ThumbnailListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testVideoID, resp.VideoID)
	assert.Equal(t, "short", resp.Pattern)
	require.Len(t, resp.Thumbnails, 4)
	assert.Equal(t, "maxres", resp.Thumbnails[0].Tier)
	assert.Equal(t, "/api/thumbnails/"+testVideoID+"/maxres/download", resp.Thumbnails[0].DownloadURL)
}

func TestListThumbnailsInputErrors(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	tests := []struct {
		name    string
		query   string
		code    string
		message string
	}{
		{"missing", "", "missing_url", youtube.MissingURLMessage},
		{"blank", "?url=%20%20", "missing_url", youtube.MissingURLMessage},
		{"invalid", "?url=https://vimeo.com/123", "invalid_url", youtube.InvalidURLMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.get(t, "/api/thumbnails"+tt.query)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestDownloadThumbnail(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	w := s.get(t, "/api/thumbnails/"+testVideoID+"/hq/download")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="youtube_thumbnail_dQw4w9WgXcQ_hq.jpg"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestDownloadRedirectsWhenFetchFails(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer(), "maxresdefault")

	w := s.get(t, "/api/thumbnails/"+testVideoID+"/maxres/download")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, s.origin.URL+"/vi/"+testVideoID+"/maxresdefault.jpg", w.Header().Get("Location"))
}

func TestDownloadRejectsBadParams(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	w := s.get(t, "/api/thumbnails/short/hq/download")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_video_id", decodeError(t, w).Error)

	w = s.get(t, "/api/thumbnails/"+testVideoID+"/huge/download")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_tier", decodeError(t, w).Error)
}

func TestPreviewFallsBackToHQ(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer(), "maxresdefault", "sddefault")

	w := s.get(t, "/api/thumbnails/"+testVideoID+"/maxres/preview")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hq", w.Header().Get("X-Thumbnail-Tier"))

	w = s.get(t, "/api/thumbnails/"+testVideoID+"/sd/preview")
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "thumbnail_unavailable", decodeError(t, w).Error)
}

func TestCheckTiers(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer(), "maxresdefault")

	w := s.get(t, "/api/thumbnails/"+testVideoID+"/tiers")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.TierCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Tiers, 4)
	assert.False(t, resp.Tiers[0].Available)
	assert.Equal(t, http.StatusNotFound, resp.Tiers[0].Status)
	assert.True(t, strings.HasSuffix(resp.Tiers[0].DisplayURL, "/hqdefault.jpg"))
	for _, tier := range resp.Tiers[1:] {
		assert.True(t, tier.Available, tier.Tier)
	}
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAnalyzeRequiresURL(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	for _, body := range []string{`{}`, `{"thumbnailUrl":"  "}`, `not json`} {
		w := s.do(t, postJSON("/api/analyze-thumbnail", body))
		require.Equal(t, http.StatusBadRequest, w.Code, body)

		var resp model.AnalyzeFailure
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	}
}

func TestAnalyzeWithoutCredentialReturnsDefault(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	w := s.do(t, postJSON("/api/analyze-thumbnail", `{"thumbnailUrl":"https://img.youtube.com/vi/`+testVideoID+`/hqdefault.jpg"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", w.Header().Get("X-Style-Source"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "percent", resp["schema"])
	assert.Equal(t, "#FFFFFF", resp["text_color"])
	assert.Equal(t, "#000000", resp["stroke_color"])
	assert.Equal(t, 50.0, resp["x_percent"])
	assert.Equal(t, 85.0, resp["y_percent"])
	assert.Equal(t, "center", resp["alignment"])
}

func TestAnalyzeReturnsModelFields(t *testing.T) {
	z := style.ZoneStyle{TextColor: "#FFD700", TextPosition: style.ZoneTopLeft, FontSize: style.SizeXLarge, FontStyle: style.FontStyleItalic}
	s := newTestServer(t, fixedAnalyzer{attrs: style.Attributes{Schema: style.SchemaZone, Zone: &z}})

	w := s.do(t, postJSON("/api/analyze-thumbnail", `{"thumbnailUrl":"https://img.youtube.com/vi/x/hqdefault.jpg"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "model", w.Header().Get("X-Style-Source"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "zone", resp["schema"])
	assert.Equal(t, "#FFD700", resp["text_color"])
	assert.Equal(t, "top-left", resp["text_position"])
	assert.Equal(t, "xlarge", resp["font_size"])
	assert.Equal(t, "italic", resp["font_style"])
}

func TestAnalyzeInvalidURLSkipsAnalyzer(t *testing.T) {
	z := style.ZoneStyle{TextColor: "#FFD700", TextPosition: style.ZoneTopLeft, FontSize: style.SizeXLarge, FontStyle: style.FontStyleItalic}
	s := newTestServer(t, fixedAnalyzer{attrs: style.Attributes{Schema: style.SchemaZone, Zone: &z}})

	w := s.do(t, postJSON("/api/analyze-thumbnail", `{"thumbnailUrl":"file:///etc/passwd"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", w.Header().Get("X-Style-Source"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bottom-center", resp["text_position"])
}

type formFile struct {
	name string
	data []byte
}

func remakeRequest(t *testing.T, session string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("image", file.name)
		require.NoError(t, err)
		_, err = fw.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/remake", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	return req
}

func TestRemakeRoundTrip(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer(), "maxresdefault")

	w := s.do(t, remakeRequest(t, "tab-1",
		map[string]string{"url": "https://www.youtube.com/watch?v=" + testVideoID, "caption": "Hello"},
		&formFile{name: "me.png", data: testPNG(t, 30, 60)}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.RemakeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testVideoID, resp.VideoID)
	assert.Equal(t, "hq", resp.Tier)
	assert.Equal(t, style.SourceDefault, resp.StyleSource)
	assert.Equal(t, "/api/remake/"+resp.ID, resp.DownloadLink)
	assert.Equal(t, resp.DownloadLink+"?inline=1", resp.PreviewLink)

	file := s.get(t, resp.DownloadLink)
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, "image/png", file.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="custom_thumbnail_dQw4w9WgXcQ.png"`, file.Header().Get("Content-Disposition"))

	cfg, err := png.DecodeConfig(bytes.NewReader(file.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, compose.Width, cfg.Width)
	assert.Equal(t, compose.Height, cfg.Height)

	inline := s.get(t, resp.PreviewLink)
	require.Equal(t, http.StatusOK, inline.Code)
	assert.True(t, strings.HasPrefix(inline.Header().Get("Content-Disposition"), "inline;"))

	latestReq := httptest.NewRequest(http.MethodGet, "/api/remake/latest?video_id="+testVideoID, nil)
	latestReq.Header.Set(SessionHeader, "tab-1")
	latest := s.do(t, latestReq)
	require.Equal(t, http.StatusOK, latest.Code)

	var meta model.LatestImageResponse
	require.NoError(t, json.Unmarshal(latest.Body.Bytes(), &meta))
	assert.Equal(t, resp.ID, meta.ID)

	otherReq := httptest.NewRequest(http.MethodGet, "/api/remake/latest?video_id="+testVideoID, nil)
	otherReq.Header.Set(SessionHeader, "tab-2")
	assert.Equal(t, http.StatusNotFound, s.do(t, otherReq).Code)
}

func TestRemakeInputErrors(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	w := s.do(t, remakeRequest(t, "", map[string]string{"caption": "x"}, nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_url", decodeError(t, w).Error)

	w = s.do(t, remakeRequest(t, "", map[string]string{"video_id": "nope"}, nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_video_id", decodeError(t, w).Error)

	w = s.do(t, remakeRequest(t, "", map[string]string{"video_id": testVideoID, "tier": "4k"}, nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_tier", decodeError(t, w).Error)

	w = s.do(t, remakeRequest(t, "", map[string]string{"video_id": testVideoID},
		&formFile{name: "notes.txt", data: []byte("just some text")}))
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "unsupported_image", decodeError(t, w).Error)

	w = s.do(t, remakeRequest(t, "", map[string]string{"video_id": testVideoID},
		&formFile{name: "big.png", data: bytes.Repeat([]byte{0x89}, 2<<20)}))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Equal(t, 0, s.store.TrackedCount())
}

func TestRemakeBackgroundUnavailable(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer(), "maxresdefault", "hqdefault")

	w := s.do(t, remakeRequest(t, "s", map[string]string{"video_id": testVideoID}, nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "generation_failed", body.Error)
	assert.Contains(t, body.Message, compose.StepLoadBackground)
	assert.Equal(t, 0, s.store.TrackedCount())
}

func TestGetFileErrors(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	w := s.get(t, "/api/remake/not-a-uuid")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_id", decodeError(t, w).Error)

	w = s.get(t, "/api/remake/6f1c2b9e-3a4d-4c5e-9f60-7a8b9c0d1e2f")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error)

	w = s.get(t, "/api/remake/latest?video_id=bad")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	w := s.get(t, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "percent", body["style_schema"])
}

func TestAnalyzeOnlyFetchesAllowedHosts(t *testing.T) {
	var internalHits atomic.Int32
	body := testPNG(t, 8, 8)
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		internalHits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer internal.Close()

	gen := &fakeGenerator{}
	fetcher := service.NewFetcher(&model.ThumbnailConfig{FetchTimeout: 2 * time.Second, MaxBytes: 1 << 20}, zap.NewNop())
	analyzer := style.NewService(style.ServiceOptions{
		Schema:    style.SchemaPercent,
		Generator: gen,
		Images:    fetcher,
		Cache:     style.NewMemoryCache(),
	}, zap.NewNop())
	s := newTestServer(t, analyzer)

	w := s.do(t, postJSON("/api/analyze-thumbnail", `{"thumbnailUrl":"`+internal.URL+`/latest/meta-data/iam"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", w.Header().Get("X-Style-Source"))
	assert.Equal(t, int32(0), internalHits.Load())
	assert.Equal(t, int32(0), gen.calls.Load())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, 50.0, resp["x_percent"])

	// the configured thumbnail origin is allowed
	w = s.do(t, postJSON("/api/analyze-thumbnail", `{"thumbnailUrl":"`+s.origin.URL+`/vi/`+testVideoID+`/hqdefault.jpg"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "model", w.Header().Get("X-Style-Source"))
	assert.Equal(t, int32(1), gen.calls.Load())

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10.0, resp["x_percent"])
	assert.Equal(t, "left", resp["alignment"])
}

func TestRemakeRejectsOversizedDimensions(t *testing.T) {
	s := newTestServer(t, defaultAnalyzer())

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, compose.MaxImageSide+1, 4))))
	require.Less(t, buf.Len(), 1<<20)

	w := s.do(t, remakeRequest(t, "s", map[string]string{"video_id": testVideoID},
		&formFile{name: "wide.png", data: buf.Bytes()}))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "image_too_large", decodeError(t, w).Error)
	assert.Equal(t, 0, s.store.TrackedCount())
}
