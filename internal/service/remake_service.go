package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ytthumb/internal/compose"
	"ytthumb/internal/metrics"
	"ytthumb/internal/model"
	"ytthumb/internal/storage"
	"ytthumb/internal/style"
	"ytthumb/internal/youtube"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrGenerationInProgress is returned when the session already has a
// generation outstanding
var ErrGenerationInProgress = errors.New("a generation is already running for this session")

// DefaultCaption is drawn when the request carries no caption
const DefaultCaption = "My custom thumbnail title"

// MaxCaptionRunes caps the caption length; longer captions are cut
const MaxCaptionRunes = 200

// SessionKey scopes the generation gate and the latest image pointer
func SessionKey(session string, id youtube.VideoID) string {
	return fmt.Sprintf("%s:%s", session, id)
}

// Gate admits one generation per session key at a time
type Gate struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewGate creates an empty gate
func NewGate() *Gate {
	return &Gate{active: make(map[string]struct{})}
}

// Acquire claims key. The returned release must be called exactly once.
func (g *Gate) Acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return nil, false
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, true
}

// RemakeRequest is one generation trigger
type RemakeRequest struct {
	Session   string // X-Session-ID header or client IP
	VideoID   youtube.VideoID
	Tier      youtube.Tier
	Caption   string
	UserImage []byte
}

// RemakeResult is a stored generation and the style it was drawn with
type RemakeResult struct {
	Image *model.GeneratedImage
	Tier  youtube.Tier
	Style style.Result
}

// RemakeService orchestrates analysis, composition and storage
type RemakeService struct {
	thumbnails     *ThumbnailService
	analyzer       style.Analyzer
	compositor     *compose.Compositor
	store          *storage.Manager
	gate           *Gate
	defaultCaption string
	logger         *zap.Logger
}

// NewRemakeService creates a new remake service
func NewRemakeService(
	thumbnails *ThumbnailService,
	analyzer style.Analyzer,
	compositor *compose.Compositor,
	store *storage.Manager,
	defaultCaption string,
	logger *zap.Logger,
) *RemakeService {
	if strings.TrimSpace(defaultCaption) == "" {
		defaultCaption = DefaultCaption
	}
	return &RemakeService{
		thumbnails:     thumbnails,
		analyzer:       analyzer,
		compositor:     compositor,
		store:          store,
		gate:           NewGate(),
		defaultCaption: defaultCaption,
		logger:         logger,
	}
}

// Generate renders and stores a remade thumbnail. A failed generation leaves
// the session's latest image untouched.
func (s *RemakeService) Generate(ctx context.Context, req RemakeRequest) (*RemakeResult, error) {
	key := SessionKey(req.Session, req.VideoID)
	release, ok := s.gate.Acquire(key)
	if !ok {
		metrics.GenerationTotal.WithLabelValues("conflict").Inc()
		s.logger.Warn("Generation already in progress", zap.String("session_key", key))
		return nil, ErrGenerationInProgress
	}
	defer release()

	if req.Tier == "" {
		req.Tier = youtube.TierMaxRes
	}
	caption := normalizeCaption(req.Caption, s.defaultCaption)

	start := time.Now()

	// the background fetch error, if any, surfaces from the load step
	background, fetchErr := s.thumbnails.WithFallback(ctx, req.VideoID, req.Tier)

	var (
		analysis   style.Result
		servedTier = req.Tier
	)
	if fetchErr == nil {
		servedTier = background.Tier
		analysis = s.analyzer.Analyze(ctx, background.URL)
	} else {
		analysis = style.Result{Attributes: style.Default(s.analyzer.Schema()), Source: style.SourceDefault}
	}

	creq := compose.Request{
		Background: compose.SourceFunc(func(context.Context) ([]byte, error) {
			if fetchErr != nil {
				return nil, fetchErr
			}
			return background.Data, nil
		}),
		Caption: caption,
		Style:   analysis.Attributes,
	}
	if len(req.UserImage) > 0 {
		creq.UserImage = compose.Bytes(req.UserImage)
	}

	rendered, err := s.compositor.Render(ctx, creq)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("failed").Inc()
		s.logger.Error("Thumbnail generation failed",
			zap.String("video_id", string(req.VideoID)),
			zap.String("session_key", key),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	for _, step := range rendered.Steps {
		metrics.GenerationStepSeconds.WithLabelValues(step.Name).Observe(step.Duration.Seconds())
	}

	session := youtube.NewSession(req.VideoID, s.thumbnails.Resolver())
	img := &model.GeneratedImage{
		ID:         uuid.NewString(),
		SessionKey: key,
		VideoID:    string(req.VideoID),
		Filename:   session.RemakeFilename(),
		Data:       rendered.PNG,
		Style:      analysis.Attributes,
	}
	s.store.Save(img)
	metrics.StoredImages.Set(float64(s.store.TrackedCount()))
	metrics.GenerationTotal.WithLabelValues("ok").Inc()

	s.logger.Info("Thumbnail generated",
		zap.String("id", img.ID),
		zap.String("video_id", img.VideoID),
		zap.String("tier", string(servedTier)),
		zap.String("style_source", string(analysis.Source)),
		zap.Int("size", len(img.Data)),
		zap.Duration("duration", time.Since(start)))

	return &RemakeResult{Image: img, Tier: servedTier, Style: analysis}, nil
}

// normalizeCaption trims raw, falls back to def and cuts it to MaxCaptionRunes
func normalizeCaption(raw, def string) string {
	caption := strings.TrimSpace(raw)
	if caption == "" {
		return def
	}
	if runes := []rune(caption); len(runes) > MaxCaptionRunes {
		caption = strings.TrimSpace(string(runes[:MaxCaptionRunes]))
	}
	return caption
}

// Get returns a stored image by id
func (s *RemakeService) Get(id string) (*model.GeneratedImage, error) {
	return s.store.Get(id)
}

// Latest returns the session's most recent image for a video
func (s *RemakeService) Latest(session string, id youtube.VideoID) (*model.GeneratedImage, error) {
	return s.store.Latest(SessionKey(session, id))
}

// meteredAnalyzer counts analyses by source
type meteredAnalyzer struct {
	style.Analyzer
}

// NewMeteredAnalyzer wraps a so every analysis is counted
func NewMeteredAnalyzer(a style.Analyzer) style.Analyzer {
	return meteredAnalyzer{Analyzer: a}
}

func (m meteredAnalyzer) Analyze(ctx context.Context, thumbnailURL string) style.Result {
	res := m.Analyzer.Analyze(ctx, thumbnailURL)
	metrics.StyleAnalysisTotal.WithLabelValues(string(m.Schema()), string(res.Source)).Inc()
	return res
}
