package style

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source tells where a Result came from.
type Source string

const (
	SourceModel   Source = "model"
	SourceDefault Source = "default"
	SourceCache   Source = "cache"
)

// Result is the outcome of one analysis. Attributes is always a complete
// record of the analyzer's schema.
type Result struct {
	Attributes Attributes
	Source     Source
}

// Analyzer derives caption attributes from a reference thumbnail. It never
// fails: every error path yields the schema default.
type Analyzer interface {
	Schema() Schema
	Analyze(ctx context.Context, thumbnailURL string) Result
}

// ImageSource fetches the reference thumbnail bytes and their MIME type.
type ImageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

const defaultAnalyzeTimeout = 20 * time.Second

// Service is the model-backed Analyzer.
type Service struct {
	schema    Schema
	generator Generator
	images    ImageSource
	cache     Cache
	cacheTTL  time.Duration
	timeout   time.Duration
	group     singleflight.Group
	logger    *zap.Logger
}

// ServiceOptions configures a Service. A nil Generator means no credential
// is configured and every analysis returns the default record.
type ServiceOptions struct {
	Schema    Schema
	Generator Generator
	Images    ImageSource
	Cache     Cache
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// NewService creates a style analysis service.
func NewService(opts ServiceOptions, logger *zap.Logger) *Service {
	if opts.Schema != SchemaZone {
		opts.Schema = SchemaPercent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultAnalyzeTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Service{
		schema:    opts.Schema,
		generator: opts.Generator,
		images:    opts.Images,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		timeout:   opts.Timeout,
		logger:    logger,
	}
}

func (s *Service) Schema() Schema {
	return s.schema
}

// Analyze implements Analyzer.
func (s *Service) Analyze(ctx context.Context, thumbnailURL string) Result {
	if s.generator == nil || s.images == nil {
		s.logger.Debug("No vision model configured, using default style")
		return Result{Attributes: Default(s.schema), Source: SourceDefault}
	}

	key := s.cacheKey(thumbnailURL)
	if s.cache != nil {
		if attrs, ok := s.cache.Get(ctx, key); ok && attrs.Schema == s.schema && attrs.Valid() {
			return Result{Attributes: attrs, Source: SourceCache}
		}
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// detached so one caller going away doesn't fail the others
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.analyze(callCtx, thumbnailURL, key), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		s.logger.Info("Style analysis abandoned by caller", zap.String("url", thumbnailURL))
		return Result{Attributes: Default(s.schema), Source: SourceDefault}
	}
}

func (s *Service) analyze(ctx context.Context, thumbnailURL, key string) Result {
	start := time.Now()

	attrs, err := s.runModel(ctx, thumbnailURL)
	if err != nil {
		s.logger.Warn("Style analysis failed, using default style",
			zap.String("url", thumbnailURL),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return Result{Attributes: Default(s.schema), Source: SourceDefault}
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, attrs, s.cacheTTL)
	}

	s.logger.Info("Style analysis completed",
		zap.String("url", thumbnailURL),
		zap.String("schema", string(s.schema)),
		zap.Duration("duration", time.Since(start)),
	)
	return Result{Attributes: attrs, Source: SourceModel}
}

func (s *Service) runModel(ctx context.Context, thumbnailURL string) (Attributes, error) {
	image, mimeType, err := s.images.Fetch(ctx, thumbnailURL)
	if err != nil {
		return Attributes{}, fmt.Errorf("fetch reference thumbnail: %w", err)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	text, err := s.generator.Generate(ctx, image, mimeType, Prompt(s.schema))
	if err != nil {
		return Attributes{}, err
	}

	fields, err := ParseFields(text)
	if err != nil {
		return Attributes{}, fmt.Errorf("parse model reply: %w", err)
	}
	return Normalize(s.schema, fields), nil
}

func (s *Service) cacheKey(url string) string {
	return fmt.Sprintf("ytthumb:style:%s:%s", s.schema, url)
}
