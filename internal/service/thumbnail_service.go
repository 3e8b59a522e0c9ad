package service

import (
	"context"
	"errors"
	"fmt"

	"ytthumb/internal/metrics"
	"ytthumb/internal/model"
	"ytthumb/internal/youtube"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Thumbnail is a fetched thumbnail image
type Thumbnail struct {
	VideoID     youtube.VideoID
	Tier        youtube.Tier // the tier actually served
	URL         string
	Filename    string
	ContentType string
	Data        []byte
}

// ThumbnailService lists, downloads and checks static thumbnails
type ThumbnailService struct {
	resolver *youtube.Resolver
	fetcher  *Fetcher
	logger   *zap.Logger
}

// NewThumbnailService creates a new thumbnail service
func NewThumbnailService(resolver *youtube.Resolver, fetcher *Fetcher, logger *zap.Logger) *ThumbnailService {
	return &ThumbnailService{resolver: resolver, fetcher: fetcher, logger: logger}
}

// Resolver returns the URL resolver the service fetches against
func (s *ThumbnailService) Resolver() *youtube.Resolver {
	return s.resolver
}

// List extracts the video id from rawURL and describes every tier
func (s *ThumbnailService) List(rawURL string) (*model.ThumbnailListResponse, error) {
	id, pattern, err := youtube.ExtractWithPattern(rawURL)
	if err != nil {
		metrics.ExtractTotal.WithLabelValues(extractOutcome(err)).Inc()
		return nil, err
	}
	metrics.ExtractTotal.WithLabelValues("ok").Inc()

	session := youtube.NewSession(id, s.resolver)
	resp := &model.ThumbnailListResponse{VideoID: string(id), Pattern: pattern}
	for _, info := range youtube.Tiers() {
		resp.Thumbnails = append(resp.Thumbnails, model.ThumbnailOption{
			Tier:        string(info.Tier),
			Label:       info.Label,
			Resolution:  info.Resolution,
			URL:         session.ThumbnailURL(info.Tier),
			DownloadURL: fmt.Sprintf("/api/thumbnails/%s/%s/download", id, info.Tier),
			PreviewURL:  fmt.Sprintf("/api/thumbnails/%s/%s/preview", id, info.Tier),
		})
	}

	s.logger.Info("Thumbnails listed", zap.String("video_id", string(id)), zap.String("pattern", pattern))
	return resp, nil
}

func extractOutcome(err error) string {
	if errors.Is(err, youtube.ErrMissingURL) {
		return "missing"
	}
	return "invalid"
}

// Download fetches one tier once. On failure the returned error is a
// *FetchError and the caller falls back to the raw URL.
func (s *ThumbnailService) Download(ctx context.Context, id youtube.VideoID, tier youtube.Tier) (*Thumbnail, error) {
	thumb, err := s.fetch(ctx, id, tier)
	if err != nil {
		metrics.ThumbnailFetchTotal.WithLabelValues("download", "failed").Inc()
		return nil, err
	}
	metrics.ThumbnailFetchTotal.WithLabelValues("download", "ok").Inc()
	return thumb, nil
}

// Preview fetches a tier for display. A missing maxres image is replaced by
// the hq image; other tiers have no substitute.
func (s *ThumbnailService) Preview(ctx context.Context, id youtube.VideoID, tier youtube.Tier) (*Thumbnail, error) {
	thumb, err := s.WithFallback(ctx, id, tier)
	if err != nil {
		metrics.ThumbnailFetchTotal.WithLabelValues("preview", "failed").Inc()
		return nil, err
	}
	metrics.ThumbnailFetchTotal.WithLabelValues("preview", "ok").Inc()
	return thumb, nil
}

// WithFallback fetches tier, substituting hq when maxres is unavailable
func (s *ThumbnailService) WithFallback(ctx context.Context, id youtube.VideoID, tier youtube.Tier) (*Thumbnail, error) {
	thumb, err := s.fetch(ctx, id, tier)
	if err == nil || tier != youtube.TierMaxRes {
		return thumb, err
	}

	s.logger.Info("Max resolution thumbnail unavailable, using hq",
		zap.String("video_id", string(id)), zap.Error(err))
	metrics.ThumbnailFallbackTotal.WithLabelValues("hq_substitute").Inc()
	return s.fetch(ctx, id, youtube.TierHQ)
}

// CheckTiers checks every tier concurrently
func (s *ThumbnailService) CheckTiers(ctx context.Context, id youtube.VideoID) *model.TierCheckResponse {
	tiers := youtube.Tiers()
	results := make([]model.TierAvailability, len(tiers))

	p := pool.New().WithMaxGoroutines(len(tiers))
	for idx, info := range tiers {
		p.Go(func() {
			url := s.resolver.Resolve(id, info.Tier)
			avail := model.TierAvailability{Tier: string(info.Tier), URL: url, DisplayURL: url}

			_, _, err := s.fetcher.Fetch(ctx, url)
			var fetchErr *FetchError
			switch {
			case err == nil:
				avail.Available = true
				metrics.ThumbnailFetchTotal.WithLabelValues("tiers", "ok").Inc()
			case errors.As(err, &fetchErr):
				avail.Status = fetchErr.Status
				metrics.ThumbnailFetchTotal.WithLabelValues("tiers", "failed").Inc()
			}
			results[idx] = avail
		})
	}
	p.Wait()

	// maxres is displayed as hq when missing
	for i := range results {
		if results[i].Tier == string(youtube.TierMaxRes) && !results[i].Available {
			results[i].DisplayURL = s.resolver.Resolve(id, youtube.TierHQ)
		}
	}

	return &model.TierCheckResponse{VideoID: string(id), Tiers: results}
}

func (s *ThumbnailService) fetch(ctx context.Context, id youtube.VideoID, tier youtube.Tier) (*Thumbnail, error) {
	session := youtube.NewSession(id, s.resolver)
	url := session.ThumbnailURL(tier)

	data, contentType, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	return &Thumbnail{
		VideoID:     id,
		Tier:        tier,
		URL:         url,
		Filename:    session.ThumbnailFilename(tier),
		ContentType: contentType,
		Data:        data,
	}, nil
}
