// Package metrics provides Prometheus metrics for thumbnail extraction,
// download, style analysis and remake generation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ytthumb"

var (
	// ExtractTotal counts URL extractions by outcome (ok, missing, invalid).
	ExtractTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extract_total",
		Help:      "Total number of video id extractions, by outcome.",
	}, []string{"outcome"})

	// ThumbnailFetchTotal counts origin fetches by kind (download, preview,
	// tiers, analyze, remake) and outcome.
	ThumbnailFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "thumbnail_fetch_total",
		Help:      "Total number of thumbnail origin fetches, by kind and outcome.",
	}, []string{"kind", "outcome"})

	// ThumbnailFallbackTotal counts recovered fetch failures by kind
	// (redirect, hq_substitute).
	ThumbnailFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "thumbnail_fallback_total",
		Help:      "Total number of thumbnail fetch failures recovered by a fallback, by kind.",
	}, []string{"kind"})

	// StyleAnalysisTotal counts analyses by where the attributes came from.
	StyleAnalysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "style_analysis_total",
		Help:      "Total number of style analyses, by schema and source (model, cache, default).",
	}, []string{"schema", "source"})

	// GenerationTotal counts remake generations by outcome (ok, failed,
	// conflict).
	GenerationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_total",
		Help:      "Total number of remake generations, by outcome.",
	}, []string{"outcome"})

	// GenerationStepSeconds observes compositor step durations.
	GenerationStepSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_step_seconds",
		Help:      "Duration of compositor pipeline steps.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"step"})

	// RateLimitExceeded counts requests rejected by the per-IP limiter.
	RateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_exceeded_total",
		Help:      "Total number of requests rejected by the per-IP rate limiter.",
	})

	// StoredImages tracks generated images currently held in memory.
	StoredImages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stored_images",
		Help:      "Number of generated images currently held in memory.",
	})
)
