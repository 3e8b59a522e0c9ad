package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ytthumb/config"
	"ytthumb/internal/compose"
	"ytthumb/internal/handler"
	"ytthumb/internal/model"
	"ytthumb/internal/service"
	"ytthumb/internal/storage"
	"ytthumb/internal/style"
	"ytthumb/internal/youtube"
	"ytthumb/pkg/logger"
	"ytthumb/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting thumbnail server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("style_schema", cfg.Style.Schema),
		zap.Strings("allowed_hosts", cfg.Security.AllowedHosts),
	)

	// Initialize storage manager
	storageManager := storage.NewManager(&cfg.Storage)
	storageManager.Start()
	defer storageManager.Stop()

	// Initialize services
	fetcher := service.NewFetcher(&cfg.Thumbnail, logger.Named("fetcher"))
	thumbnailService := service.NewThumbnailService(
		youtube.NewResolver(cfg.Thumbnail.BaseURL),
		fetcher,
		logger.Named("thumbnails"),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	analyzer, closeAnalyzer := newAnalyzer(ctx, cfg, fetcher)
	defer closeAnalyzer()
	analyzer = service.NewMeteredAnalyzer(analyzer)

	fonts, err := compose.LoadFonts(cfg.Remake.FontPath)
	if err != nil {
		logger.Logger.Fatal("Failed to load caption fonts", zap.String("path", cfg.Remake.FontPath), zap.Error(err))
	}
	remakeService := service.NewRemakeService(
		thumbnailService,
		analyzer,
		compose.NewCompositor(fonts, logger.Named("compose")),
		storageManager,
		cfg.Remake.DefaultCaption,
		logger.Named("remake"),
	)

	// Initialize rate limit service
	rateLimitService := service.NewRateLimitService(&cfg.RateLimit, logger.Named("ratelimit"))
	defer rateLimitService.Stop()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Add middleware
	router.Use(logger.GinLogger(), gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	// Add rate limiting middleware
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimitMiddleware(rateLimitService))
		logger.Logger.Info("Rate limiting enabled",
			zap.Int("requests_per_minute", cfg.RateLimit.RequestsPerMinute),
			zap.Int("burst", cfg.RateLimit.BurstSize))
	}

	// Routes
	handler.Register(api, handler.Handlers{
		Thumbnail: handler.NewThumbnailHandler(thumbnailService),
		Style:     handler.NewStyleHandler(analyzer, cfg.Security.AllowedHosts),
		Remake:    handler.NewRemakeHandler(remakeService, cfg),
		Health:    handler.NewHealthHandler(analyzer.Schema(), storageManager),
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.Timeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Logger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server stopped")
}

// newAnalyzer picks the style analyzer for this deployment: a remote
// analyze-thumbnail service, or the local model-backed one.
func newAnalyzer(ctx context.Context, cfg *model.Config, images style.ImageSource) (style.Analyzer, func()) {
	schema := style.ParseSchema(cfg.Style.Schema)
	noop := func() {}

	if cfg.Style.ServiceURL != "" {
		logger.Logger.Info("Using remote style analysis", zap.String("url", cfg.Style.ServiceURL))
		return style.NewRemoteClient(cfg.Style.ServiceURL, schema, cfg.Gemini.Timeout, logger.Named("style")), noop
	}

	var generator style.Generator
	if cfg.Gemini.APIKey != "" {
		g, err := style.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger.Named("gemini"))
		if err != nil {
			logger.Logger.Error("Gemini client unavailable, style analysis uses defaults", zap.Error(err))
		} else {
			generator = g
		}
	} else {
		logger.Logger.Warn("GEMINI_API_KEY not set, style analysis uses defaults")
	}

	var (
		cache   style.Cache = style.NewMemoryCache()
		closeFn             = noop
	)
	if cfg.Redis.URL != "" {
		rc, err := style.NewRedisCache(ctx, cfg.Redis.URL, logger.Named("style_cache"))
		if err != nil {
			logger.Logger.Warn("Redis style cache unavailable, using memory", zap.Error(err))
		} else {
			cache = rc
			closeFn = func() {
				if err := rc.Close(); err != nil {
					logger.Logger.Warn("Failed to close redis style cache", zap.Error(err))
				}
			}
		}
	}

	return style.NewService(style.ServiceOptions{
		Schema:    schema,
		Generator: generator,
		Images:    images,
		Cache:     cache,
		CacheTTL:  cfg.Style.CacheTTL,
		Timeout:   cfg.Gemini.Timeout,
	}, logger.Named("style")), closeFn
}
