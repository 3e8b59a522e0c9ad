package service

import (
	"math"
	"sync"
	"time"

	"ytthumb/internal/metrics"
	"ytthumb/internal/model"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitEntry tracks the token bucket of one IP
type RateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitService applies per-IP token buckets
type RateLimitService struct {
	cfg      *model.RateLimitConfig
	limits   map[string]*RateLimitEntry
	mu       sync.Mutex
	quitChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
	logger   *zap.Logger
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(cfg *model.RateLimitConfig, logger *zap.Logger) *RateLimitService {
	service := &RateLimitService{
		cfg:      cfg,
		limits:   make(map[string]*RateLimitEntry),
		quitChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		now:      time.Now,
		logger:   logger,
	}

	if cfg.Enabled {
		go service.cleanupRoutine()
	} else {
		close(service.doneChan)
	}

	return service
}

func (rls *RateLimitService) limit() rate.Limit {
	return rate.Limit(float64(rls.cfg.RequestsPerMinute) / 60)
}

func (rls *RateLimitService) burst() int {
	if rls.cfg.BurstSize > 0 {
		return rls.cfg.BurstSize
	}
	return 1
}

func (rls *RateLimitService) entry(ip string, now time.Time) *RateLimitEntry {
	e, ok := rls.limits[ip]
	if !ok {
		e = &RateLimitEntry{limiter: rate.NewLimiter(rls.limit(), rls.burst())}
		rls.limits[ip] = e
		rls.logger.Debug("New rate limit entry created", zap.String("ip", ip))
	}
	e.lastSeen = now
	return e
}

// IsAllowed takes one token from the IP's bucket
func (rls *RateLimitService) IsAllowed(ip string) bool {
	if !rls.cfg.Enabled {
		return true
	}

	rls.mu.Lock()
	defer rls.mu.Unlock()

	now := rls.now()
	if !rls.entry(ip, now).limiter.AllowN(now, 1) {
		metrics.RateLimitExceeded.Inc()
		rls.logger.Warn("Rate limit exceeded",
			zap.String("ip", ip),
			zap.Int("requests_per_minute", rls.cfg.RequestsPerMinute),
			zap.Int("burst", rls.burst()))
		return false
	}
	return true
}

// GetRemaining returns the whole tokens left for IP, or -1 when unlimited
func (rls *RateLimitService) GetRemaining(ip string) int {
	if !rls.cfg.Enabled {
		return -1
	}

	rls.mu.Lock()
	defer rls.mu.Unlock()

	e, ok := rls.limits[ip]
	if !ok {
		return rls.burst()
	}
	tokens := e.limiter.TokensAt(rls.now())
	if tokens < 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// RetryAfter estimates how long until IP may send another request
func (rls *RateLimitService) RetryAfter(ip string) time.Duration {
	if !rls.cfg.Enabled || rls.cfg.RequestsPerMinute <= 0 {
		return 0
	}

	rls.mu.Lock()
	defer rls.mu.Unlock()

	e, ok := rls.limits[ip]
	if !ok {
		return 0
	}
	missing := 1 - e.limiter.TokensAt(rls.now())
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(rls.limit()) * float64(time.Second))
}

// cleanupRoutine periodically forgets idle IPs
func (rls *RateLimitService) cleanupRoutine() {
	defer close(rls.doneChan)

	interval := rls.cfg.CleanupInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rls.quitChan:
			rls.logger.Info("Rate limit service stopped")
			return
		case <-ticker.C:
			rls.cleanup()
		}
	}
}

// cleanup removes entries idle for longer than the cleanup interval
func (rls *RateLimitService) cleanup() int {
	rls.mu.Lock()
	defer rls.mu.Unlock()

	idle := rls.cfg.CleanupInterval
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	now := rls.now()
	removed := 0

	for ip, e := range rls.limits {
		if now.Sub(e.lastSeen) > idle {
			delete(rls.limits, ip)
			removed++
		}
	}

	if removed > 0 {
		rls.logger.Debug("Rate limit entries cleaned up", zap.Int("removed", removed), zap.Int("remaining", len(rls.limits)))
	}
	return removed
}

// Stop stops the cleanup routine
func (rls *RateLimitService) Stop() {
	rls.stopOnce.Do(func() {
		close(rls.quitChan)
		<-rls.doneChan
	})
}
