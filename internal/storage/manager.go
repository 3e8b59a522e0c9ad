package storage

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ytthumb/internal/model"
	"ytthumb/pkg/logger"

	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown or expired image ids
var ErrNotFound = errors.New("storage: image not found or expired")

// Manager keeps generated images in memory until they expire and remembers
// the latest image per session key
type Manager struct {
	cfg      *model.StorageConfig
	images   map[string]*model.GeneratedImage
	latest   map[string]string // session key -> image id
	mu       sync.RWMutex
	quitChan chan struct{}
	doneChan chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
	now      func() time.Time
}

// NewManager creates a new storage manager
func NewManager(cfg *model.StorageConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		images:   make(map[string]*model.GeneratedImage),
		latest:   make(map[string]string),
		quitChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start starts the cleanup routine
func (m *Manager) Start() {
	if m.started.CompareAndSwap(false, true) {
		go m.cleanupRoutine()
	}
}

// Stop stops the cleanup routine and waits for it to exit
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.quitChan)
		if m.started.Load() {
			<-m.doneChan
		}
	})
}

// Save stores img under img.ID and makes it the latest image of its session.
// The previous latest image of the session stays retrievable by id until it
// expires.
func (m *Manager) Save(img *model.GeneratedImage) {
	now := m.now()
	img.CreatedAt = now
	img.ExpiresAt = now.Add(m.cfg.ImageTTL)

	m.mu.Lock()
	m.images[img.ID] = img
	if img.SessionKey != "" {
		m.latest[img.SessionKey] = img.ID
	}
	evicted := m.evictOverflowLocked()
	total := len(m.images)
	m.mu.Unlock()

	logger.Logger.Info("Generated image saved",
		zap.String("id", img.ID),
		zap.String("video_id", img.VideoID),
		zap.Int("size", len(img.Data)),
		zap.Int("evicted", evicted),
		zap.Int("tracked_images", total))
}

// evictOverflowLocked drops the oldest images beyond MaxImages
func (m *Manager) evictOverflowLocked() int {
	if m.cfg.MaxImages <= 0 || len(m.images) <= m.cfg.MaxImages {
		return 0
	}

	all := make([]*model.GeneratedImage, 0, len(m.images))
	for _, img := range m.images {
		all = append(all, img)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	excess := len(all) - m.cfg.MaxImages
	for _, img := range all[:excess] {
		m.removeLocked(img)
	}
	return excess
}

func (m *Manager) removeLocked(img *model.GeneratedImage) {
	delete(m.images, img.ID)
	if m.latest[img.SessionKey] == img.ID {
		delete(m.latest, img.SessionKey)
	}
}

// Get returns a live image by id
func (m *Manager) Get(id string) (*model.GeneratedImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	img, ok := m.images[id]
	if !ok || m.now().After(img.ExpiresAt) {
		return nil, ErrNotFound
	}
	return img, nil
}

// Latest returns the most recent live image of a session
func (m *Manager) Latest(sessionKey string) (*model.GeneratedImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.latest[sessionKey]
	if !ok {
		return nil, ErrNotFound
	}
	img, ok := m.images[id]
	if !ok || m.now().After(img.ExpiresAt) {
		return nil, ErrNotFound
	}
	return img, nil
}

// cleanupRoutine periodically removes expired images
func (m *Manager) cleanupRoutine() {
	defer close(m.doneChan)

	interval := m.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info("Storage cleanup routine started",
		zap.Duration("cleanup_interval", interval),
		zap.Duration("image_ttl", m.cfg.ImageTTL))

	for {
		select {
		case <-m.quitChan:
			logger.Logger.Info("Storage cleanup routine stopped")
			return
		case <-ticker.C:
			m.cleanupExpired()
		}
	}
}

// cleanupExpired removes images that have expired
func (m *Manager) cleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, img := range m.images {
		if now.After(img.ExpiresAt) {
			m.removeLocked(img)
			removed++
		}
	}

	if removed > 0 {
		logger.Logger.Info("Storage cleanup completed",
			zap.Int("removed_count", removed),
			zap.Int("remaining_tracked_images", len(m.images)))
	}
	return removed
}

// TrackedCount returns the number of images currently held
func (m *Manager) TrackedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}
