package model

import "time"

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Thumbnail ThumbnailConfig
	Gemini    GeminiConfig
	Style     StyleConfig
	Redis     RedisConfig
	Remake    RemakeConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port    int
	Host    string
	Timeout int // seconds
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string
	FilePath string // empty logs to stdout only
}

// ThumbnailConfig holds settings for the static thumbnail origin
type ThumbnailConfig struct {
	BaseURL      string        // e.g. https://img.youtube.com
	FetchTimeout time.Duration // single attempt, no retries
	MaxBytes     int64         // cap on a fetched image body
}

// GeminiConfig holds vision model configuration
type GeminiConfig struct {
	APIKey  string // empty disables outbound analysis
	Model   string
	Timeout time.Duration
}

// StyleConfig holds style analysis configuration
type StyleConfig struct {
	Schema     string        // percent | zone, one per deployment
	ServiceURL string        // remote analyze-thumbnail endpoint, empty uses the local analyzer
	CacheTTL   time.Duration // per thumbnail URL
}

// RedisConfig holds the optional style cache backend
type RedisConfig struct {
	URL string // empty keeps the cache in memory
}

// RemakeConfig holds compositor input limits
type RemakeConfig struct {
	FontPath       string // optional TTF/OTF overriding the embedded Go fonts
	MaxUploadMB    int
	DefaultCaption string
}

// StorageConfig holds the generated image store configuration
type StorageConfig struct {
	ImageTTL        time.Duration
	CleanupInterval time.Duration
	MaxImages       int
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
	CleanupInterval   time.Duration
}

// SecurityConfig holds outbound fetch restrictions
type SecurityConfig struct {
	AllowedHosts []string // hosts analyze-thumbnail may fetch; entries with a port match host:port
}
