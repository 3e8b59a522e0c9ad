package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"ytthumb/internal/model"

	"github.com/joho/godotenv"
)

// Schema names accepted by STYLE_SCHEMA.
const (
	SchemaPercent = "percent"
	SchemaZone    = "zone"
)

// Load loads configuration from environment variables
func Load() *model.Config {
	godotenv.Load()

	baseURL := strings.TrimRight(getEnvStr("THUMBNAIL_BASE_URL", "https://img.youtube.com"), "/")

	return &model.Config{
		Server: model.ServerConfig{
			Port:    getEnvInt("SERVER_PORT", 8080),
			Host:    getEnvStr("SERVER_HOST", "0.0.0.0"),
			Timeout: getEnvInt("SERVER_TIMEOUT", 60),
		},
		Logging: model.LoggingConfig{
			Level:    getEnvStr("LOG_LEVEL", "info"),
			FilePath: getEnvStr("LOG_FILE", ""),
		},
		Thumbnail: model.ThumbnailConfig{
			BaseURL:      baseURL,
			FetchTimeout: getEnvDuration("THUMBNAIL_FETCH_TIMEOUT", 10*time.Second),
			MaxBytes:     getEnvInt64("THUMBNAIL_MAX_BYTES", 5<<20),
		},
		Gemini: model.GeminiConfig{
			APIKey:  getEnvStr("GEMINI_API_KEY", ""),
			Model:   getEnvStr("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvDuration("GEMINI_TIMEOUT", 20*time.Second),
		},
		Style: model.StyleConfig{
			Schema:     parseSchema(getEnvStr("STYLE_SCHEMA", SchemaPercent)),
			ServiceURL: getEnvStr("STYLE_SERVICE_URL", ""),
			CacheTTL:   getEnvDuration("STYLE_CACHE_TTL", time.Hour),
		},
		Redis: model.RedisConfig{
			URL: getEnvStr("REDIS_URL", ""),
		},
		Remake: model.RemakeConfig{
			FontPath:       getEnvStr("FONT_PATH", ""),
			MaxUploadMB:    getEnvInt("REMAKE_MAX_UPLOAD_MB", 10),
			DefaultCaption: getEnvStr("REMAKE_DEFAULT_CAPTION", "My custom thumbnail title"),
		},
		Storage: model.StorageConfig{
			ImageTTL:        getEnvDuration("GENERATED_IMAGE_TTL", 30*time.Minute),
			CleanupInterval: getEnvDuration("STORAGE_CLEANUP_INTERVAL", time.Minute),
			MaxImages:       getEnvInt("GENERATED_IMAGE_MAX", 256),
		},
		RateLimit: model.RateLimitConfig{
			Enabled:           getEnvBool("RATELIMIT_ENABLED", true),
			RequestsPerMinute: getEnvInt("RATELIMIT_REQUESTS_PER_MINUTE", 120),
			BurstSize:         getEnvInt("RATELIMIT_BURST_SIZE", 20),
			CleanupInterval:   getEnvDuration("RATELIMIT_CLEANUP_INTERVAL", 30*time.Minute),
		},
		Security: model.SecurityConfig{
			AllowedHosts: allowedHosts(getEnvStr("THUMBNAIL_ALLOWED_HOSTS", "img.youtube.com,i.ytimg.com"), baseURL),
		},
	}
}

// allowedHosts splits the comma separated list and adds the host of the
// thumbnail origin
func allowedHosts(list, baseURL string) []string {
	seen := map[string]bool{}
	var hosts []string
	add := func(h string) {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || seen[h] {
			return
		}
		seen[h] = true
		hosts = append(hosts, h)
	}

	for _, h := range strings.Split(list, ",") {
		add(h)
	}
	if u, err := url.Parse(baseURL); err == nil {
		add(u.Host)
	}
	return hosts
}

// parseSchema maps STYLE_SCHEMA to a known schema, percent being canonical
func parseSchema(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SchemaZone:
		return SchemaZone
	default:
		return SchemaPercent
	}
}

func getEnvStr(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	valStr := getEnvStr(key, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	valStr := getEnvStr(key, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	valStr := strings.ToLower(getEnvStr(key, ""))
	if valStr == "true" || valStr == "1" || valStr == "yes" {
		return true
	}
	if valStr == "false" || valStr == "0" || valStr == "no" {
		return false
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := strings.TrimSpace(getEnvStr(key, ""))
	if valStr == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(valStr); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(valStr); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
