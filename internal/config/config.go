package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Image mirror backends.
const (
	MirrorNone  = "none"
	MirrorLocal = "local"
	MirrorR2    = "r2"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required,numeric"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gt=0"`
	HTTPTimeout     time.Duration `json:"http_timeout" validate:"gt=0"`
	SiteURL         string        `json:"site_url" validate:"required,url"`
	CanonicalHost   string        `json:"canonical_host"`

	// Notion configuration
	NotionToken      string `json:"-" validate:"required"`
	NotionDatabaseID string `json:"notion_database_id" validate:"required"`
	NotionAPIURL     string `json:"notion_api_url" validate:"required,url"`
	NotionVersion    string `json:"notion_version" validate:"required"`
	NotionRetryCount int    `json:"notion_retry_count" validate:"gte=0,lte=10"`

	// Cache configuration
	PostsCacheTTL   time.Duration `json:"posts_cache_ttl" validate:"gt=0"`
	ContentCacheTTL time.Duration `json:"content_cache_ttl" validate:"gt=0"`
	MaxConcurrency  int           `json:"max_concurrency" validate:"gte=1"`
	RedisURL        string        `json:"redis_url" validate:"omitempty,url"`
	RedisPrefix     string        `json:"redis_prefix"`

	// Image proxy and mirror
	ImageProxyAllowAny bool   `json:"image_proxy_allow_any"`
	ImageMirror        string `json:"image_mirror" validate:"oneof=none local r2"`
	MirrorPath         string `json:"mirror_path" validate:"required_if=ImageMirror local"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint" validate:"required_if=ImageMirror r2"`
	R2AccessKey string `json:"-" validate:"required_if=ImageMirror r2"`
	R2SecretKey string `json:"-" validate:"required_if=ImageMirror r2"`
	R2Bucket    string `json:"r2_bucket" validate:"required_if=ImageMirror r2"`

	// Static export
	ExportDir string `json:"export_dir"`

	// Logging
	LogLevel  string `json:"log_level" validate:"omitempty,oneof=debug info warn error fatal panic disabled"`
	LogFile   string `json:"log_file"`
	LogPretty bool   `json:"log_pretty"`

	// Security
	AdminAPIKey string `json:"-"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		SiteURL:         strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),
		CanonicalHost:   getEnv("CANONICAL_HOST", ""),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),
		NotionAPIURL:     getEnv("NOTION_API_URL", "https://api.notion.com/v1"),
		NotionVersion:    getEnv("NOTION_VERSION", "2022-06-28"),
		NotionRetryCount: getEnvAsInt("NOTION_RETRY_COUNT", 3),

		PostsCacheTTL:   getEnvAsDuration("POSTS_CACHE_TTL", time.Hour),
		ContentCacheTTL: getEnvAsDuration("CONTENT_CACHE_TTL", 24*time.Hour),
		MaxConcurrency:  getEnvAsInt("MAX_CONCURRENCY", 5),
		RedisURL:        getEnv("REDIS_URL", ""),
		RedisPrefix:     getEnv("REDIS_PREFIX", "folio:"),

		ImageProxyAllowAny: getEnvAsBool("IMAGE_PROXY_ALLOW_ANY", false),
		ImageMirror:        getEnv("IMAGE_MIRROR", MirrorNone),
		MirrorPath:         getEnv("MIRROR_PATH", "./data/images"),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", ""),

		ExportDir: getEnv("EXPORT_DIR", "./out"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the struct tags and reports every failing field at once.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
