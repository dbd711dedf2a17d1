package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dealmungchi/bestdeal/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Apify (remote scraping delegate) configuration
	ApifyToken     string
	ApifyBaseURL   string
	ApifyRateLimit float64
	ApifyWaitSecs  int

	// Marketplace configuration
	Sources      []string
	MaxItems     int
	AmazonRegion string
	JumiaCountry string
	ShipTo       string

	// Search configuration
	SearchTimeout     time.Duration
	SearchConcurrency int
	SourceCooldown    time.Duration

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisRequestStream   string
	RedisRequestGroup    string
	RedisConsumer        string
	RedisReportStream    string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Worker configuration
	WorkerConcurrency int

	// Metrics
	MetricsPort string

	// Environment
	Environment string
}

// DefaultSources lists every marketplace the worker registers by default
var DefaultSources = []string{"amazon", "temu", "jumia", "alibaba", "aliexpress"}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "bestdeal"
	}

	return &Config{
		ApifyToken:           getEnv("APIFY_API_TOKEN", ""),
		ApifyBaseURL:         getEnv("APIFY_BASE_URL", "https://api.apify.com"),
		ApifyRateLimit:       getEnvFloat("APIFY_RATE_LIMIT", 5),
		ApifyWaitSecs:        getEnvInt("APIFY_WAIT_SECONDS", 60),
		Sources:              getEnvList("MARKETPLACES", DefaultSources),
		MaxItems:             getEnvInt("MAX_ITEMS", 20),
		AmazonRegion:         getEnv("AMAZON_REGION", "com"),
		JumiaCountry:         getEnv("JUMIA_COUNTRY", "kenya"),
		ShipTo:               getEnv("ALIEXPRESS_SHIP_TO", "US"),
		SearchTimeout:        time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 300)) * time.Second,
		SearchConcurrency:    getEnvInt("SEARCH_CONCURRENCY", 5),
		SourceCooldown:       time.Duration(getEnvInt("SOURCE_COOLDOWN_SECONDS", 300)) * time.Second,
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisRequestStream:   getEnv("REDIS_REQUEST_STREAM", "bestdeal:requests"),
		RedisRequestGroup:    getEnv("REDIS_REQUEST_GROUP", "bestdeal"),
		RedisConsumer:        getEnv("REDIS_CONSUMER", hostname),
		RedisReportStream:    getEnv("REDIS_REPORT_STREAM", "bestdeal:reports"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 4),
		MetricsPort:          getEnv("METRICS_PORT", "9090"),
		Environment:          getEnv("BESTDEAL_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration can run a search
func (c *Config) Validate() error {
	if c.ApifyToken == "" {
		return errors.NewConfiguration("APIFY_API_TOKEN is required", nil)
	}
	if len(c.Sources) == 0 {
		return errors.NewConfiguration("at least one marketplace must be enabled", nil)
	}
	if c.MaxItems <= 0 {
		return errors.NewConfiguration("MAX_ITEMS must be positive", nil)
	}
	if c.SearchConcurrency <= 0 || c.WorkerConcurrency <= 0 {
		return errors.NewConfiguration("concurrency settings must be positive", nil)
	}
	if c.RedisStreamCount <= 0 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be positive", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList reads a comma separated list, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return append([]string(nil), defaultValue...)
	}

	var values []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}
