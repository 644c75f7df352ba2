package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-forecast-api/internal/weather"
)

// Durable store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type AppConfig struct {
	Port     string
	LogLevel string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	HTTPTimeout        time.Duration
	FetchMaxRetries    int

	// Ephemeral cache.
	CacheTTL             time.Duration
	CacheMaxSizeMB       int // 0 = unbounded
	CacheCleanupInterval time.Duration

	// Durable store.
	StoreBackend  string
	StoreTimeout  time.Duration
	ForecastTable string
	AWSRegion     string
	AWSAccessKey  string
	AWSSecretKey  string
	DynamoDBURL   string
	RedisURL      string

	// Locations refreshed in the background.
	WarmLocations []weather.Key
	WarmInterval  time.Duration

	SlowRequestThreshold time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return fromEnv()
}

func fromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:               getenvDefault("PORT", "8080"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/3.0/onecall"),
		CacheMaxSizeMB:     getenvInt("CACHE_MAX_SIZE_MB", 0),
		FetchMaxRetries:    getenvInt("FETCH_MAX_RETRIES", 0),
		StoreBackend:       getenvDefault("STORE_BACKEND", BackendDynamoDB),
		ForecastTable:      getenvDefault("FORECAST_TABLE", "weather_forecasts"),
		AWSRegion:          getenvDefault("AWS_DEFAULT_REGION", "us-east-1"),
		AWSAccessKey:       os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:       os.Getenv("AWS_SECRET_ACCESS_KEY"),
		DynamoDBURL:        getenvDefault("DYNAMODB_ENDPOINT_URL", "http://localhost:4566"),
		RedisURL:           getenvDefault("REDIS_URL", "redis://localhost:6379/0"),
	}

	if cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY is required")
	}
	if cfg.FetchMaxRetries < 0 {
		return nil, fmt.Errorf("invalid FETCH_MAX_RETRIES: %d", cfg.FetchMaxRetries)
	}
	if cfg.CacheMaxSizeMB < 0 {
		return nil, fmt.Errorf("invalid CACHE_MAX_SIZE_MB: %d", cfg.CacheMaxSizeMB)
	}

	switch cfg.StoreBackend {
	case BackendDynamoDB, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be one of dynamodb, redis, memory", cfg.StoreBackend)
	}

	durations := []struct {
		name string
		def  string
		dst  *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"CACHE_TTL", "300s", &cfg.CacheTTL},
		{"CACHE_CLEANUP_INTERVAL", "1m", &cfg.CacheCleanupInterval},
		{"STORE_TIMEOUT", "5s", &cfg.StoreTimeout},
		{"WARM_INTERVAL", "15m", &cfg.WarmInterval},
		{"SLOW_REQUEST_THRESHOLD", "500ms", &cfg.SlowRequestThreshold},
	}
	for _, d := range durations {
		v, err := getenvDuration(d.name, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if path := os.Getenv("WARM_LOCATIONS_FILE"); path != "" {
		locs, err := LoadWarmLocations(path)
		if err != nil {
			return nil, err
		}
		cfg.WarmLocations = locs
	}

	return cfg, nil
}

// LoadWarmLocations reads a YAML list of {lat, lon, units} entries. Units default to metric.
func LoadWarmLocations(path string) ([]weather.Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read warm locations file: %w", err)
	}

	var locs []weather.Key
	if err := yaml.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("failed to parse warm locations file: %w", err)
	}

	for i := range locs {
		if locs[i].Units == "" {
			locs[i].Units = weather.DefaultUnits
		}
		if err := locs[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid warm location #%d: %w", i+1, err)
		}
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
