// Package config centralizes all application configuration into typed structs.
//
// Go Learning Note — Configuration Management:
// Defaults live in NewDefaultConfig as struct literals; Load layers a handful
// of environment variables on top (API key, port, database path, JWT secret).
// Secrets never get a usable default: an empty MapsAPIKey simply makes every
// provider-backed search return an empty result.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the top-level configuration container.
type Config struct {
	Server   ServerConfig
	Maps     MapsConfig
	Search   SearchConfig
	Refetch  RefetchConfig
	Sessions SessionConfig
	Corridor CorridorConfig
	Storage  StorageConfig
	Auth     AuthConfig
	LogLevel string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int // requests per RateWindow per client IP on search routes
	RateWindow      time.Duration
}

// MapsConfig configures the Google Maps Platform client.
type MapsConfig struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	PageDelay      time.Duration // wait before requesting a next_page_token
	MaxPages       int
}

// SearchConfig controls the grid search. The radius is independent of the
// cell size, so adjacent search circles may overlap or leave gaps.
type SearchConfig struct {
	GridRows      int
	GridCols      int
	RadiusMeters  int
	Keyword       string
	CacheCapacity int
}

// RefetchConfig drives the viewport refetch controller.
type RefetchConfig struct {
	Debounce         time.Duration
	MinFetchInterval time.Duration
	SuppressWindow   time.Duration
}

// SessionConfig bounds how long an untouched map session lives. The sweeper
// checks every SweepInterval and closes sessions idle for IdleTimeout.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// CorridorConfig sets the default lateral distance for stations along a route.
type CorridorConfig struct {
	MaxDistanceMeters float64
}

// StorageConfig selects the saved-place store. An empty DBPath keeps saved
// places in memory.
type StorageConfig struct {
	DBPath string
}

// AuthConfig holds the HMAC secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string
}

// NewDefaultConfig returns a Config populated with the reference values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Maps: MapsConfig{
			BaseURL:        "https://maps.googleapis.com/maps/api",
			RequestTimeout: 12 * time.Second,
			PageDelay:      1500 * time.Millisecond,
			MaxPages:       3,
		},
		Search: SearchConfig{
			GridRows:      3,
			GridCols:      3,
			RadiusMeters:  1500,
			Keyword:       "ev charging station",
			CacheCapacity: 4096,
		},
		Refetch: RefetchConfig{
			Debounce:         800 * time.Millisecond,
			MinFetchInterval: 3000 * time.Millisecond,
			SuppressWindow:   800 * time.Millisecond,
		},
		Sessions: SessionConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Corridor: CorridorConfig{
			MaxDistanceMeters: 300,
		},
		Storage: StorageConfig{
			DBPath: "./data/saved_places.db",
		},
		LogLevel: "info",
	}
}

// Load returns the default configuration with environment overrides applied.
func Load() *Config {
	cfg := NewDefaultConfig()

	if v := os.Getenv("PORT"); v != "" {
		if v[0] != ':' {
			v = ":" + v
		}
		cfg.Server.Port = v
	}
	if v, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.Storage.DBPath = v
	}
	cfg.Maps.APIKey = os.Getenv("MAPS_API_KEY")
	if v := os.Getenv("MAPS_BASE_URL"); v != "" {
		cfg.Maps.BaseURL = v
	}
	if v := os.Getenv("MAPS_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Maps.MaxPages = n
		}
	}
	if v := os.Getenv("SESSION_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sessions.IdleTimeout = d
		}
	}
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
