// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	EncryptionKey     []byte
	OAuthClientID     string
	OAuthClientSecret string
	TokenURL          string
	SyncSecret        string
	SyncInterval      time.Duration
	BackfillDays      int
	SyncWorkers       int
	ListenAddr        string
	DBPath            string

	// Per-provider API base URL overrides, primarily for local testing
	// against stub servers. Empty means the provider's production endpoint.
	AnalyticsBaseURL     string
	SearchConsoleBaseURL string
	ListingsBaseURL      string
}

// HasOAuthClient returns true when both OAuthClientID and OAuthClientSecret
// are non-empty. Used by the composition root to decide whether token
// refreshing can run at all.
func (c *Config) HasOAuthClient() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. SITEPULSE_ENCRYPTION_KEY is required: 64 hex characters encoding a
// 32-byte key. OAuth client settings (SITEPULSE_OAUTH_CLIENT_ID,
// SITEPULSE_OAUTH_CLIENT_SECRET, SITEPULSE_TOKEN_URL) are optional; without
// them the app starts but token refreshes fail until they are provided.
// Optional variables with defaults: SITEPULSE_SYNC_INTERVAL (6h),
// SITEPULSE_BACKFILL_DAYS (28), SITEPULSE_SYNC_WORKERS (4),
// SITEPULSE_LISTEN_ADDR (127.0.0.1:8080), SITEPULSE_DB_PATH (sitepulse.db).
func Load() (*Config, error) {
	keyHex := os.Getenv("SITEPULSE_ENCRYPTION_KEY")
	if keyHex == "" {
		return nil, fmt.Errorf("SITEPULSE_ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("SITEPULSE_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("SITEPULSE_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}

	syncInterval := 6 * time.Hour
	if v, ok := os.LookupEnv("SITEPULSE_SYNC_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SITEPULSE_SYNC_INTERVAL has invalid duration %q: %w", v, err)
		}
		syncInterval = parsed
	}

	backfillDays := 28
	if v, ok := os.LookupEnv("SITEPULSE_BACKFILL_DAYS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("SITEPULSE_BACKFILL_DAYS must be a positive integer, got %q", v)
		}
		backfillDays = parsed
	}

	syncWorkers := 4
	if v, ok := os.LookupEnv("SITEPULSE_SYNC_WORKERS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("SITEPULSE_SYNC_WORKERS must be a positive integer, got %q", v)
		}
		syncWorkers = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("SITEPULSE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "sitepulse.db"
	if v, ok := os.LookupEnv("SITEPULSE_DB_PATH"); ok {
		dbPath = v
	}

	return &Config{
		EncryptionKey:        key,
		OAuthClientID:        os.Getenv("SITEPULSE_OAUTH_CLIENT_ID"),
		OAuthClientSecret:    os.Getenv("SITEPULSE_OAUTH_CLIENT_SECRET"),
		TokenURL:             os.Getenv("SITEPULSE_TOKEN_URL"),
		SyncSecret:           os.Getenv("SITEPULSE_SYNC_SECRET"),
		SyncInterval:         syncInterval,
		BackfillDays:         backfillDays,
		SyncWorkers:          syncWorkers,
		ListenAddr:           listenAddr,
		DBPath:               dbPath,
		AnalyticsBaseURL:     os.Getenv("SITEPULSE_ANALYTICS_BASE_URL"),
		SearchConsoleBaseURL: os.Getenv("SITEPULSE_SEARCH_CONSOLE_BASE_URL"),
		ListingsBaseURL:      os.Getenv("SITEPULSE_LISTINGS_BASE_URL"),
	}, nil
}
