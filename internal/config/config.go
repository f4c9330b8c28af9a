package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultConnectorsFile    = "connectors.toml"
	defaultSyncInterval      = time.Hour
	defaultSyncWorkers       = 4
	defaultHTTPClientTimeout = 120 * time.Second

	defaultSyncFailureBackoffBase = time.Minute
	defaultSyncFailureBackoffMax  = time.Hour
)

type Config struct {
	HTTPAddr              string
	MetricsAddr           string
	ConnectorsFile        string
	FactorsFile           string
	MajorChangesFile      string
	SyncInterval          time.Duration
	SyncWorkers           int
	SyncFailureBackoff    time.Duration
	SyncFailureBackoffMax time.Duration
	HTTPClientTimeout     time.Duration
	VaultAddr             string
	VaultToken            string
	VaultNamespace        string
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		HTTPAddr:              getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:           strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		ConnectorsFile:        getenvDefault("CONNECTORS_FILE", defaultConnectorsFile),
		FactorsFile:           strings.TrimSpace(os.Getenv("FACTORS_FILE")),
		MajorChangesFile:      strings.TrimSpace(os.Getenv("MAJOR_CHANGES_FILE")),
		SyncInterval:          defaultSyncInterval,
		SyncWorkers:           getenvIntDefault("SYNC_WORKERS", defaultSyncWorkers),
		SyncFailureBackoff:    defaultSyncFailureBackoffBase,
		SyncFailureBackoffMax: defaultSyncFailureBackoffMax,
		HTTPClientTimeout:     defaultHTTPClientTimeout,
		VaultAddr:             strings.TrimSpace(os.Getenv("VAULT_ADDR")),
		VaultToken:            strings.TrimSpace(os.Getenv("VAULT_TOKEN")),
		VaultNamespace:        strings.TrimSpace(os.Getenv("VAULT_NAMESPACE")),
	}

	// A zero SYNC_INTERVAL disables the scheduler.
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return cfg, errors.New("SYNC_INTERVAL must be a non-negative duration")
		}
		cfg.SyncInterval = d
	}
	if v := os.Getenv("SYNC_FAILURE_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SyncFailureBackoff = d
		}
	}
	if v := os.Getenv("SYNC_FAILURE_BACKOFF_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SyncFailureBackoffMax = d
		}
	}
	if v := os.Getenv("HTTP_CLIENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HTTPClientTimeout = d
		}
	}

	if cfg.SyncFailureBackoffMax < cfg.SyncFailureBackoff {
		cfg.SyncFailureBackoffMax = cfg.SyncFailureBackoff
	}
	if cfg.VaultToken != "" && cfg.VaultAddr == "" {
		return cfg, errors.New("VAULT_ADDR is required when VAULT_TOKEN is set")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
