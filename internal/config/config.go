package config

import (
	"fmt"
	"strings"

	"github.com/proanalytics/core/internal/domain"
	"github.com/spf13/viper"
)

// Manager implements configuration loading and validation using Viper.
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager builds a Manager, loading configuration from (in increasing
// priority) defaults, an optional config file, and environment variables
// prefixed PROANALYTICS_.
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./config")
	m.v.AddConfigPath("/etc/proanalytics/")

	m.v.SetEnvPrefix("PROANALYTICS")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	m.setDefaults()

	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Store defaults
	m.v.SetDefault("store.driver", "postgres")
	m.v.SetDefault("store.host", "localhost")
	m.v.SetDefault("store.port", 5432)
	m.v.SetDefault("store.database", "proanalytics")
	m.v.SetDefault("store.username", "postgres")
	m.v.SetDefault("store.password", "")
	m.v.SetDefault("store.ssl_mode", "disable")
	m.v.SetDefault("store.sqlite_path", "proanalytics.db")
	m.v.SetDefault("store.max_open_conns", 25)
	m.v.SetDefault("store.max_idle_conns", 5)
	m.v.SetDefault("store.conn_max_lifetime", "5m")

	// Cache defaults — two distinct key families, spec.md §4.G
	m.v.SetDefault("cache.patient_redis_url", "redis://localhost:6379/0")
	m.v.SetDefault("cache.population_redis_url", "redis://localhost:6379/1")
	m.v.SetDefault("cache.cache_ttl_patient", "5m")
	m.v.SetDefault("cache.cache_ttl_population", "1h")
	m.v.SetDefault("cache.patient_lru_size", 4096)
	m.v.SetDefault("cache.population_lru_size", 1024)
	m.v.SetDefault("cache.pool_size", 10)
	m.v.SetDefault("cache.pool_timeout", "4s")
	m.v.SetDefault("cache.max_retries", 3)

	// Logging defaults
	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "json")

	// Scoring defaults
	m.v.SetDefault("scoring.aggregation_default", string(domain.AggMedianIQR))
	m.v.SetDefault("scoring.cohort_min_samples", 8)
	m.v.SetDefault("scoring.change_fallback_ratio", 0.10)

	// Observability defaults
	m.v.SetDefault("observability.dsn", "")
}

// GetConfig returns the complete configuration tree.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetStoreConfig returns the Domain Store backend configuration.
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// GetCacheConfig returns the cache-layer configuration.
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetScoringConfig returns the scoring/cohort knobs.
func (m *Manager) GetScoringConfig() *domain.ScoringConfig {
	return &m.config.Scoring
}

// Reload re-reads configuration from all sources.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate checks the loaded configuration for internal consistency.
func (m *Manager) Validate() error {
	config := m.config

	switch config.Store.Driver {
	case "postgres":
		if config.Store.Host == "" {
			return fmt.Errorf("store host is required for driver postgres")
		}
		if config.Store.Database == "" {
			return fmt.Errorf("store database name is required for driver postgres")
		}
		if config.Store.Username == "" {
			return fmt.Errorf("store username is required for driver postgres")
		}
	case "sqlite":
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("store sqlite_path is required for driver sqlite")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", config.Store.Driver)
	}

	if config.Cache.PatientRedisURL == "" {
		return fmt.Errorf("cache patient_redis_url is required")
	}
	if config.Cache.PopulationRedisURL == "" {
		return fmt.Errorf("cache population_redis_url is required")
	}
	if config.Cache.TTLPatient <= 0 {
		return fmt.Errorf("cache_ttl_patient must be positive")
	}
	if config.Cache.TTLPopulation <= 0 {
		return fmt.Errorf("cache_ttl_population must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	if config.Scoring.CohortMinSamples < 1 {
		return fmt.Errorf("cohort_min_samples must be at least 1")
	}
	if config.Scoring.ChangeFallbackRatio <= 0 {
		return fmt.Errorf("change_fallback_ratio must be positive")
	}

	return nil
}

// GetStoreConnectionString formats a postgres DSN from StoreConfig; unused
// for the sqlite driver.
func (m *Manager) GetStoreConnectionString() string {
	s := m.config.Store
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.Username, s.Password, s.Database, s.SSLMode)
}
