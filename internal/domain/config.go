package domain

import "time"

// Config is the full configuration tree for the core, loaded by
// internal/config.Manager (viper-backed).
type Config struct {
	Store         StoreConfig         `mapstructure:"store"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// StoreConfig configures the Domain Store backend.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"` // "postgres" | "sqlite"
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig configures both cache key families (§6: cache_ttl_patient,
// cache_ttl_population) and their backends.
type CacheConfig struct {
	PatientRedisURL    string        `mapstructure:"patient_redis_url"`
	PopulationRedisURL string        `mapstructure:"population_redis_url"`
	TTLPatient         time.Duration `mapstructure:"cache_ttl_patient"`
	TTLPopulation      time.Duration `mapstructure:"cache_ttl_population"`
	PatientLRUSize     int           `mapstructure:"patient_lru_size"`
	PopulationLRUSize  int           `mapstructure:"population_lru_size"`
	PoolSize           int           `mapstructure:"pool_size"`
	PoolTimeout        time.Duration `mapstructure:"pool_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScoringConfig carries the remaining §6 configuration knobs.
type ScoringConfig struct {
	AggregationDefault AggregationType `mapstructure:"aggregation_default"`
	CohortMinSamples   int             `mapstructure:"cohort_min_samples"`
	ChangeFallbackRatio float64        `mapstructure:"change_fallback_ratio"`
}

// ObservabilityConfig configures the lib/pq-backed audit sink.
type ObservabilityConfig struct {
	DSN string `mapstructure:"dsn"`
}
