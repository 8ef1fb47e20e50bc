package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FIELDSYNC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Sync         SyncConfig
	Remote       RemoteConfig
	Schema       SchemaConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FIELDSYNC_APP_ENV" default:"dev"`
	Port         string `envconfig:"FIELDSYNC_APP_PORT" default:"8787"`
	LogLevel     string `envconfig:"FIELDSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FIELDSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	// Driver selects the dialect: sqlite for the on-device store,
	// postgres for hosted agent deployments.
	Driver string `envconfig:"FIELDSYNC_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"FIELDSYNC_DB_DSN" default:"knocker.db"`

	MaxOpenConns    int           `envconfig:"FIELDSYNC_DB_MAX_OPEN_CONNS" default:"1"`
	MaxIdleConns    int           `envconfig:"FIELDSYNC_DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"FIELDSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIELDSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) validate() error {
	switch strings.ToLower(db.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported db driver %q", db.Driver)
	}
	if db.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	return nil
}

type SyncConfig struct {
	Interval    time.Duration `envconfig:"FIELDSYNC_SYNC_INTERVAL" default:"5m"`
	MaxAttempts int           `envconfig:"FIELDSYNC_SYNC_MAX_ATTEMPTS" default:"10"`
	BackoffBase time.Duration `envconfig:"FIELDSYNC_SYNC_BACKOFF_BASE" default:"2s"`
	BackoffCap  time.Duration `envconfig:"FIELDSYNC_SYNC_BACKOFF_CAP" default:"5m"`
}

type RemoteConfig struct {
	BaseURL             string        `envconfig:"FIELDSYNC_REMOTE_BASE_URL" default:"https://api.knockerapp.com/v1"`
	Timeout             time.Duration `envconfig:"FIELDSYNC_REMOTE_TIMEOUT" default:"15s"`
	ReachabilityURL     string        `envconfig:"FIELDSYNC_REMOTE_REACHABILITY_URL" default:""`
	ReachabilityTimeout time.Duration `envconfig:"FIELDSYNC_REMOTE_REACHABILITY_TIMEOUT" default:"3s"`
}

// ProbeURL returns the reachability endpoint, falling back to the API base.
func (r RemoteConfig) ProbeURL() string {
	if r.ReachabilityURL != "" {
		return r.ReachabilityURL
	}
	return r.BaseURL
}

type SchemaConfig struct {
	// WarmupSets are fetched eagerly at startup so picklists work before
	// the first form opens.
	WarmupSets []string `envconfig:"FIELDSYNC_SCHEMA_WARMUP_SETS" default:"Storm_Inspection_Knock_Status,Solar_Knock_Status,Community_Solar_Knock_Status"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FIELDSYNC_AUTO_MIGRATE" default:"true"`
}
