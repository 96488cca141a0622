package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "mechflow"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	KV       KVConfig
	Redis    RedisConfig
	Password PasswordConfig
	Alerts   AlertsConfig
	Invoice  InvoiceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.KV.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MECHFLOW_APP_ENV" default:"dev"`
	Port         string `envconfig:"MECHFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MECHFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MECHFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// KVConfig selects and configures the persistence backend. Backend "sqlite"
// is the single-profile durable store; "redis" additionally feeds the
// cross-instance change channel; "memory" is for tests and throwaway runs.
type KVConfig struct {
	Backend    string `envconfig:"MECHFLOW_KV_BACKEND" default:"sqlite"`
	SQLitePath string `envconfig:"MECHFLOW_KV_SQLITE_PATH" default:"mechflow.db"`
}

func (k KVConfig) validate() error {
	switch strings.ToLower(k.Backend) {
	case "memory", "sqlite", "redis":
		return nil
	}
	return fmt.Errorf("unsupported kv backend %q", k.Backend)
}

type RedisConfig struct {
	URL          string        `envconfig:"MECHFLOW_REDIS_URL"`
	Address      string        `envconfig:"MECHFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"MECHFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"MECHFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MECHFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MECHFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MECHFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MECHFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MECHFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MECHFLOW_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MECHFLOW_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MECHFLOW_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MECHFLOW_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MECHFLOW_ARGON_KEY_LEN" default:"32"`
}

// AlertsConfig selects the platform notifier. Mode "log" writes alerts to
// the structured log; "off" swallows them.
type AlertsConfig struct {
	Mode string `envconfig:"MECHFLOW_ALERTS_MODE" default:"log"`
}

type InvoiceConfig struct {
	OutputDir string `envconfig:"MECHFLOW_INVOICE_OUTPUT_DIR" default:"invoices"`
}
