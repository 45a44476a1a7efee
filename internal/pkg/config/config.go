package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Session storage backends.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// Config is shared by the CLI and the sandbox; each reads the sections it needs.
type Config struct {
	Env      string `env:"ENV,        default=development"`
	LogLevel string `env:"LOG_LEVEL,  default=info"`
	// LogPretty switches to console output; leave off when shipping logs.
	LogPretty bool `env:"LOG_PRETTY, default=false"`

	Market  MarketConfig
	Session SessionConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Sandbox SandboxConfig
}

type MarketConfig struct {
	APIURL  string        `env:"MARKET_API_URL, default=http://localhost:5000/api"`
	Timeout time.Duration `env:"MARKET_TIMEOUT, default=15s"`
}

type SessionConfig struct {
	Store   string `env:"SESSION_STORE,   default=file"`
	Profile string `env:"SESSION_PROFILE, default=default"`
	// File overrides the default <config dir>/h2trade/<profile>.json.
	File string        `env:"SESSION_FILE"`
	TTL  time.Duration `env:"SESSION_TTL,     default=0s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=h2trade"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SandboxConfig struct {
	Port      string        `env:"PORT,       default=5000"`
	JWTSecret string        `env:"JWT_SECRET, default=sandbox-secret"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,  default=24h"`
	// Seed loads demo accounts and listings at startup.
	Seed bool `env:"SANDBOX_SEED, default=true"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case StoreFile, StoreMemory, StoreRedis, StoreMongo:
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.Session.Store)
	}
	if c.Market.Timeout <= 0 {
		return fmt.Errorf("config: MARKET_TIMEOUT must be positive")
	}
	if c.Session.Profile == "" {
		return fmt.Errorf("config: SESSION_PROFILE must not be empty")
	}
	return nil
}
