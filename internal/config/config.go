package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type LogConfig struct {
	Level     string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format    string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	Component string `yaml:"component" env:"LOG_COMPONENT" env-default:"grpc_server"`
	Source    bool   `yaml:"source" env:"LOG_SOURCE" env-default:"false"`
}

type DBConfig struct {
	// Driver selects the gorm dialector: mysql, postgres or sqlite.
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"mysql"`
	DSN         string `yaml:"dsn" env:"MYSQL_DSN"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"muzz.db"`
	Host        string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port        string `yaml:"port" env:"DB_PORT" env-default:"3306"`
	User        string `yaml:"user" env:"DB_USER" env-default:"root"`
	Password    string `yaml:"password" env:"DB_PASSWORD" env-default:"root"`
	Name        string `yaml:"name" env:"DB_NAME" env-default:"muzz"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type GRPCConfig struct {
	Host    string        `yaml:"host" env:"GRPC_HOST" env-default:"127.0.0.1"`
	Port    string        `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
	Timeout time.Duration `yaml:"timeout" env:"RPC_TIMEOUT" env-default:"5s"`
}

// Addr returns host:port.
func (g GRPCConfig) Addr() string { return net.JoinHostPort(g.Host, g.Port) }

// HTTPConfig is the side listener for /metrics, /livez and /healthz.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"9090"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

type IDConfig struct {
	WorkerID int64 `yaml:"worker_id" env:"WORKER_ID" env-default:"0"`
	// EpochMS is the custom epoch in unix milliseconds (2023-01-01T00:00:00Z by default).
	EpochMS int64 `yaml:"epoch_ms" env:"ID_EPOCH_MS" env-default:"1672531200000"`
}

// DefaultJWTSecret is a placeholder for local runs; Load refuses it in production.
const DefaultJWTSecret = "change-me"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a non-default value in production")

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"change-me"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"muzz-match"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
}

type DiscoveryConfig struct {
	PageSize    int `yaml:"page_size" env:"DISCOVERY_PAGE_SIZE" env-default:"10"`
	MaxPageSize int `yaml:"max_page_size" env:"DISCOVERY_MAX_PAGE_SIZE" env-default:"50"`
}

type ChatConfig struct {
	MaxMessageLen int     `yaml:"max_message_len" env:"CHAT_MAX_MESSAGE_LEN" env-default:"2000"`
	RatePerSec    float64 `yaml:"rate_per_sec" env:"CHAT_RATE_PER_SEC" env-default:"5"`
	RateBurst     int     `yaml:"rate_burst" env:"CHAT_RATE_BURST" env-default:"10"`
	OutboxSize    int     `yaml:"outbox_size" env:"CHAT_OUTBOX_SIZE" env-default:"64"`
}

type Config struct {
	App struct {
		ENV string `yaml:"env" env:"APP_ENV" env-default:"production"`
	} `yaml:"app"`

	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	HTTP      HTTPConfig      `yaml:"http"`
	ID        IDConfig        `yaml:"id"`
	Auth      AuthConfig      `yaml:"auth"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Chat      ChatConfig      `yaml:"chat"`
}

// New loads the configuration and panics if it cannot be parsed.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads env vars, on top of the YAML file named by CONFIG_PATH when set.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	if cfg.Discovery.MaxPageSize < cfg.Discovery.PageSize {
		cfg.Discovery.MaxPageSize = cfg.Discovery.PageSize
	}

	if cfg.App.ENV == "production" && (cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == DefaultJWTSecret) {
		return nil, ErrInsecureJWTSecret
	}

	return &cfg, nil
}
