package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ERPADMIN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Config keys are ERPADMIN_<SECTION>_<KEY>, e.g. ERPADMIN_DB_HOST.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	CORS  CORSConfig
	Lock  LockConfig
	Admin AdminConfig
}

// Load reads configs/.env when present, then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{"configs/.env"}
	}
	// A missing .env file is normal outside local development.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env      string `envconfig:"ENV" default:"dev"`
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"true"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

func (a AppConfig) Address() string {
	return ":" + a.Port
}

type DBConfig struct {
	DSN string `envconfig:"DSN"`

	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER" default:"postgres"`
	Password string `envconfig:"PASSWORD" default:"postgres"`
	Name     string `envconfig:"NAME" default:"postgres"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"AUTO_MIGRATE" default:"true"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/name is required")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	d.DSN = u.String()
	return nil
}

// RedisConfig is optional; an empty Addr disables the distributed lock.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type JWTConfig struct {
	Secret   string        `envconfig:"SECRET" default:"default_super_secret_key"`
	Issuer   string        `envconfig:"ISSUER" default:"erpadmin"`
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
}

type CORSConfig struct {
	AllowOrigins []string `envconfig:"ALLOW_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`
}

type LockConfig struct {
	TTL         time.Duration `envconfig:"TTL" default:"10s"`
	WaitTimeout time.Duration `envconfig:"WAIT_TIMEOUT" default:"3s"`
}

// AdminConfig seeds the first admin account when Email and Password are set.
type AdminConfig struct {
	Username string `envconfig:"USERNAME" default:"admin"`
	Email    string `envconfig:"EMAIL"`
	Password string `envconfig:"PASSWORD"`
}

func (a AdminConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

// Validate rejects settings that are only acceptable in development.
func (c *Config) Validate() error {
	if c.App.IsProd() && c.JWT.Secret == "default_super_secret_key" {
		return fmt.Errorf("ERPADMIN_JWT_SECRET is required in production")
	}
	if c.Lock.TTL <= 0 || c.Lock.WaitTimeout <= 0 {
		return fmt.Errorf("lock ttl and wait timeout must be positive")
	}
	return nil
}
