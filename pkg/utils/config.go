package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"animehub/pkg/database"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devSecret = "dev-secret-change-me"
)

type DatabaseConfig = database.Config

type ServerConfig struct {
	HTTPAddr   string `toml:"http_addr"`
	GRPCAddr   string `toml:"grpc_addr"`
	SyncAddr   string `toml:"sync_addr"`
	NotifyAddr string `toml:"notify_addr"`
}

type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	JWTIssuer   string `toml:"jwt_issuer"`
	JWTTTLHours int    `toml:"jwt_ttl_hours"`
}

// JWTDuration is the token lifetime, 24h when unset.
func (a AuthConfig) JWTDuration() time.Duration {
	if a.JWTTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.JWTTTLHours) * time.Hour
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json, console or auto
}

type NATSConfig struct {
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

type ReconcileConfig struct {
	Schedule          string `toml:"schedule"`
	LockPath          string `toml:"lock_path"`
	ZeroTargetOngoing bool   `toml:"zero_target_ongoing"`
}

type VisitsConfig struct {
	Timezone string `toml:"timezone"`
}

type CatalogConfig struct {
	MirrorURL      string `toml:"mirror_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Config struct {
	Env       string          `toml:"env"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Log       LogConfig       `toml:"log"`
	NATS      NATSConfig      `toml:"nats"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Visits    VisitsConfig    `toml:"visits"`
	Catalog   CatalogConfig   `toml:"catalog"`
}

func Default() Config {
	return Config{
		Env:      EnvDevelopment,
		Database: DatabaseConfig{Path: database.DefaultPath()},
		Server: ServerConfig{
			HTTPAddr:   ":8080",
			GRPCAddr:   ":9090",
			SyncAddr:   ":9091",
			NotifyAddr: "127.0.0.1:9092",
		},
		Auth: AuthConfig{
			JWTSecret:   devSecret,
			JWTIssuer:   "animehub",
			JWTTTLHours: 24,
		},
		Log:       LogConfig{Level: "info", Format: "auto"},
		NATS:      NATSConfig{SubjectPrefix: "animehub"},
		Reconcile: ReconcileConfig{Schedule: "@every 1h"},
		Visits:    VisitsConfig{Timezone: "UTC"},
		Catalog:   CatalogConfig{TimeoutSeconds: 15},
	}
}

// LoadConfig reads .env (if any), then the TOML file at path (or the
// ANIMEHUB_CONFIG / ./animehub.toml fallbacks), then ANIMEHUB_* overrides.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("ANIMEHUB_CONFIG")
	}
	explicit := path != ""
	if !explicit {
		path = "animehub.toml"
	}

	if err := decodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"ANIMEHUB_ENV":                &c.Env,
		"ANIMEHUB_DB_PATH":            &c.Database.Path,
		"ANIMEHUB_HTTP_ADDR":          &c.Server.HTTPAddr,
		"ANIMEHUB_GRPC_ADDR":          &c.Server.GRPCAddr,
		"ANIMEHUB_SYNC_ADDR":          &c.Server.SyncAddr,
		"ANIMEHUB_NOTIFY_ADDR":        &c.Server.NotifyAddr,
		"ANIMEHUB_JWT_SECRET":         &c.Auth.JWTSecret,
		"ANIMEHUB_JWT_ISSUER":         &c.Auth.JWTIssuer,
		"ANIMEHUB_LOG_LEVEL":          &c.Log.Level,
		"ANIMEHUB_LOG_FORMAT":         &c.Log.Format,
		"ANIMEHUB_NATS_URL":           &c.NATS.URL,
		"ANIMEHUB_RECONCILE_SCHEDULE": &c.Reconcile.Schedule,
		"ANIMEHUB_TIMEZONE":           &c.Visits.Timezone,
		"ANIMEHUB_CATALOG_MIRROR_URL": &c.Catalog.MirrorURL,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v := os.Getenv("ANIMEHUB_JWT_TTL_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANIMEHUB_JWT_TTL_HOURS: %w", err)
		}
		c.Auth.JWTTTLHours = n
	}
	return nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = EnvDevelopment
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Reconcile.LockPath == "" && c.Database.Path != "" {
		c.Reconcile.LockPath = c.Database.Path + ".reconcile.lock"
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = 15
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	switch c.Env {
	case EnvDevelopment, EnvProduction, "test":
	default:
		return fmt.Errorf("env %q: want development, production or test", c.Env)
	}
	if c.Env == EnvProduction && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == devSecret) {
		return errors.New("auth.jwt_secret must be set in production")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Log.Format {
	case "json", "console", "auto":
	default:
		return fmt.Errorf("log.format %q: want json, console or auto", c.Log.Format)
	}
	if c.Reconcile.Schedule != "" {
		if _, err := cron.ParseStandard(c.Reconcile.Schedule); err != nil {
			return fmt.Errorf("reconcile.schedule: %w", err)
		}
	}
	if _, err := time.LoadLocation(c.Visits.Timezone); err != nil {
		return fmt.Errorf("visits.timezone: %w", err)
	}
	return nil
}

// Location is the time zone used to cut daily visit buckets.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Visits.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
