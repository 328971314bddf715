// Package config loads the process-wide configuration once at startup.
//
// LOAD ORDER:
//  1. Built-in defaults (Default)
//  2. Optional YAML file named by CONFIG_FILE
//  3. Environment variables (a .env file is loaded into the environment by main)
//
// The resulting Config is treated as immutable and passed explicitly to the
// components that need it; nothing reads configuration from globals.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Blob drivers.
const (
	BlobGCS   = "gcs"
	BlobLocal = "local"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Google  GoogleConfig  `yaml:"google"`
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	NATS    NATSConfig    `yaml:"nats"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	ClientURL string `yaml:"client_url"` // CORS origin and OAuth redirect target
	LogLevel  string `yaml:"log_level"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	CookieSecure bool          `yaml:"cookie_secure"`
	BcryptCost   int           `yaml:"bcrypt_cost"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

// Enabled reports whether Google sign-in routes should be registered.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type StorageConfig struct {
	Driver        string `yaml:"driver"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	SQLitePath    string `yaml:"sqlite_path"`
}

type BlobConfig struct {
	Driver          string `yaml:"driver"`
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
	PublicBaseURL   string `yaml:"public_base_url"`
	LocalDir        string `yaml:"local_dir"`
}

type OpenAIConfig struct {
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	ImageModel    string        `yaml:"image_model"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:      5000,
			ClientURL: "http://localhost:5173",
			LogLevel:  "info",
		},
		Auth: AuthConfig{
			TokenTTL:   72 * time.Hour,
			BcryptCost: 12,
		},
		Storage: StorageConfig{
			Driver:        DriverMongo,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "blog",
			SQLitePath:    "data/blog.db",
		},
		Blob: BlobConfig{
			Driver:   BlobLocal,
			LocalDir: "uploads",
		},
		OpenAI: OpenAIConfig{
			Model:         "gpt-4o-mini",
			ImageModel:    "dall-e-3",
			MaxConcurrent: 3,
			Timeout:       60 * time.Second,
		},
		NATS: NATSConfig{
			SubjectPrefix: "blog.events",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and the environment.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.mergeEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if cfg.Google.CallbackURL == "" {
		cfg.Google.CallbackURL = fmt.Sprintf("http://localhost:%d/api/user/google/callback", cfg.Server.Port)
	}
	if cfg.Blob.Driver == BlobLocal && cfg.Blob.PublicBaseURL == "" {
		cfg.Blob.PublicBaseURL = fmt.Sprintf("http://localhost:%d/uploads", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// lookupFunc matches os.LookupEnv so tests can supply a map.
type lookupFunc func(key string) (string, bool)

func (c *Config) mergeEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("CLIENT_URL", &c.Server.ClientURL)
	str("LOG_LEVEL", &c.Server.LogLevel)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	str("GOOGLE_CALLBACK_URL", &c.Google.CallbackURL)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("MONGO_URI", &c.Storage.MongoURI)
	str("MONGO_DATABASE", &c.Storage.MongoDatabase)
	str("DB_PATH", &c.Storage.SQLitePath)
	str("BLOB_DRIVER", &c.Blob.Driver)
	str("GCS_BUCKET", &c.Blob.Bucket)
	str("GCS_CREDENTIALS_FILE", &c.Blob.CredentialsFile)
	str("BLOB_PUBLIC_URL", &c.Blob.PublicBaseURL)
	str("UPLOAD_DIR", &c.Blob.LocalDir)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_MODEL", &c.OpenAI.Model)
	str("OPENAI_IMAGE_MODEL", &c.OpenAI.ImageModel)
	str("NATS_URL", &c.NATS.URL)
	str("NATS_SUBJECT_PREFIX", &c.NATS.SubjectPrefix)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v) // Atoi = ASCII to Integer
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("TOKEN_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid TOKEN_TTL %q: %w", v, err)
		}
		c.Auth.TokenTTL = d
	}
	if v, ok := lookup("OPENAI_MAX_CONCURRENT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid OPENAI_MAX_CONCURRENT %q: %w", v, err)
		}
		c.OpenAI.MaxConcurrent = n
	}
	if v, ok := lookup("OPENAI_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid OPENAI_TIMEOUT %q: %w", v, err)
		}
		c.OpenAI.Timeout = d
	}
	if v, ok := lookup("COOKIE_SECURE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid COOKIE_SECURE %q: %w", v, err)
		}
		c.Auth.CookieSecure = b
	}
	if v, ok := lookup("BCRYPT_COST"); ok && v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid BCRYPT_COST %q: %w", v, err)
		}
		c.Auth.BcryptCost = cost
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Server.Port))
	}
	switch c.Storage.Driver {
	case DriverMongo, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case BlobLocal:
	case BlobGCS:
		if c.Blob.Bucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs blob driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel maps the configured log level onto slog. Unknown values mean info.
func (s ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
