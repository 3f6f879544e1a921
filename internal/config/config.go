// Package config loads the server configuration from the environment.
//
// Values that differ between deployments (secrets, endpoints) have no
// default; everything else defaults to what a local run needs. A .env file
// in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/sakif/servicecard/internal/export"
	"github.com/sakif/servicecard/internal/storage"
)

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Storage StorageConfig
	Share   ShareConfig
	Export  ExportConfig
	CORS    CORSConfig
	MinIO   MinIOConfig
}

type ServerConfig struct {
	Port    int    `envconfig:"PORT" default:"8080"`
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type StorageConfig struct {
	DBPath    string `envconfig:"DB_PATH" default:"data/servicecard.db"`
	Namespace string `envconfig:"STORAGE_NAMESPACE" default:"doggeSavedCards"`
}

type ShareConfig struct {
	// Secret signs share links. Empty disables signed links.
	Secret string        `envconfig:"SHARE_SECRET"`
	TTL    time.Duration `envconfig:"SHARE_TTL" default:"168h"`
}

type ExportConfig struct {
	Width         int           `envconfig:"EXPORT_WIDTH" default:"400"`
	Scale         float64       `envconfig:"EXPORT_SCALE" default:"2"`
	Timeout       time.Duration `envconfig:"EXPORT_TIMEOUT" default:"10s"`
	MaxConcurrent int           `envconfig:"EXPORT_MAX_CONCURRENT" default:"4"`
	RatePerMinute int           `envconfig:"EXPORT_RATE_PER_MINUTE" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"service-cards"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

// Load reads envFile (if it exists) into the environment and then builds
// the Config. Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: processing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Server.Port)
	}
	if c.Share.Secret != "" && len(c.Share.Secret) < 16 {
		return errors.New("config: SHARE_SECRET must be at least 16 characters")
	}
	if c.Share.TTL <= 0 {
		return errors.New("config: SHARE_TTL must be positive")
	}
	if strings.TrimSpace(c.Storage.Namespace) == "" {
		return errors.New("config: STORAGE_NAMESPACE must not be empty")
	}
	if c.MinIO.Endpoint != "" && (c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "") {
		return errors.New("config: MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required with MINIO_ENDPOINT")
	}
	return nil
}

// LogLevel maps LOG_LEVEL to a slog level; unknown values read as info.
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ExportConfig returns the exporter settings.
func (c Config) ExportConfig() export.Config {
	cfg := export.DefaultConfig()
	cfg.Width = c.Export.Width
	cfg.Scale = c.Export.Scale
	cfg.Timeout = c.Export.Timeout
	cfg.MaxConcurrent = c.Export.MaxConcurrent
	return cfg
}

// ObjectStoreConfig returns the object store settings.
func (c Config) ObjectStoreConfig() storage.Config {
	return storage.Config{
		Endpoint:  c.MinIO.Endpoint,
		AccessKey: c.MinIO.AccessKey,
		SecretKey: c.MinIO.SecretKey,
		Bucket:    c.MinIO.Bucket,
		UseSSL:    c.MinIO.UseSSL,
	}
}

// NewTestConfig returns a configuration for tests: in-memory database, no
// signing, no object store.
func NewTestConfig() Config {
	return Config{
		Server:  ServerConfig{Port: 8889, BaseURL: "http://localhost:8889"},
		Log:     LogConfig{Level: "error"},
		Storage: StorageConfig{DBPath: ":memory:", Namespace: "doggeSavedCards"},
		Share:   ShareConfig{TTL: time.Hour},
		Export: ExportConfig{
			Width:         400,
			Scale:         2,
			Timeout:       5 * time.Second,
			MaxConcurrent: 2,
			RatePerMinute: 1000,
		},
	}
}
