package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`
	AppBaseURL      string        `mapstructure:"APP_BASE_URL" validate:"required,url"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"required,oneof=sqlite postgres"`
	DatabaseURL    string `mapstructure:"DATABASE_URL" validate:"required"`

	SessionSecret string `mapstructure:"SESSION_SECRET" validate:"required,min=16"`

	AzureADClientID     string `mapstructure:"AZURE_AD_CLIENT_ID"`
	AzureADClientSecret string `mapstructure:"AZURE_AD_CLIENT_SECRET"`
	AzureADTenantID     string `mapstructure:"AZURE_AD_TENANT_ID"`
	InitialAdminEmail   string `mapstructure:"INITIAL_ADMIN_EMAIL" validate:"omitempty,email"`
	InitialAdminPass    string `mapstructure:"INITIAL_ADMIN_PASSWORD" validate:"omitempty,min=8"`

	SharePointSiteID       string `mapstructure:"SHAREPOINT_SITE_ID"`
	SharePointDriveID      string `mapstructure:"SHAREPOINT_DRIVE_ID"`
	SharePointBackupFolder string `mapstructure:"SHAREPOINT_BACKUP_FOLDER"`

	StorageDriver         string `mapstructure:"STORAGE_DRIVER" validate:"required,oneof=local sharepoint azure"`
	UploadDir             string `mapstructure:"UPLOAD_DIR" validate:"required"`
	AzureStorageConnStr   string `mapstructure:"AZURE_STORAGE_CONNECTION_STRING" validate:"required_if=StorageDriver azure"`
	AzureStorageContainer string `mapstructure:"AZURE_STORAGE_CONTAINER" validate:"required_if=StorageDriver azure"`

	BackupSecret     string `mapstructure:"BACKUP_SECRET"`
	BackupDir        string `mapstructure:"BACKUP_DIR" validate:"required"`
	BackupAdminEmail string `mapstructure:"BACKUP_ADMIN_EMAIL" validate:"omitempty,email"`

	GooglePlacesAPIKey string `mapstructure:"GOOGLE_PLACES_API_KEY"`

	RedisAddr        string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	AsynqConcurrency int    `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"APP_BASE_URL",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_DRIVER",
	"DATABASE_URL",
	"SESSION_SECRET",
	"AZURE_AD_CLIENT_ID",
	"AZURE_AD_CLIENT_SECRET",
	"AZURE_AD_TENANT_ID",
	"INITIAL_ADMIN_EMAIL",
	"INITIAL_ADMIN_PASSWORD",
	"SHAREPOINT_SITE_ID",
	"SHAREPOINT_DRIVE_ID",
	"SHAREPOINT_BACKUP_FOLDER",
	"STORAGE_DRIVER",
	"UPLOAD_DIR",
	"AZURE_STORAGE_CONNECTION_STRING",
	"AZURE_STORAGE_CONTAINER",
	"BACKUP_SECRET",
	"BACKUP_DIR",
	"BACKUP_ADMIN_EMAIL",
	"GOOGLE_PLACES_API_KEY",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"GOMAXPROCS",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "./data/portal.db")
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "./data/uploads")
	v.SetDefault("BACKUP_DIR", "./data/backups")
	v.SetDefault("SHAREPOINT_BACKUP_FOLDER", "Portal Backups")
	v.SetDefault("ASYNQ_CONCURRENCY", 2)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("GOMAXPROCS", 0)

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	if s := v.GetString("SHUTDOWN_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

// SQLitePath returns the database file path when running on SQLite, or "" otherwise.
func (c *Config) SQLitePath() string {
	if c.DatabaseDriver != "sqlite" {
		return ""
	}
	p := strings.TrimPrefix(c.DatabaseURL, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// MicrosoftEnabled reports whether Azure AD sign-in is configured.
func (c *Config) MicrosoftEnabled() bool {
	return c.AzureADClientID != "" && c.AzureADClientSecret != "" && c.AzureADTenantID != ""
}

// QueueEnabled reports whether scheduled work should go through the asynq queue.
func (c *Config) QueueEnabled() bool {
	return c.RedisAddr != ""
}
