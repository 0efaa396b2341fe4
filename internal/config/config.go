// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DBPath       string
	LogLevel     string
	LogFormat    string
	FrontendURL  string
	CookieSecure bool
	StaticDir    string
	Seed         bool

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	S3 S3Config

	BackupPassphrase    string
	BackupHour          int
	BackupRetentionDays int
}

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// Configured reports whether enough is set to reach a bucket.
func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// PushEnabled reports whether both VAPID keys are present.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// BackupEnabled reports whether scheduled backups can run.
func (c *Config) BackupEnabled() bool {
	return c.S3.Configured() && c.BackupPassphrase != ""
}

// Load reads envFile (if it exists) into the environment without overriding
// variables that are already set, then builds a Config from the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:            getenv("POINTJAR_PORT", "5000"),
		DBPath:          getenv("POINTJAR_DB_PATH", "pointjar.db"),
		LogLevel:        getenv("POINTJAR_LOG_LEVEL", "info"),
		LogFormat:       getenv("POINTJAR_LOG_FORMAT", "text"),
		FrontendURL:     getenv("FRONTEND_URL", "http://localhost:3000"),
		StaticDir:       os.Getenv("POINTJAR_STATIC_DIR"),
		VAPIDPublicKey:  os.Getenv("POINTJAR_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("POINTJAR_VAPID_PRIVATE_KEY"),
		VAPIDSubscriber: getenv("POINTJAR_VAPID_SUBSCRIBER", "noreply@pointjar.local"),
		S3: S3Config{
			Endpoint:  os.Getenv("POINTJAR_S3_ENDPOINT"),
			Bucket:    os.Getenv("POINTJAR_S3_BUCKET"),
			Region:    getenv("POINTJAR_S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("POINTJAR_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("POINTJAR_S3_SECRET_KEY"),
		},
		BackupPassphrase: os.Getenv("POINTJAR_BACKUP_PASSPHRASE"),
	}

	var err error
	if cfg.CookieSecure, err = getbool("POINTJAR_COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.Seed, err = getbool("POINTJAR_SEED", true); err != nil {
		return nil, err
	}
	if cfg.S3.PathStyle, err = getbool("POINTJAR_S3_PATH_STYLE", cfg.S3.Endpoint != ""); err != nil {
		return nil, err
	}
	if cfg.BackupHour, err = getint("POINTJAR_BACKUP_HOUR", 3); err != nil {
		return nil, err
	}
	if cfg.BackupHour < 0 || cfg.BackupHour > 23 {
		return nil, fmt.Errorf("POINTJAR_BACKUP_HOUR: %d out of range 0-23", cfg.BackupHour)
	}
	if cfg.BackupRetentionDays, err = getint("POINTJAR_BACKUP_RETENTION_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.BackupRetentionDays < 1 {
		return nil, fmt.Errorf("POINTJAR_BACKUP_RETENTION_DAYS: must be at least 1")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getint(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
