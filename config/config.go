package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	Storage     StorageConfig     `json:"storage"`
	MinIO       MinIOConfig       `json:"minio"`
	JWT         JWTConfig         `json:"jwt"`
	Log         LogConfig         `json:"log"`
	Drive       DriveConfig       `json:"drive"`
	Collections CollectionsConfig `json:"collections"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// LoginRatePerMinute limits login/register attempts per client IP.
	LoginRatePerMinute int `json:"login_rate_per_minute"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `json:"driver"` // "postgres" or "sqlite3"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
	// Path is the database file for the sqlite3 driver.
	Path string `json:"path"`
}

// StorageConfig selects the byte storage backend
type StorageConfig struct {
	Driver string `json:"driver"` // "minio" or "memory"
}

// MinIOConfig holds MinIO configuration
type MinIOConfig struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
	BucketName      string `json:"bucket_name"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string `json:"secret"`
	Expiration string `json:"expiration"` // Duration as string (e.g., "24h", "1h30m")
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// DriveConfig holds drive behaviour settings
type DriveConfig struct {
	QuotaBytes     int64  `json:"quota_bytes"`
	URLExpiration  string `json:"url_expiration"`
	IndexCacheSize int    `json:"index_cache_size"`
	IndexTTL       string `json:"index_ttl"`
}

// CollectionsConfig names the table backing each entity type
type CollectionsConfig struct {
	Users        string `json:"users"`
	Sessions     string `json:"sessions"`
	Entries      string `json:"entries"`
	Medications  string `json:"medications"`
	Appointments string `json:"appointments"`
}

// GetExpiration returns the parsed duration
func (j *JWTConfig) GetExpiration() time.Duration {
	return parseDuration(j.Expiration, 24*time.Hour)
}

// GetURLExpiration returns how long presigned object URLs stay valid
func (d *DriveConfig) GetURLExpiration() time.Duration {
	return parseDuration(d.URLExpiration, time.Hour)
}

// GetIndexTTL returns how long a cached folder index may be served
func (d *DriveConfig) GetIndexTTL() time.Duration {
	return parseDuration(d.IndexTTL, time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return duration
}

// Load loads configuration from Config.json file
func Load() (*Config, error) {
	// Get the directory where the executable is located
	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	exeDir := filepath.Dir(exePath)

	// Try to find Config.json in the same directory as the executable
	configPath := filepath.Join(exeDir, "Config.json")

	// If not found, try in current working directory
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "Config.json"
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from the given path. A missing file is not an
// error as long as the environment supplies the required values.
func LoadFile(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	// Validate required fields
	if config.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required in config file or MEDVAULT_JWT_SECRET")
	}
	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}
	switch config.Storage.Driver {
	case "minio", "memory":
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.JWT.Expiration == "" {
		c.JWT.Expiration = "24h"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LoginRatePerMinute == 0 {
		c.Server.LoginRatePerMinute = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Path == "" {
		c.Database.Path = "medvault.db"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "minio"
	}
	if c.MinIO.BucketName == "" {
		c.MinIO.BucketName = "medvault"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Drive.QuotaBytes == 0 {
		c.Drive.QuotaBytes = 500 * 1024 * 1024
	}
	if c.Drive.IndexCacheSize == 0 {
		c.Drive.IndexCacheSize = 1024
	}

	names := &c.Collections
	for _, f := range []struct {
		v   *string
		def string
	}{
		{&names.Users, "users"},
		{&names.Sessions, "sessions"},
		{&names.Entries, "entries"},
		{&names.Medications, "medications"},
		{&names.Appointments, "appointments"},
	} {
		if *f.v == "" {
			*f.v = f.def
		}
	}
}

// applyEnv overrides file values with MEDVAULT_* environment variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"MEDVAULT_DB_DRIVER":               &c.Database.Driver,
		"MEDVAULT_DB_HOST":                 &c.Database.Host,
		"MEDVAULT_DB_USER":                 &c.Database.User,
		"MEDVAULT_DB_PASSWORD":             &c.Database.Password,
		"MEDVAULT_DB_NAME":                 &c.Database.DBName,
		"MEDVAULT_DB_SSLMODE":              &c.Database.SSLMode,
		"MEDVAULT_DB_PATH":                 &c.Database.Path,
		"MEDVAULT_STORAGE_DRIVER":          &c.Storage.Driver,
		"MEDVAULT_MINIO_ENDPOINT":          &c.MinIO.Endpoint,
		"MEDVAULT_MINIO_ACCESS_KEY_ID":     &c.MinIO.AccessKeyID,
		"MEDVAULT_MINIO_SECRET_ACCESS_KEY": &c.MinIO.SecretAccessKey,
		"MEDVAULT_MINIO_BUCKET":            &c.MinIO.BucketName,
		"MEDVAULT_JWT_SECRET":              &c.JWT.Secret,
		"MEDVAULT_USERS_TABLE":             &c.Collections.Users,
		"MEDVAULT_SESSIONS_TABLE":          &c.Collections.Sessions,
		"MEDVAULT_ENTRIES_TABLE":           &c.Collections.Entries,
		"MEDVAULT_MEDICATIONS_TABLE":       &c.Collections.Medications,
		"MEDVAULT_APPOINTMENTS_TABLE":      &c.Collections.Appointments,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MEDVAULT_PORT":    &c.Server.Port,
		"MEDVAULT_DB_PORT": &c.Database.Port,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("MEDVAULT_MINIO_USE_SSL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MEDVAULT_MINIO_USE_SSL: %w", err)
		}
		c.MinIO.UseSSL = b
	}
	return nil
}

// DSN returns the connection string for the configured driver
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite3" {
		return fmt.Sprintf("file:%s?_fk=1&_busy_timeout=5000", c.Path)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
