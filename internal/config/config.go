// Package config loads service configuration from an optional YAML file and
// UKS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. UKS_STORAGE_DRIVER.
const EnvPrefix = "UKS"

// Config is the full service configuration.
type Config struct {
	Storage     StorageConfig `mapstructure:"storage"`
	Blob        BlobConfig    `mapstructure:"blob"`
	StockPolicy string        `mapstructure:"stock_policy" validate:"oneof=reject permissive"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Log         LogConfig     `mapstructure:"log"`
	SchoolName  string        `mapstructure:"school_name"`
	UnitName    string        `mapstructure:"unit_name"`
}

// StorageConfig selects the aggregate document backend.
type StorageConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=memory file sqlite postgres"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	FilePath    string `mapstructure:"file_path"`
}

// BlobConfig selects the archive backend for backups and exports.
type BlobConfig struct {
	Driver string   `mapstructure:"driver" validate:"oneof=fs s3 memory"`
	FSRoot string   `mapstructure:"fs_root"`
	S3     S3Config `mapstructure:"s3"`
}

// S3Config holds bucket coordinates for the s3 blob driver.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

var defaults = map[string]any{
	"storage.driver":            "sqlite",
	"storage.sqlite_path":       "./uks.db",
	"storage.postgres_dsn":      "",
	"storage.file_path":         "./uks_db.json",
	"blob.driver":               "fs",
	"blob.fs_root":              "./blobdata",
	"blob.s3.bucket":            "",
	"blob.s3.region":            "us-east-1",
	"blob.s3.endpoint":          "",
	"blob.s3.path_style":        false,
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"stock_policy":              "reject",
	"http.addr":                 ":8080",
	"log.level":                 "info",
	"log.format":                "console",
	"school_name":               "SMP NEGERI 7",
	"unit_name":                 "UNIT KESEHATAN SEKOLAH (UKS)",
}

// Load reads configuration. When path is empty an optional uks.yaml in the
// working directory or ./config is used; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("uks")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.Driver == "postgres" && cfg.Storage.PostgresDSN == "" {
		return nil, fmt.Errorf("invalid config: storage.postgres_dsn required for postgres driver")
	}
	if cfg.Blob.Driver == "s3" && cfg.Blob.S3.Bucket == "" {
		return nil, fmt.Errorf("invalid config: blob.s3.bucket required for s3 driver")
	}
	return &cfg, nil
}
