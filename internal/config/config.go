// Package config provides application configuration for smd using Viper.
package config

import (
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/paths"
	"github.com/Midrags/SMD/pkg/fileutil"
)

// Config is the top-level configuration structure.
type Config struct {
	Version int `mapstructure:"version" yaml:"version"`

	// PayloadDir is where the external downloader collaborator places
	// pre-fetched unlocker binaries. The engine only reads from it.
	PayloadDir string `mapstructure:"payload_dir" yaml:"payload_dir"`

	// PreferredUnlocker is the default technique for auto selection.
	PreferredUnlocker string `mapstructure:"preferred_unlocker" yaml:"preferred_unlocker"`

	// ProxyMode selects the proxy-loader technique instead of direct
	// replacement when set.
	ProxyMode bool `mapstructure:"proxy_mode" yaml:"proxy_mode"`

	// MinFreeBytes is the disk space required before an install.
	MinFreeBytes uint64 `mapstructure:"min_free_bytes" yaml:"min_free_bytes"`
}

// Init initializes Viper with defaults and search paths.
// Call once at startup before accessing values.
func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	viper.AddConfigPath(paths.ConfigDir())

	viper.SetEnvPrefix("SMD")
	viper.AutomaticEnv()

	viper.SetDefault("version", 1)
	viper.SetDefault("payload_dir", paths.PayloadCacheDir())
	viper.SetDefault("preferred_unlocker", "smokeapi")
	viper.SetDefault("proxy_mode", false)
	viper.SetDefault("min_free_bytes", 10*1024*1024)
}

// Load reads the configuration. With a path it reads that exact file;
// with an empty path it searches the default locations and falls back to
// defaults when no file exists.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if path != "" {
				return nil, errors.Wrapf(err, "config file not found at %s", path)
			}
			// Implicit load without a file uses defaults.
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	return &cfg, nil
}

// WriteDefault writes a config file with default values into dir.
// Returns the path written. Refuses to overwrite an existing file.
func WriteDefault(dir string) (string, error) {
	if err := paths.EnsureDir(dir, 0); err != nil {
		return "", errors.Wrap(err, "creating config directory")
	}

	path := filepath.Join(dir, "config.yaml")
	if fileutil.FileExists(path) {
		return "", errors.Newf("config file already exists: %s", path)
	}

	cfg := Config{
		Version:           1,
		PayloadDir:        paths.PayloadCacheDir(),
		PreferredUnlocker: "smokeapi",
		ProxyMode:         false,
		MinFreeBytes:      10 * 1024 * 1024,
	}
	if err := fileutil.AtomicWriteYAML(path, &cfg); err != nil {
		return "", err
	}
	return path, nil
}
