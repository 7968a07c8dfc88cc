package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dexhq/dex/pkg/models"
)

// ConfigurationManager defines the interface for loading the .dexconfig
// file and writing the default one during init.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	WriteDefaultConfig() error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file.
type viperConfigManager struct {
	// basePath is the directory where .dexconfig resides.
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// LoadGlobalConfig reads .dexconfig from the base path. If the file does
// not exist, defaults are returned: auto-archive disabled, age_days 90,
// keep_recent 50.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := models.DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(".dexconfig")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	// Viper defaults so missing keys fall back gracefully.
	v.SetDefault("default_priority", cfg.DefaultPriority)
	v.SetDefault("auto_archive.auto", cfg.AutoArchive.Auto)
	v.SetDefault("auto_archive.age_days", cfg.AutoArchive.AgeDays)
	v.SetDefault("auto_archive.keep_recent", cfg.AutoArchive.KeepRecent)
	v.SetDefault("github.repo", cfg.GitHub.Repo)
	v.SetDefault("github.token_env", cfg.GitHub.TokenEnv)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .dexconfig: %w", err)
	}

	cfg.DefaultPriority = v.GetInt("default_priority")
	cfg.AutoArchive.Auto = v.GetBool("auto_archive.auto")
	cfg.AutoArchive.AgeDays = v.GetInt("auto_archive.age_days")
	cfg.AutoArchive.KeepRecent = v.GetInt("auto_archive.keep_recent")
	cfg.GitHub.Repo = v.GetString("github.repo")
	cfg.GitHub.TokenEnv = v.GetString("github.token_env")

	if cfg.AutoArchive.AgeDays < 0 {
		return nil, fmt.Errorf("reading .dexconfig: auto_archive.age_days must not be negative")
	}
	if cfg.AutoArchive.KeepRecent < 0 {
		return nil, fmt.Errorf("reading .dexconfig: auto_archive.keep_recent must not be negative")
	}

	return cfg, nil
}

// WriteDefaultConfig writes a .dexconfig populated with defaults, unless
// one already exists.
func (cm *viperConfigManager) WriteDefaultConfig() error {
	path := filepath.Join(cm.basePath, ".dexconfig")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("writing default config: %s: %w", path, os.ErrExist)
	}

	data, err := yaml.Marshal(models.DefaultGlobalConfig())
	if err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
