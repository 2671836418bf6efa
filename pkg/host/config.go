package host

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/game-tools/gsm-host-go/pkg/errors"
)

// HostConfig is the top-level service configuration file structure.
type HostConfig struct {
	Host    HostConfigOptions `yaml:"host"`
	Logging LoggingConfig     `yaml:"logging,omitempty"`
	Metrics MetricsConfig     `yaml:"metrics,omitempty"`
}

// HostConfigOptions configures the orchestration engine itself.
type HostConfigOptions struct {
	RootDir             string        `yaml:"root_dir"`
	Product             string        `yaml:"product,omitempty"`
	KillTimeout         time.Duration `yaml:"kill_timeout,omitempty"`
	RestartGrace        time.Duration `yaml:"restart_grace,omitempty"`
	VersionPollInterval time.Duration `yaml:"version_poll_interval,omitempty"`
	ConfigWatchDebounce time.Duration `yaml:"config_watch_debounce,omitempty"`
}

// LoggingConfig configures the zap backend and log rotation.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

// MetricsConfig configures the Prometheus listener; an empty address
// disables it.
type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address,omitempty"`
}

// LoadConfigFromFile loads the service configuration from a YAML file.
func LoadConfigFromFile(filename string) (*HostConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config HostConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// ValidateConfig validates the service configuration.
func ValidateConfig(config *HostConfig) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}
	if config.Host.RootDir == "" {
		return errors.NewValidationError("host.root_dir is required", nil)
	}
	if config.Host.KillTimeout < 0 || config.Host.RestartGrace < 0 || config.Host.VersionPollInterval < 0 {
		return errors.NewValidationError("durations cannot be negative", nil)
	}
	return nil
}

func setConfigDefaults(config *HostConfig) {
	if config.Host.Product == "" {
		config.Host.Product = DefaultProduct
	}
	if config.Host.KillTimeout == 0 {
		config.Host.KillTimeout = DefaultKillTimeout
	}
	if config.Host.RestartGrace == 0 {
		config.Host.RestartGrace = DefaultRestartGrace
	}
	if config.Host.VersionPollInterval == 0 {
		config.Host.VersionPollInterval = DefaultVersionPollInterval
	}
	if config.Host.ConfigWatchDebounce == 0 {
		config.Host.ConfigWatchDebounce = 2 * time.Second
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

// HostOptions converts the file configuration to engine options.
func (c *HostConfig) HostOptions() Options {
	return Options{
		RootDir:             c.Host.RootDir,
		Product:             c.Host.Product,
		KillTimeout:         c.Host.KillTimeout,
		RestartGrace:        c.Host.RestartGrace,
		VersionPollInterval: c.Host.VersionPollInterval,
	}
}
