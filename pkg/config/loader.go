package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = "resume"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for resume settings.
const envPrefix = "RESUME"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME/.config/resume.
// A missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		path, err := expand(configPath)
		if err != nil {
			return nil, err
		}

		viperCfg.SetConfigFile(path)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := homedir.Dir()
		if err == nil {
			viperCfg.AddConfigPath(home + "/.config/resume")
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("%w: read config: %w", ErrConfiguration, readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %w", ErrConfiguration, unmarshalErr)
	}

	normalizeErr := cfg.normalize()
	if normalizeErr != nil {
		return nil, normalizeErr
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("default_branch", DefaultBranch)
	viperCfg.SetDefault("workers", runtime.NumCPU())
	viperCfg.SetDefault("cache_dir", "")
	viperCfg.SetDefault("state_file", DefaultStateFile)
	viperCfg.SetDefault("fields", []string{})

	viperCfg.SetDefault("output.format", DefaultOutputFormat)

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.environment", "")
}
