package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrConfiguration reports an invalid or unreadable configuration.
var ErrConfiguration = errors.New("configuration error")

// Config is the complete resume configuration.
type Config struct {
	DefaultBranch string          `mapstructure:"default_branch"`
	Workers       int             `mapstructure:"workers"`
	CacheDir      string          `mapstructure:"cache_dir"`
	StateFile     string          `mapstructure:"state_file"`
	Fields        []string        `mapstructure:"fields"`
	Output        OutputConfig    `mapstructure:"output"`
	Log           LogConfig       `mapstructure:"log"`
	Telemetry     TelemetryConfig `mapstructure:"telemetry"`
	Projects      []Project       `mapstructure:"projects"`
}

// OutputConfig selects how changelogs are written.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
}

// Project is one tracked repository.
type Project struct {
	Name   string `mapstructure:"name"`
	Origin string `mapstructure:"origin"`
	// Branch is the single-branch shorthand of Branches.
	Branch   string   `mapstructure:"branch"`
	Branches []string `mapstructure:"branches"`
	Team     string   `mapstructure:"team"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DefaultBranch) == "" {
		return fmt.Errorf("%w: default_branch must not be empty", ErrConfiguration)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrConfiguration, c.Workers)
	}

	if !slices.Contains([]string{FormatYAML, FormatJSON, FormatText}, c.Output.Format) {
		return fmt.Errorf("%w: unknown output format %q", ErrConfiguration, c.Output.Format)
	}

	var level slog.Level

	err := level.UnmarshalText([]byte(c.Log.Level))
	if err != nil {
		return fmt.Errorf("%w: unknown log level %q", ErrConfiguration, c.Log.Level)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: telemetry.sample_ratio must be within [0, 1]", ErrConfiguration)
	}

	names := make(map[string]struct{}, len(c.Projects))
	origins := make(map[string]string, len(c.Projects))

	for i, p := range c.Projects {
		projectErr := p.validate()
		if projectErr != nil {
			return fmt.Errorf("%w: project #%d: %w", ErrConfiguration, i+1, projectErr)
		}

		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("%w: duplicate project name %q", ErrConfiguration, p.Name)
		}

		if other, dup := origins[p.Origin]; dup {
			return fmt.Errorf("%w: projects %q and %q share origin %s", ErrConfiguration, other, p.Name, p.Origin)
		}

		names[p.Name] = struct{}{}
		origins[p.Origin] = p.Name
	}

	return nil
}

// RequireProjects fails unless at least one project is configured.
func (c *Config) RequireProjects() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("%w: no projects configured", ErrConfiguration)
	}

	return nil
}

func (p Project) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name must not be empty")
	}

	if strings.TrimSpace(p.Origin) == "" {
		return fmt.Errorf("%s: origin must not be empty", p.Name)
	}

	seen := make(map[string]struct{}, len(p.Branches))

	for _, b := range p.Branches {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("%s: branch names must not be empty", p.Name)
		}

		if _, dup := seen[b]; dup {
			return fmt.Errorf("%s: branch %q listed twice", p.Name, b)
		}

		seen[b] = struct{}{}
	}

	return nil
}

// normalize resolves branch shorthands and expands home-relative paths.
func (c *Config) normalize() error {
	var err error

	c.CacheDir, err = expand(c.CacheDir)
	if err != nil {
		return err
	}

	c.StateFile, err = expand(c.StateFile)
	if err != nil {
		return err
	}

	for i := range c.Projects {
		p := &c.Projects[i]

		if p.Branch != "" && len(p.Branches) > 0 {
			return fmt.Errorf("%w: project %q sets both branch and branches", ErrConfiguration, p.Name)
		}

		switch {
		case p.Branch != "":
			p.Branches = []string{p.Branch}
		case len(p.Branches) == 0:
			p.Branches = []string{c.DefaultBranch}
		}

		p.Branch = ""

		if strings.HasPrefix(p.Origin, "~") {
			p.Origin, err = expand(p.Origin)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func expand(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("%w: expand %q: %w", ErrConfiguration, path, err)
	}

	return expanded, nil
}
