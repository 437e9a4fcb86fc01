// Package config provides YAML-based project configuration for resume.
package config

// Default values.
const (
	DefaultBranch       = "master"
	DefaultStateFile    = "resume.state.yaml"
	DefaultOutputFormat = "yaml"
	DefaultLogLevel     = "info"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatText = "text"
)
