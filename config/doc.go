// Package config provides unified configuration loading for crewkit:
// defaults, YAML file, then environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("crewkit.yaml").
//	    WithEnvPrefix("CREWKIT").
//	    Load()
//
// Precedence: defaults → YAML file → environment variables.
package config
