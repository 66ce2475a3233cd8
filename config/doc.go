// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, the variants endpoint, origin fetch limits, the
// variant cookie and the markup rewrite engine.
package config
