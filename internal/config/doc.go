// Package config loads the service configuration from a JSON or YAML file,
// applies environment overrides and fills defaults that match running the
// binary from the repository root with no configuration at all.
package config
