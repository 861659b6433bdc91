// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including the server settings, the inference endpoint pool with per-endpoint
// weights and concurrency ceilings, and the dispatcher retry budget.
package config
