// Package config loads all Stockyard configuration from environment
// variables with sensible defaults. Every knob is prefixed STOCKYARD_ and
// validated once at startup; components receive typed sub-configs instead of
// reading the environment themselves.
package config
