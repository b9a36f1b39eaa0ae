// Package config loads the weights CLI configuration.
//
// Sources are layered: built-in defaults, then an optional YAML file, then
// WEIGHTS_-prefixed environment variables, then command-line flags merged
// on top. Durations in YAML and the environment use Go duration syntax
// ("30s", "1m").
package config
