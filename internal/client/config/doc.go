// Package config resolves the CLI's runtime settings from defaults, an
// optional JSON file, and command-line flags, in that order.
package config
