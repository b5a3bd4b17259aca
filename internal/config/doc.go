// Package config loads the relay's YAML configuration file and turns it into
// endpoint, DNS and logging settings.
package config
