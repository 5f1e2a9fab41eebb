// Package config defines the root configuration, aggregating each engine's
// package configuration, and loads it from a TOML file.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/credencemarkets/credence/api"
	"github.com/credencemarkets/credence/broker"
	"github.com/credencemarkets/credence/market"
)

// Config is the root configuration structure. Every field has a sensible
// default; a TOML file only needs to state what it overrides.
type Config struct {
	// Environment selects the log encoder: "dev" or "prod".
	Environment string

	Market market.Config
	Broker broker.Config
	API    api.Config
}

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() Config {
	return Config{
		Environment: "dev",
		Market:      market.NewDefaultConfig(),
		Broker:      broker.NewDefaultConfig(),
		API:         api.NewDefaultConfig(),
	}
}

// Read loads the configuration from the given TOML file on top of the
// defaults. An empty path returns the defaults unchanged.
func Read(path string) (Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "unable to read configuration file %s", path)
	}
	return cfg, nil
}
