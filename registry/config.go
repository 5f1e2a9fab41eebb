package registry

import (
	"github.com/credencemarkets/credence/config/encoding"
	"github.com/credencemarkets/credence/logging"
)

const namedLogger = "registry"

// TierConfig is one market configuration tier as it appears in the TOML
// configuration file. Amounts are wad values given as decimal strings.
type TierConfig struct {
	Liquidity    string
	BasePrice    string
	CreationCost string
}

// Config represents the configuration of the market config registry.
type Config struct {
	Level encoding.LogLevel

	// Tiers seeds the registry at startup.
	Tiers []TierConfig
}

// NewDefaultConfig creates an instance of the package specific configuration.
// The default tiers share a base price of 0.01, with liquidity (and so price
// stability) growing with the creation cost.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
		Tiers: []TierConfig{
			{Liquidity: "100000000000000000000", BasePrice: "10000000000000000", CreationCost: "100000000000000000"},
			{Liquidity: "1000000000000000000000", BasePrice: "10000000000000000", CreationCost: "200000000000000000"},
			{Liquidity: "10000000000000000000000", BasePrice: "10000000000000000", CreationCost: "500000000000000000"},
		},
	}
}
