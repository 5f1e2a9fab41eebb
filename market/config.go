package market

import (
	"github.com/credencemarkets/credence/config/encoding"
	"github.com/credencemarkets/credence/fee"
	"github.com/credencemarkets/credence/logging"
	"github.com/credencemarkets/credence/registry"
)

const namedLogger = "market"

// Config represents the configuration of the market ledger and its
// sub-engines.
type Config struct {
	Level encoding.LogLevel

	Fee      fee.Config
	Registry registry.Config

	// AllowListEnabled gates market creation behind the per-profile
	// permission flag. When disabled any profile may create its market.
	AllowListEnabled bool
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:            encoding.LogLevel{Level: logging.InfoLevel},
		Fee:              fee.NewDefaultConfig(),
		Registry:         registry.NewDefaultConfig(),
		AllowListEnabled: false,
	}
}
