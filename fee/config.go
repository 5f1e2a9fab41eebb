package fee

import (
	"github.com/credencemarkets/credence/config/encoding"
	"github.com/credencemarkets/credence/logging"
)

// namedLogger is the identifier for package and should ideally match the
// package name; it is emitted as a hierarchical label, e.g. 'market.fee'.
const namedLogger = "fee"

// Config represents the configuration of the fee engine.
type Config struct {
	Level encoding.LogLevel

	// EntryProtocolBps is the protocol's cut of a gross buy payment.
	EntryProtocolBps uint64
	// EntryDonationBps is the market subject's donation cut of a gross
	// buy payment.
	EntryDonationBps uint64
	// ExitProtocolBps is the protocol's cut of gross sell proceeds.
	ExitProtocolBps uint64
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:            encoding.LogLevel{Level: logging.InfoLevel},
		EntryProtocolBps: 50,
		EntryDonationBps: 100,
		ExitProtocolBps:  100,
	}
}
