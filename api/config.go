package api

import (
	"time"

	"github.com/credencemarkets/credence/config/encoding"
	"github.com/credencemarkets/credence/logging"
)

const namedLogger = "api"

// Config represents the configuration of the HTTP API server.
type Config struct {
	Level encoding.LogLevel

	ListenAddress string
	// Timeout bounds both read and write on every request.
	Timeout encoding.Duration

	CORSEnabled bool
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:         encoding.LogLevel{Level: logging.InfoLevel},
		ListenAddress: "0.0.0.0:3008",
		Timeout:       encoding.Duration{Duration: 5 * time.Second},
		CORSEnabled:   true,
	}
}
