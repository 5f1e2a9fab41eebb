package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/credencemarkets/credence/num"
)

// ErrInvalidSide is returned when parsing an unknown market side.
var ErrInvalidSide = errors.New("invalid market side")

// Side is the outcome side of a reputation market.
type Side int8

const (
	// SideDistrust votes price the subject as untrustworthy.
	SideDistrust Side = iota
	// SideTrust votes price the subject as trustworthy.
	SideTrust
)

func (s Side) String() string {
	switch s {
	case SideTrust:
		return "trust"
	case SideDistrust:
		return "distrust"
	default:
		return fmt.Sprintf("unknown(%d)", int8(s))
	}
}

// Opposite returns the other side of the market.
func (s Side) Opposite() Side {
	if s == SideTrust {
		return SideDistrust
	}
	return SideTrust
}

// ParseSide parses a side from its string representation.
func ParseSide(s string) (Side, error) {
	switch s {
	case "trust":
		return SideTrust, nil
	case "distrust":
		return SideDistrust, nil
	default:
		return SideDistrust, ErrInvalidSide
	}
}

// MarketConfig is one allowed parameter tuple for creating a market.
// Once a market is created from it, the market holds the resolved values
// by copy, so registry mutations never affect live markets.
type MarketConfig struct {
	Index        uint32
	Liquidity    *num.Uint
	BasePrice    *num.Uint
	CreationCost *num.Uint
}

// Clone returns a deep copy of the config.
func (c MarketConfig) Clone() MarketConfig {
	return MarketConfig{
		Index:        c.Index,
		Liquidity:    c.Liquidity.Clone(),
		BasePrice:    c.BasePrice.Clone(),
		CreationCost: c.CreationCost.Clone(),
	}
}

// Market is a read-only snapshot of one subject's market state.
type Market struct {
	SubjectID     uint64
	TrustVotes    uint64
	DistrustVotes uint64
	BasePrice     *num.Uint
	Liquidity     *num.Uint
	Participants  []common.Address
}

// Trade is the realized (or simulated) result of one buy or sell.
/// It is ephemeral: persistence is the caller's concern.
type Trade struct {
	ID          uuid.UUID
	SubjectID   uint64
	Side        Side
	Votes       uint64
	GrossCost   *num.Uint
	ProtocolFee *num.Uint
	Donation    *num.Uint
	NetCost     *num.Uint
	NewPrice    *num.Uint
}
