// Package events defines the events emitted at the engine boundary.
// Consumers (persistence, notifications, indexing) subscribe through the
// broker; the pricing engine itself never persists anything.
package events

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/credencemarkets/credence/types"
)

// Type discriminates event payloads.
type Type int

const (
	// MarketCreatedType is emitted once per subject, on market creation.
	MarketCreatedType Type = iota
	// TradeExecutedType is emitted on every successful buy or sell.
	TradeExecutedType
	// ConfigAddedType is emitted when a market config is registered.
	ConfigAddedType
	// ConfigRemovedType is emitted when a market config is tombstoned.
	ConfigRemovedType
)

func (t Type) String() string {
	switch t {
	case MarketCreatedType:
		return "MarketCreated"
	case TradeExecutedType:
		return "TradeExecuted"
	case ConfigAddedType:
		return "ConfigAdded"
	case ConfigRemovedType:
		return "ConfigRemoved"
	default:
		return "Unknown"
	}
}

// Event is the interface all engine events implement.
type Event interface {
	Type() Type
}

// MarketCreated is emitted when a subject's market goes live.
type MarketCreated struct {
	SubjectID uint64
	Config    types.MarketConfig
	Creator   common.Address
}

func (MarketCreated) Type() Type { return MarketCreatedType }

// TradeExecuted is emitted for every realized trade.
type TradeExecuted struct {
	Trade types.Trade
	Party common.Address
	// IsBuy is true for purchases, false for sales.
	IsBuy bool
}

func (TradeExecuted) Type() Type { return TradeExecutedType }

// ConfigAdded is emitted when a new market config is registered.
type ConfigAdded struct {
	Config types.MarketConfig
}

func (ConfigAdded) Type() Type { return ConfigAddedType }

// ConfigRemoved is emitted when a market config is tombstoned.
type ConfigRemoved struct {
	Index uint32
}

func (ConfigRemoved) Type() Type { return ConfigRemovedType }
