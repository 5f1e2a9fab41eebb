package market

import (
	"github.com/credencemarkets/credence/events"
	"github.com/credencemarkets/credence/num"
	"github.com/credencemarkets/credence/types"
)

// Registry mutations are rare administrative operations; the engine lock
// serializes them against market creation, which reads the registry.

// AddMarketConfig registers a new market config tuple and returns its index.
func (e *Engine) AddMarketConfig(liquidity, basePrice, creationCost *num.Uint) (uint32, error) {
	e.mu.Lock()
	index, err := e.registry.Add(liquidity, basePrice, creationCost)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	cfg, err := e.registry.Get(index)
	e.mu.Unlock()
	if err != nil {
		return 0, err
	}
	e.broker.Send(events.ConfigAdded{Config: cfg})
	return index, nil
}

// RemoveMarketConfig tombstones the config at the given index. Markets
// already created from it are unaffected: they hold resolved parameters by
// value.
func (e *Engine) RemoveMarketConfig(index uint32) error {
	e.mu.Lock()
	err := e.registry.Remove(index)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.broker.Send(events.ConfigRemoved{Index: index})
	return nil
}

// GetMarketConfig returns a copy of the config at the given index.
func (e *Engine) GetMarketConfig(index uint32) (types.MarketConfig, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Get(index)
}

// MarketConfigs returns copies of all live configs in insertion order.
func (e *Engine) MarketConfigs() []types.MarketConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.All()
}

// MarketConfigCount returns the number of live configs.
func (e *Engine) MarketConfigCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Count()
}
