// Package registry holds the ordered list of allowed market configurations.
// Entries are removed by tombstoning, never by compaction, so an index stays
// valid for the life of the registry and markets created from a since-removed
// entry are unaffected.
package registry

import (
	"errors"

	"github.com/credencemarkets/credence/logging"
	"github.com/credencemarkets/credence/num"
	"github.com/credencemarkets/credence/types"
)

// MinimumBasePrice is the floor for any registry entry's base price,
// 0.0001 in whole-token terms.
var MinimumBasePrice = num.NewUint(100000000000000)

var (
	// ErrInvalidConfig is returned when a config violates the base price
	// floor or has no liquidity.
	ErrInvalidConfig = errors.New("invalid market config")
	// ErrConfigNotFound is returned for unknown or removed config indices.
	ErrConfigNotFound = errors.New("market config not found")
)

type entry struct {
	cfg     types.MarketConfig
	removed bool
}

// Registry is the ordered set of allowed market configurations.
// Mutations are rare administrative operations, globally serialized by the
// owning ledger; the registry itself is not safe for concurrent mutation.
type Registry struct {
	log *logging.Logger
	cfg Config

	entries []entry
}

// New returns a registry seeded with the configured tiers.
func New(log *logging.Logger, cfg Config) (*Registry, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	r := &Registry{
		log: log,
		cfg: cfg,
	}
	for _, tier := range cfg.Tiers {
		liquidity, overflow := num.UintFromString(tier.Liquidity, 10)
		if overflow {
			return nil, ErrInvalidConfig
		}
		basePrice, overflow := num.UintFromString(tier.BasePrice, 10)
		if overflow {
			return nil, ErrInvalidConfig
		}
		creationCost, overflow := num.UintFromString(tier.CreationCost, 10)
		if overflow {
			return nil, ErrInvalidConfig
		}
		if _, err := r.Add(liquidity, basePrice, creationCost); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends a new config and returns its index. The base price floor and
// a non-zero liquidity are enforced here, so every market ever created from
// the registry satisfies them.
func (r *Registry) Add(liquidity, basePrice, creationCost *num.Uint) (uint32, error) {
	if liquidity == nil || basePrice == nil || creationCost == nil {
		return 0, ErrInvalidConfig
	}
	if liquidity.IsZero() || basePrice.LT(MinimumBasePrice) {
		return 0, ErrInvalidConfig
	}
	index := uint32(len(r.entries))
	r.entries = append(r.entries, entry{
		cfg: types.MarketConfig{
			Index:        index,
			Liquidity:    liquidity.Clone(),
			BasePrice:    basePrice.Clone(),
			CreationCost: creationCost.Clone(),
		},
	})
	r.log.Info("market config added",
		logging.Uint32("index", index),
		logging.String("liquidity", liquidity.String()),
		logging.String("base-price", basePrice.String()),
		logging.String("creation-cost", creationCost.String()),
	)
	return index, nil
}

// Remove tombstones the config at the given index. Indices of other entries
// do not shift, and markets already created from the entry keep their
// resolved parameters.
func (r *Registry) Remove(index uint32) error {
	if int(index) >= len(r.entries) || r.entries[index].removed {
		return ErrConfigNotFound
	}
	r.entries[index].removed = true
	r.log.Info("market config removed", logging.Uint32("index", index))
	return nil
}

// Get returns a copy of the config at the given index.
func (r *Registry) Get(index uint32) (types.MarketConfig, error) {
	if int(index) >= len(r.entries) || r.entries[index].removed {
		return types.MarketConfig{}, ErrConfigNotFound
	}
	return r.entries[index].cfg.Clone(), nil
}

// Count returns the number of live configs.
func (r *Registry) Count() int {
	n := 0
	for _, e := range r.entries {
		if !e.removed {
			n++
		}
	}
	return n
}

// All returns copies of all live configs in insertion order.
func (r *Registry) All() []types.MarketConfig {
	out := make([]types.MarketConfig, 0, len(r.entries))
	for _, e := range r.entries {
		if !e.removed {
			out = append(out, e.cfg.Clone())
		}
	}
	return out
}
