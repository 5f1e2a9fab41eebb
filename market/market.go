package market

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/credencemarkets/credence/lmsr"
	"github.com/credencemarkets/credence/num"
	"github.com/credencemarkets/credence/types"
)

// market is the per-subject state. The base price and liquidity are resolved
// by value at creation time, so registry mutations never reach a live market.
// The mutex serializes mutation per subject; operations on different
// subjects run concurrently.
type market struct {
	mu sync.RWMutex

	subjectID     uint64
	trustVotes    uint64
	distrustVotes uint64
	basePrice     *num.Uint
	liquidity     *num.Uint
	// maxSafeVotes is the per-side ceiling below which the fixed-point
	// exponential cannot overflow, precomputed from the liquidity.
	maxSafeVotes uint64
	participants map[common.Address]struct{}
}

func newMarket(subjectID uint64, cfg types.MarketConfig) *market {
	return &market{
		subjectID:    subjectID,
		basePrice:    cfg.BasePrice.Clone(),
		liquidity:    cfg.Liquidity.Clone(),
		maxSafeVotes: lmsr.MaxSafeVotes(cfg.Liquidity),
		participants: map[common.Address]struct{}{},
	}
}

// votesOn returns the current vote count for one side.
// Callers hold at least a read lock.
func (m *market) votesOn(side types.Side) uint64 {
	if side == types.SideTrust {
		return m.trustVotes
	}
	return m.distrustVotes
}

// votesAfter returns both counts with the given side moved by delta votes
// (bought when buy is true, sold otherwise). Callers have already validated
// the bounds.
func (m *market) votesAfter(side types.Side, delta uint64, buy bool) (trust, distrust uint64) {
	trust, distrust = m.trustVotes, m.distrustVotes
	switch {
	case side == types.SideTrust && buy:
		trust += delta
	case side == types.SideTrust:
		trust -= delta
	case buy:
		distrust += delta
	default:
		distrust -= delta
	}
	return trust, distrust
}

// snapshot returns a read-only copy of the market state.
// Callers hold at least a read lock.
func (m *market) snapshot() *types.Market {
	participants := make([]common.Address, 0, len(m.participants))
	for p := range m.participants {
		participants = append(participants, p)
	}
	return &types.Market{
		SubjectID:     m.subjectID,
		TrustVotes:    m.trustVotes,
		DistrustVotes: m.distrustVotes,
		BasePrice:     m.basePrice.Clone(),
		Liquidity:     m.liquidity.Clone(),
		Participants:  participants,
	}
}
