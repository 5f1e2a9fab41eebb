// Package market implements the reputation market ledger: one two-outcome
// LMSR market per subject, with vote purchase and sale, fee distribution,
// slippage protection and participant bookkeeping.
//
// Every operation is all-or-nothing: validation and pricing run first, state
// mutates last, so a failed call leaves the market exactly as it was.
package market

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/credencemarkets/credence/events"
	"github.com/credencemarkets/credence/fee"
	"github.com/credencemarkets/credence/fixedpoint"
	"github.com/credencemarkets/credence/lmsr"
	"github.com/credencemarkets/credence/logging"
	"github.com/credencemarkets/credence/metrics"
	"github.com/credencemarkets/credence/num"
	"github.com/credencemarkets/credence/registry"
	"github.com/credencemarkets/credence/types"
)

var (
	// ErrMarketAlreadyExists signals a second creation attempt for a subject.
	ErrMarketAlreadyExists = errors.New("market already exists for subject")
	// ErrMarketNotFound signals an operation on a subject with no market.
	ErrMarketNotFound = errors.New("market not found for subject")
	// ErrInsufficientFunds signals a payment below the minimum required.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientVotesOwned signals a sale of more votes than the
	// market's side holds.
	ErrInsufficientVotesOwned = errors.New("insufficient votes owned")
	// ErrSlippageLimitExceeded signals a realized trade outside the
	// caller-supplied bounds.
	ErrSlippageLimitExceeded = errors.New("slippage limit exceeded")
	// ErrNotAllowedToCreateMarket signals a creation attempt by a profile
	// without the permission flag while the allow list is enabled.
	ErrNotAllowedToCreateMarket = errors.New("profile not allowed to create market")
	// ErrInvalidVoteBounds signals slippage bounds with min above max.
	ErrInvalidVoteBounds = errors.New("min votes above max votes")
)

// Broker sends events to the outside world.
type Broker interface {
	Send(events.Event)
}

// Engine is the market ledger. Markets are created once per subject and
// never deleted; each one carries its own lock, so trading on different
// subjects runs concurrently while a single market's mutations stay
// serialized.
type Engine struct {
	Config
	log *logging.Logger

	fee      *fee.Engine
	registry *registry.Registry
	broker   Broker

	mu      sync.RWMutex
	markets map[uint64]*market
	allowed map[uint64]bool
}

// New returns a market ledger wired to the given fee engine, config
// registry and broker.
func New(log *logging.Logger, cfg Config, feeEngine *fee.Engine, reg *registry.Registry, broker Broker) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	return &Engine{
		Config:   cfg,
		log:      log,
		fee:      feeEngine,
		registry: reg,
		broker:   broker,
		markets:  map[uint64]*market{},
		allowed:  map[uint64]bool{},
	}
}

// ReloadConf is used in order to reload the internal configuration of
// the market engine and its sub-engines.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}
	e.fee.ReloadConf(cfg.Fee)

	e.mu.Lock()
	e.Config = cfg
	e.mu.Unlock()
}

// SetAllowedToCreateMarket flips the market creation permission flag for a
// profile. Only consulted while the allow list is enabled.
func (e *Engine) SetAllowedToCreateMarket(subjectID uint64, allowed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allowed[subjectID] = allowed
}

// IsAllowedToCreateMarket reports whether the profile may create its market.
func (e *Engine) IsAllowedToCreateMarket(subjectID uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.AllowListEnabled {
		return true
	}
	return e.allowed[subjectID]
}

// CreateMarket opens the market for a subject. The config is resolved by
// value: removing the registry entry later does not affect the market.
// Both sides start at zero votes, so both prices open at basePrice/2.
func (e *Engine) CreateMarket(subjectID uint64, configIndex uint32, fundsProvided *num.Uint, creator common.Address) (*types.Market, error) {
	defer metrics.EngineTimeCounterAdd(time.Now(), "market", "CreateMarket")

	e.mu.Lock()
	if e.AllowListEnabled && !e.allowed[subjectID] {
		e.mu.Unlock()
		return nil, ErrNotAllowedToCreateMarket
	}
	cfg, err := e.registry.Get(configIndex)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if fundsProvided == nil || fundsProvided.LT(cfg.CreationCost) {
		e.mu.Unlock()
		return nil, ErrInsufficientFunds
	}
	if _, ok := e.markets[subjectID]; ok {
		e.mu.Unlock()
		return nil, ErrMarketAlreadyExists
	}
	m := newMarket(subjectID, cfg)
	e.markets[subjectID] = m
	e.mu.Unlock()

	e.log.Info("market created",
		logging.Uint64("subject", subjectID),
		logging.Uint32("config", configIndex),
		logging.String("base-price", cfg.BasePrice.String()),
		logging.String("liquidity", cfg.Liquidity.String()),
	)
	metrics.MarketGaugeInc()
	e.broker.Send(events.MarketCreated{
		SubjectID: subjectID,
		Config:    cfg,
		Creator:   creator,
	})

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(), nil
}

// GetMarket returns a snapshot of the subject's market.
func (e *Engine) GetMarket(subjectID uint64) (*types.Market, error) {
	m, err := e.getMarket(subjectID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(), nil
}

// GetVotePrice returns the instantaneous price of one more vote on the
// given side, in currency units.
func (e *Engine) GetVotePrice(subjectID uint64, side types.Side) (*num.Uint, error) {
	m, err := e.getMarket(subjectID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return e.priceAt(m, m.trustVotes, m.distrustVotes, side)
}

// SimulateBuy quotes the exact purchase of the given number of votes,
// including the gross payment required to cover fees, without mutating
// state.
func (e *Engine) SimulateBuy(subjectID uint64, side types.Side, votes uint64) (*types.Trade, error) {
	defer metrics.EngineTimeCounterAdd(time.Now(), "market", "SimulateBuy")

	m, err := e.getMarket(subjectID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	netCost, err := e.currencyCost(m, side, votes, true)
	if err != nil {
		return nil, err
	}
	// The smallest gross covering the net cost after entry fees. The quoted
	// parts come from splitting that gross so they always sum to it; any
	// sub-fee-granularity remainder above the curve cost lands in Net.
	gross, err := e.fee.GrossFromNet(netCost)
	if err != nil {
		return nil, err
	}
	split, err := e.fee.SplitEntry(gross)
	if err != nil {
		return nil, err
	}
	trust, distrust := m.votesAfter(side, votes, true)
	newPrice, err := e.priceAt(m, trust, distrust, side)
	if err != nil {
		return nil, err
	}
	return &types.Trade{
		ID:          uuid.New(),
		SubjectID:   subjectID,
		Side:        side,
		Votes:       votes,
		GrossCost:   gross,
		ProtocolFee: split.ProtocolFee,
		Donation:    split.Donation,
		NetCost:     split.Net,
		NewPrice:    newPrice,
	}, nil
}

// SimulateSell quotes the exact sale of the given number of votes without
// mutating state.
func (e *Engine) SimulateSell(subjectID uint64, side types.Side, votes uint64) (*types.Trade, error) {
	defer metrics.EngineTimeCounterAdd(time.Now(), "market", "SimulateSell")

	m, err := e.getMarket(subjectID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	trade, err := e.sellTrade(m, side, votes)
	if err != nil {
		return nil, err
	}
	trade.SubjectID = subjectID
	return trade, nil
}

// BuyVotes spends a gross payment on votes for one side. The net amount
// left after entry fees is inverted through the monotone cost curve with a
// bounded binary search; the realized vote count is then checked against
// the caller's slippage bounds before any state changes.
func (e *Engine) BuyVotes(subjectID uint64, side types.Side, grossPayment *num.Uint, maxVotes, minVotes uint64, buyer common.Address) (*types.Trade, error) {
	defer metrics.EngineTimeCounterAdd(time.Now(), "market", "BuyVotes")

	if minVotes > maxVotes {
		return nil, ErrInvalidVoteBounds
	}
	m, err := e.getMarket(subjectID)
	if err != nil {
		return nil, err
	}
	if grossPayment == nil {
		return nil, ErrInsufficientFunds
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	split, err := e.fee.SplitEntry(grossPayment)
	if err != nil {
		return nil, err
	}
	votes, err := e.votesForBudget(m, side, split.Net)
	if err != nil {
		return nil, err
	}
	if votes == 0 || votes < minVotes {
		return nil, ErrInsufficientFunds
	}
	if votes > maxVotes {
		return nil, ErrSlippageLimitExceeded
	}
	netCost, err := e.currencyCost(m, side, votes, true)
	if err != nil {
		return nil, err
	}
	// Charge only the gross that covers the realized net cost; the rest of
	// the payment is change back to the buyer. When the budget is consumed
	// exactly, the ceiling fee inversion can land a few units above the
	// payment, in which case the original payment and its split stand.
	gross, err := e.fee.GrossFromNet(netCost)
	if err != nil {
		return nil, err
	}
	charged := split
	if gross.LT(grossPayment) {
		if charged, err = e.fee.SplitEntry(gross); err != nil {
			return nil, err
		}
	} else {
		gross = grossPayment.Clone()
	}
	trust, distrust := m.votesAfter(side, votes, true)
	newPrice, err := e.priceAt(m, trust, distrust, side)
	if err != nil {
		return nil, err
	}

	// All checks passed: mutate.
	m.trustVotes, m.distrustVotes = trust, distrust
	m.participants[buyer] = struct{}{}

	trade := &types.Trade{
		ID:          uuid.New(),
		SubjectID:   subjectID,
		Side:        side,
		Votes:       votes,
		GrossCost:   gross,
		ProtocolFee: charged.ProtocolFee,
		Donation:    charged.Donation,
		NetCost:     charged.Net,
		NewPrice:    newPrice,
	}
	e.recordTrade(trade, buyer, true)
	return trade, nil
}

// SellVotes sells votes back to the market. The engine guards the market's
// own vote-count floor; per-caller ownership bookkeeping is the caller's
// concern.
func (e *Engine) SellVotes(subjectID uint64, side types.Side, votes uint64, minimumProceeds *num.Uint, seller common.Address) (*types.Trade, error) {
	defer metrics.EngineTimeCounterAdd(time.Now(), "market", "SellVotes")

	m, err := e.getMarket(subjectID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	trade, err := e.sellTrade(m, side, votes)
	if err != nil {
		return nil, err
	}
	if minimumProceeds != nil && trade.NetCost.LT(minimumProceeds) {
		return nil, ErrSlippageLimitExceeded
	}

	m.trustVotes, m.distrustVotes = m.votesAfter(side, votes, false)

	trade.SubjectID = subjectID
	e.recordTrade(trade, seller, false)
	return trade, nil
}

func (e *Engine) getMarket(subjectID uint64) (*market, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.markets[subjectID]
	if !ok {
		return nil, ErrMarketNotFound
	}
	return m, nil
}

// priceAt rescales the normalized odds at the given vote counts by the
// market's base price. Callers hold the market lock.
func (e *Engine) priceAt(m *market, trust, distrust uint64, side types.Side) (*num.Uint, error) {
	odds, err := lmsr.Odds(trust, distrust, m.liquidity, side)
	if err != nil {
		return nil, err
	}
	price, err := fixedpoint.Mul(m.basePrice, odds)
	if err != nil {
		return nil, lmsr.ErrVoteCountTooLarge
	}
	return price, nil
}

// currencyCost prices the move of the given number of votes on one side,
// in currency units. Callers hold the market lock.
func (e *Engine) currencyCost(m *market, side types.Side, votes uint64, buy bool) (*num.Uint, error) {
	if buy && (votes > m.maxSafeVotes || m.votesOn(side) > m.maxSafeVotes-votes) {
		return nil, lmsr.ErrVoteCountTooLarge
	}
	if !buy && m.votesOn(side) < votes {
		return nil, ErrInsufficientVotesOwned
	}
	trust, distrust := m.votesAfter(side, votes, buy)
	c, err := lmsr.Cost(m.trustVotes, m.distrustVotes, trust, distrust, m.liquidity)
	if err != nil {
		return nil, err
	}
	currency, err := fixedpoint.Mul(c.Abs(), m.basePrice)
	if err != nil {
		return nil, lmsr.ErrVoteCountTooLarge
	}
	return currency, nil
}

// sellTrade builds the trade record for selling votes, without mutating
// state. Callers hold the market lock.
func (e *Engine) sellTrade(m *market, side types.Side, votes uint64) (*types.Trade, error) {
	gross, err := e.currencyCost(m, side, votes, false)
	if err != nil {
		return nil, err
	}
	split, err := e.fee.SplitExit(gross)
	if err != nil {
		return nil, err
	}
	trust, distrust := m.votesAfter(side, votes, false)
	newPrice, err := e.priceAt(m, trust, distrust, side)
	if err != nil {
		return nil, err
	}
	return &types.Trade{
		ID:          uuid.New(),
		Side:        side,
		Votes:       votes,
		GrossCost:   gross,
		ProtocolFee: split.ExitFee,
		Donation:    num.UintZero(),
		NetCost:     split.Net,
		NewPrice:    newPrice,
	}, nil
}

// votesForBudget finds the largest vote count whose currency cost fits the
// net budget, by bisecting the monotone cost curve over
// [0, maxSafeVotes - current]. The iteration count is bounded by the bit
// width of the interval, never by the budget.
func (e *Engine) votesForBudget(m *market, side types.Side, budget *num.Uint) (uint64, error) {
	current := m.votesOn(side)
	if current >= m.maxSafeVotes {
		return 0, lmsr.ErrVoteCountTooLarge
	}
	lo, hi := uint64(0), m.maxSafeVotes-current
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		cost, err := e.currencyCost(m, side, mid, true)
		if err != nil {
			return 0, err
		}
		if cost.LTE(budget) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

func (e *Engine) recordTrade(trade *types.Trade, party common.Address, isBuy bool) {
	if e.log.GetLevel() == logging.DebugLevel {
		e.log.Debug("trade executed",
			logging.Uint64("subject", trade.SubjectID),
			logging.String("side", trade.Side.String()),
			logging.Uint64("votes", trade.Votes),
			logging.String("net-cost", trade.NetCost.String()),
			logging.Bool("buy", isBuy),
		)
	}
	metrics.TradeCounterInc(trade.Side.String(), isBuy)
	e.broker.Send(events.TradeExecuted{
		Trade: *trade,
		Party: party,
		IsBuy: isBuy,
	})
}
