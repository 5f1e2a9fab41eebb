package market_test

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credencemarkets/credence/events"
	"github.com/credencemarkets/credence/fee"
	"github.com/credencemarkets/credence/lmsr"
	"github.com/credencemarkets/credence/logging"
	"github.com/credencemarkets/credence/market"
	"github.com/credencemarkets/credence/num"
	"github.com/credencemarkets/credence/registry"
	"github.com/credencemarkets/credence/types"
)

const (
	testSubject = uint64(7)
	// testConfig is the middle default tier: liquidity 1000, base price 0.01,
	// creation cost 0.2.
	testConfig = uint32(1)
)

var (
	buyer  = common.HexToAddress("0x42aa5e1cd7b9a61cf5f837d0c2a21b7d5dbf5b29")
	seller = common.HexToAddress("0xf7e2b1f43a9d0f7cf27f4a2a05bd26cc267a1c01")

	creationCost = num.MustUintFromString("200000000000000000")
	// halfBasePrice is the opening price of both sides, base price 0.01
	// scaled by even odds.
	halfBasePrice = num.MustUintFromString("5000000000000000")
)

type stubBroker struct {
	mu   sync.Mutex
	evts []events.Event
}

func (b *stubBroker) Send(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evts = append(b.evts, e)
}

func (b *stubBroker) all() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.evts...)
}

func (b *stubBroker) ofType(typ events.Type) []events.Event {
	out := []events.Event{}
	for _, e := range b.all() {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

type testEngine struct {
	*market.Engine
	broker *stubBroker
}

func getTestEngine(t *testing.T, cfg market.Config) *testEngine {
	t.Helper()
	log := logging.NewTestLogger()
	feeEngine, err := fee.New(log, cfg.Fee)
	require.NoError(t, err)
	reg, err := registry.New(log, cfg.Registry)
	require.NoError(t, err)
	broker := &stubBroker{}
	return &testEngine{
		Engine: market.New(log, cfg, feeEngine, reg, broker),
		broker: broker,
	}
}

// zeroFeeConfig makes gross and net amounts coincide, so vote counts and
// proceeds can be asserted exactly.
func zeroFeeConfig() market.Config {
	cfg := market.NewDefaultConfig()
	cfg.Fee.EntryProtocolBps = 0
	cfg.Fee.EntryDonationBps = 0
	cfg.Fee.ExitProtocolBps = 0
	return cfg
}

func createTestMarket(t *testing.T, e *testEngine) *types.Market {
	t.Helper()
	m, err := e.CreateMarket(testSubject, testConfig, creationCost.Clone(), buyer)
	require.NoError(t, err)
	return m
}

func TestCreateMarket(t *testing.T) {
	e := getTestEngine(t, market.NewDefaultConfig())
	m := createTestMarket(t, e)

	assert.Equal(t, testSubject, m.SubjectID)
	assert.Zero(t, m.TrustVotes)
	assert.Zero(t, m.DistrustVotes)
	assert.Equal(t, "10000000000000000", m.BasePrice.String())
	assert.Empty(t, m.Participants)

	t.Run("both sides open at half the base price", func(t *testing.T) {
		for _, side := range []types.Side{types.SideTrust, types.SideDistrust} {
			price, err := e.GetVotePrice(testSubject, side)
			require.NoError(t, err)
			assert.True(t, price.EQ(halfBasePrice), "side %s opened at %s", side, price)
		}
	})

	t.Run("creation event emitted", func(t *testing.T) {
		created := e.broker.ofType(events.MarketCreatedType)
		require.Len(t, created, 1)
		evt := created[0].(events.MarketCreated)
		assert.Equal(t, testSubject, evt.SubjectID)
		assert.Equal(t, buyer, evt.Creator)
	})

	t.Run("duplicate subject rejected", func(t *testing.T) {
		_, err := e.CreateMarket(testSubject, testConfig, creationCost.Clone(), buyer)
		assert.ErrorIs(t, err, market.ErrMarketAlreadyExists)
	})

	t.Run("funds below creation cost rejected", func(t *testing.T) {
		low := num.UintZero().Sub(creationCost, num.NewUint(1))
		_, err := e.CreateMarket(8, testConfig, low, buyer)
		assert.ErrorIs(t, err, market.ErrInsufficientFunds)

		_, err = e.CreateMarket(8, testConfig, nil, buyer)
		assert.ErrorIs(t, err, market.ErrInsufficientFunds)
	})

	t.Run("unknown config rejected", func(t *testing.T) {
		_, err := e.CreateMarket(8, 99, creationCost.Clone(), buyer)
		assert.ErrorIs(t, err, registry.ErrConfigNotFound)
	})
}

func TestAllowList(t *testing.T) {
	cfg := market.NewDefaultConfig()
	cfg.AllowListEnabled = true
	e := getTestEngine(t, cfg)

	assert.False(t, e.IsAllowedToCreateMarket(testSubject))
	_, err := e.CreateMarket(testSubject, testConfig, creationCost.Clone(), buyer)
	assert.ErrorIs(t, err, market.ErrNotAllowedToCreateMarket)

	e.SetAllowedToCreateMarket(testSubject, true)
	assert.True(t, e.IsAllowedToCreateMarket(testSubject))
	_, err = e.CreateMarket(testSubject, testConfig, creationCost.Clone(), buyer)
	assert.NoError(t, err)

	e.SetAllowedToCreateMarket(testSubject, false)
	assert.False(t, e.IsAllowedToCreateMarket(testSubject))
}

func TestAllowListDisabledAllowsEveryone(t *testing.T) {
	e := getTestEngine(t, market.NewDefaultConfig())
	assert.True(t, e.IsAllowedToCreateMarket(12345))
}

func TestUnknownMarket(t *testing.T) {
	e := getTestEngine(t, market.NewDefaultConfig())

	_, err := e.GetMarket(testSubject)
	assert.ErrorIs(t, err, market.ErrMarketNotFound)
	_, err = e.GetVotePrice(testSubject, types.SideTrust)
	assert.ErrorIs(t, err, market.ErrMarketNotFound)
	_, err = e.SimulateBuy(testSubject, types.SideTrust, 1)
	assert.ErrorIs(t, err, market.ErrMarketNotFound)
	_, err = e.SimulateSell(testSubject, types.SideTrust, 1)
	assert.ErrorIs(t, err, market.ErrMarketNotFound)
	_, err = e.BuyVotes(testSubject, types.SideTrust, num.NewUint(1), 1, 0, buyer)
	assert.ErrorIs(t, err, market.ErrMarketNotFound)
	_, err = e.SellVotes(testSubject, types.SideTrust, 1, nil, seller)
	assert.ErrorIs(t, err, market.ErrMarketNotFound)
}

func TestBuyVotes(t *testing.T) {
	e := getTestEngine(t, zeroFeeConfig())
	createTestMarket(t, e)

	quote, err := e.SimulateBuy(testSubject, types.SideTrust, 10)
	require.NoError(t, err)
	// With zero fees the gross quote is exactly the curve cost.
	assert.True(t, quote.GrossCost.EQ(quote.NetCost))

	trade, err := e.BuyVotes(testSubject, types.SideTrust, quote.GrossCost.Clone(), 10, 10, buyer)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), trade.Votes)
	assert.True(t, trade.NetCost.EQ(quote.NetCost))
	assert.True(t, trade.NewPrice.GT(halfBasePrice))

	m, err := e.GetMarket(testSubject)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), m.TrustVotes)
	assert.Zero(t, m.DistrustVotes)
	require.Len(t, m.Participants, 1)
	assert.Equal(t, buyer, m.Participants[0])

	t.Run("trust price rises and distrust price falls", func(t *testing.T) {
		trust, err := e.GetVotePrice(testSubject, types.SideTrust)
		require.NoError(t, err)
		distrust, err := e.GetVotePrice(testSubject, types.SideDistrust)
		require.NoError(t, err)
		assert.True(t, trust.GT(halfBasePrice))
		assert.True(t, distrust.LT(halfBasePrice))
	})

	t.Run("trade event emitted", func(t *testing.T) {
		executed := e.broker.ofType(events.TradeExecutedType)
		require.Len(t, executed, 1)
		evt := executed[0].(events.TradeExecuted)
		assert.True(t, evt.IsBuy)
		assert.Equal(t, buyer, evt.Party)
		assert.Equal(t, uint64(10), evt.Trade.Votes)
	})
}

func TestBuyVotesBounds(t *testing.T) {
	e := getTestEngine(t, zeroFeeConfig())
	createTestMarket(t, e)

	quote, err := e.SimulateBuy(testSubject, types.SideTrust, 10)
	require.NoError(t, err)
	before, err := e.GetMarket(testSubject)
	require.NoError(t, err)

	t.Run("realized votes above max", func(t *testing.T) {
		_, err := e.BuyVotes(testSubject, types.SideTrust, quote.GrossCost.Clone(), 5, 0, buyer)
		assert.ErrorIs(t, err, market.ErrSlippageLimitExceeded)
	})

	t.Run("realized votes below min", func(t *testing.T) {
		_, err := e.BuyVotes(testSubject, types.SideTrust, quote.GrossCost.Clone(), 30, 20, buyer)
		assert.ErrorIs(t, err, market.ErrInsufficientFunds)
	})

	t.Run("budget too small for a single vote", func(t *testing.T) {
		_, err := e.BuyVotes(testSubject, types.SideTrust, num.NewUint(1), 10, 0, buyer)
		assert.ErrorIs(t, err, market.ErrInsufficientFunds)

		_, err = e.BuyVotes(testSubject, types.SideTrust, nil, 10, 0, buyer)
		assert.ErrorIs(t, err, market.ErrInsufficientFunds)
	})

	t.Run("min above max", func(t *testing.T) {
		_, err := e.BuyVotes(testSubject, types.SideTrust, quote.GrossCost.Clone(), 5, 10, buyer)
		assert.ErrorIs(t, err, market.ErrInvalidVoteBounds)
	})

	t.Run("failed buys leave the market untouched", func(t *testing.T) {
		after, err := e.GetMarket(testSubject)
		require.NoError(t, err)
		assert.Equal(t, before.TrustVotes, after.TrustVotes)
		assert.Equal(t, before.DistrustVotes, after.DistrustVotes)
		assert.Empty(t, after.Participants)
		assert.Empty(t, e.broker.ofType(events.TradeExecutedType))
	})
}

func TestSellVotesRoundTrip(t *testing.T) {
	e := getTestEngine(t, zeroFeeConfig())
	createTestMarket(t, e)

	quote, err := e.SimulateBuy(testSubject, types.SideDistrust, 25)
	require.NoError(t, err)
	bought, err := e.BuyVotes(testSubject, types.SideDistrust, quote.GrossCost.Clone(), 25, 25, buyer)
	require.NoError(t, err)

	sold, err := e.SellVotes(testSubject, types.SideDistrust, 25, nil, buyer)
	require.NoError(t, err)

	// Zero fees and one pure state function: selling the position back
	// returns exactly what it cost.
	assert.True(t, sold.NetCost.EQ(bought.NetCost),
		"bought for %s, sold for %s", bought.NetCost, sold.NetCost)

	m, err := e.GetMarket(testSubject)
	require.NoError(t, err)
	assert.Zero(t, m.TrustVotes)
	assert.Zero(t, m.DistrustVotes)

	price, err := e.GetVotePrice(testSubject, types.SideDistrust)
	require.NoError(t, err)
	assert.True(t, price.EQ(halfBasePrice))
}

func TestSellVotesBounds(t *testing.T) {
	e := getTestEngine(t, zeroFeeConfig())
	createTestMarket(t, e)

	t.Run("selling into an empty market", func(t *testing.T) {
		_, err := e.SellVotes(testSubject, types.SideTrust, 1, nil, seller)
		assert.ErrorIs(t, err, market.ErrInsufficientVotesOwned)
	})

	quote, err := e.SimulateBuy(testSubject, types.SideTrust, 10)
	require.NoError(t, err)
	_, err = e.BuyVotes(testSubject, types.SideTrust, quote.GrossCost.Clone(), 10, 10, buyer)
	require.NoError(t, err)

	t.Run("selling more than the side holds", func(t *testing.T) {
		_, err := e.SellVotes(testSubject, types.SideTrust, 11, nil, buyer)
		assert.ErrorIs(t, err, market.ErrInsufficientVotesOwned)
	})

	t.Run("proceeds below the minimum", func(t *testing.T) {
		sellQuote, err := e.SimulateSell(testSubject, types.SideTrust, 10)
		require.NoError(t, err)
		floor := num.UintZero().Add(sellQuote.NetCost, num.NewUint(1))
		_, err = e.SellVotes(testSubject, types.SideTrust, 10, floor, buyer)
		assert.ErrorIs(t, err, market.ErrSlippageLimitExceeded)

		m, err := e.GetMarket(testSubject)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), m.TrustVotes)
	})

	t.Run("proceeds at the minimum", func(t *testing.T) {
		sellQuote, err := e.SimulateSell(testSubject, types.SideTrust, 10)
		require.NoError(t, err)
		_, err = e.SellVotes(testSubject, types.SideTrust, 10, sellQuote.NetCost.Clone(), buyer)
		assert.NoError(t, err)
	})
}

func TestSimulateDoesNotMutate(t *testing.T) {
	e := getTestEngine(t, market.NewDefaultConfig())
	createTestMarket(t, e)

	quote, err := e.SimulateBuy(testSubject, types.SideTrust, 100)
	require.NoError(t, err)
	_, err = e.BuyVotes(testSubject, types.SideTrust, quote.GrossCost.Clone(), 100, 0, buyer)
	require.NoError(t, err)

	before, err := e.GetMarket(testSubject)
	require.NoError(t, err)

	_, err = e.SimulateBuy(testSubject, types.SideTrust, 50)
	require.NoError(t, err)
	_, err = e.SimulateSell(testSubject, types.SideTrust, 50)
	require.NoError(t, err)

	after, err := e.GetMarket(testSubject)
	require.NoError(t, err)
	assert.Equal(t, before.TrustVotes, after.TrustVotes)
	assert.Equal(t, before.DistrustVotes, after.DistrustVotes)
}

func TestFeesApplied(t *testing.T) {
	e := getTestEngine(t, market.NewDefaultConfig())
	createTestMarket(t, e)

	payment := num.MustUintFromString("100000000000000000") // 0.1
	trade, err := e.BuyVotes(testSubject, types.SideTrust, payment.Clone(), 1<<20, 1, buyer)
	require.NoError(t, err)

	// The buyer is charged only the gross covering the realized cost; the
	// recorded protocol fee, donation and net sum back to that exactly, and
	// anything above it is change, never a fee.
	sum := num.Sum(trade.ProtocolFee, trade.Donation, trade.NetCost)
	assert.True(t, sum.EQ(trade.GrossCost), "split sums to %s, charged gross was %s", sum, trade.GrossCost)
	assert.True(t, trade.GrossCost.LTE(payment))
	assert.False(t, trade.ProtocolFee.IsZero())
	assert.False(t, trade.Donation.IsZero())

	// A quote for the same vote count on a fresh identical market matches
	// the executed charge field for field.
	_, err = e.CreateMarket(testSubject+1, testConfig, creationCost.Clone(), buyer)
	require.NoError(t, err)
	quote, err := e.SimulateBuy(testSubject+1, types.SideTrust, trade.Votes)
	require.NoError(t, err)
	assert.True(t, quote.GrossCost.EQ(trade.GrossCost))
	assert.True(t, quote.ProtocolFee.EQ(trade.ProtocolFee))
	assert.True(t, quote.Donation.EQ(trade.Donation))
	assert.True(t, quote.NetCost.EQ(trade.NetCost))

	sold, err := e.SellVotes(testSubject, types.SideTrust, trade.Votes, nil, buyer)
	require.NoError(t, err)
	exitSum := num.Sum(sold.ProtocolFee, sold.NetCost)
	assert.True(t, exitSum.EQ(sold.GrossCost))
	assert.True(t, sold.Donation.IsZero())

	// The round trip leaks value to fees and fee-floor remainders, never
	// creates it.
	assert.True(t, sold.NetCost.LT(payment))
}

func TestTradingNearVoteCeiling(t *testing.T) {
	e := getTestEngine(t, zeroFeeConfig())
	m := createTestMarket(t, e)
	maxSafe := lmsr.MaxSafeVotes(m.Liquidity)

	quote, err := e.SimulateBuy(testSubject, types.SideTrust, maxSafe)
	require.NoError(t, err)
	trade, err := e.BuyVotes(testSubject, types.SideTrust, quote.GrossCost.Clone(), maxSafe, maxSafe, buyer)
	require.NoError(t, err)
	assert.Equal(t, maxSafe, trade.Votes)

	// The market still quotes a real price at the ceiling.
	price, err := e.GetVotePrice(testSubject, types.SideTrust)
	require.NoError(t, err)
	assert.False(t, price.IsZero())
	assert.True(t, price.LTE(m.BasePrice))

	// One vote past the ceiling is refused rather than mispriced.
	_, err = e.SimulateBuy(testSubject, types.SideTrust, 1)
	assert.ErrorIs(t, err, lmsr.ErrVoteCountTooLarge)
}

func TestParticipantsRecordedOnce(t *testing.T) {
	e := getTestEngine(t, zeroFeeConfig())
	createTestMarket(t, e)

	for i := 0; i < 2; i++ {
		quote, err := e.SimulateBuy(testSubject, types.SideTrust, 5)
		require.NoError(t, err)
		_, err = e.BuyVotes(testSubject, types.SideTrust, quote.GrossCost.Clone(), 5, 5, buyer)
		require.NoError(t, err)
	}
	quote, err := e.SimulateBuy(testSubject, types.SideDistrust, 5)
	require.NoError(t, err)
	_, err = e.BuyVotes(testSubject, types.SideDistrust, quote.GrossCost.Clone(), 5, 5, seller)
	require.NoError(t, err)

	m, err := e.GetMarket(testSubject)
	require.NoError(t, err)
	assert.Len(t, m.Participants, 2)
}

func TestConfigAdministration(t *testing.T) {
	e := getTestEngine(t, market.NewDefaultConfig())
	require.Equal(t, 3, e.MarketConfigCount())

	index, err := e.AddMarketConfig(
		num.MustUintFromString("500000000000000000000"),
		num.MustUintFromString("20000000000000000"),
		num.MustUintFromString("300000000000000000"),
	)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), index)
	assert.Equal(t, 4, e.MarketConfigCount())
	require.Len(t, e.broker.ofType(events.ConfigAddedType), 1)

	_, err = e.CreateMarket(testSubject, index, num.MustUintFromString("300000000000000000"), buyer)
	require.NoError(t, err)

	t.Run("removal leaves live markets untouched", func(t *testing.T) {
		require.NoError(t, e.RemoveMarketConfig(index))
		require.Len(t, e.broker.ofType(events.ConfigRemovedType), 1)
		_, err := e.GetMarketConfig(index)
		assert.ErrorIs(t, err, registry.ErrConfigNotFound)

		// The market resolved its parameters by value at creation.
		m, err := e.GetMarket(testSubject)
		require.NoError(t, err)
		assert.Equal(t, "20000000000000000", m.BasePrice.String())
		_, err = e.SimulateBuy(testSubject, types.SideTrust, 1)
		assert.NoError(t, err)
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		_, err := e.AddMarketConfig(num.UintZero(), num.MustUintFromString("20000000000000000"), num.UintZero())
		assert.ErrorIs(t, err, registry.ErrInvalidConfig)
	})
}

func TestConcurrentTradingAcrossSubjects(t *testing.T) {
	e := getTestEngine(t, zeroFeeConfig())
	subjects := []uint64{1, 2, 3, 4}
	for _, s := range subjects {
		_, err := e.CreateMarket(s, testConfig, creationCost.Clone(), buyer)
		require.NoError(t, err)
	}

	budget := num.MustUintFromString("100000000000000000") // 0.1

	var wg sync.WaitGroup
	for _, s := range subjects {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				trade, err := e.BuyVotes(s, types.SideTrust, budget.Clone(), 1<<20, 1, buyer)
				assert.NoError(t, err)
				if err != nil {
					return
				}
				_, err = e.SellVotes(s, types.SideTrust, trade.Votes, nil, buyer)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for _, s := range subjects {
		m, err := e.GetMarket(s)
		require.NoError(t, err)
		assert.Zero(t, m.TrustVotes, "subject %d", s)
	}
}

func TestReloadConf(t *testing.T) {
	e := getTestEngine(t, market.NewDefaultConfig())
	createTestMarket(t, e)

	cfg := market.NewDefaultConfig()
	cfg.Level.Level = logging.DebugLevel
	assert.NotPanics(t, func() { e.ReloadConf(cfg) })

	_, err := e.SimulateBuy(testSubject, types.SideTrust, 1)
	assert.NoError(t, err)
}
