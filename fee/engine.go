// Package fee computes how gross payments split into protocol fee, subject
// donation and net deposit on market entry, and the inverse split on exit.
// Splits are exact: the remainder of every basis-point division is assigned
// to the net amount, never dropped.
package fee

import (
	"errors"

	"github.com/credencemarkets/credence/logging"
	"github.com/credencemarkets/credence/num"
)

const maxBps = 10000

var (
	// ErrInvalidFeeFactor is returned when basis-point factors do not sum
	// below 100%.
	ErrInvalidFeeFactor = errors.New("fee basis points out of range")
	// ErrAmountOutOfRange is returned when a gross amount is too large for
	// the split arithmetic.
	ErrAmountOutOfRange = errors.New("amount out of range for fee split")
)

var bpsDenominator = num.NewUint(maxBps)

// Factors are the live basis-point fee factors.
type Factors struct {
	EntryProtocolBps uint64
	EntryDonationBps uint64
	ExitProtocolBps  uint64
}

// EntrySplit is the exact decomposition of a gross entry payment.
// Net + ProtocolFee + Donation == gross always holds.
type EntrySplit struct {
	Net         *num.Uint
	ProtocolFee *num.Uint
	Donation    *num.Uint
}

// ExitSplit is the exact decomposition of gross exit proceeds.
// Net + ExitFee == gross always holds.
type ExitSplit struct {
	Net     *num.Uint
	ExitFee *num.Uint
}

// bpsShare returns floor(gross * bps / 10000).
func bpsShare(gross *num.Uint, bps uint64) (*num.Uint, error) {
	p, overflow := num.UintZero().MulOverflow(gross, num.NewUint(bps))
	if overflow {
		return nil, ErrAmountOutOfRange
	}
	return p.Div(p, bpsDenominator), nil
}

// SplitEntry splits a gross payment into net deposit, protocol fee and
// donation. With both factors zero the net equals the gross exactly.
func SplitEntry(gross *num.Uint, protocolBps, donationBps uint64) (EntrySplit, error) {
	if protocolBps+donationBps > maxBps {
		return EntrySplit{}, ErrInvalidFeeFactor
	}
	protocolFee, err := bpsShare(gross, protocolBps)
	if err != nil {
		return EntrySplit{}, err
	}
	donation, err := bpsShare(gross, donationBps)
	if err != nil {
		return EntrySplit{}, err
	}
	net := num.UintZero().Sub(gross, num.Sum(protocolFee, donation))
	return EntrySplit{
		Net:         net,
		ProtocolFee: protocolFee,
		Donation:    donation,
	}, nil
}

// SplitExit splits gross proceeds into the seller's net amount and the
// exit fee.
func SplitExit(gross *num.Uint, exitBps uint64) (ExitSplit, error) {
	if exitBps > maxBps {
		return ExitSplit{}, ErrInvalidFeeFactor
	}
	exitFee, err := bpsShare(gross, exitBps)
	if err != nil {
		return ExitSplit{}, err
	}
	return ExitSplit{
		Net:     num.UintZero().Sub(gross, exitFee),
		ExitFee: exitFee,
	}, nil
}

// GrossFromNet returns a gross amount whose entry split leaves at least the
// given net available: the ceiling inverse of SplitEntry. Fee truncation can
// make it overshoot the true minimum by a unit or two, never undershoot.
func GrossFromNet(net *num.Uint, protocolBps, donationBps uint64) (*num.Uint, error) {
	total := protocolBps + donationBps
	if total >= maxBps {
		return nil, ErrInvalidFeeFactor
	}
	keep := num.NewUint(maxBps - total)
	p, overflow := num.UintZero().MulOverflow(net, bpsDenominator)
	if overflow {
		return nil, ErrAmountOutOfRange
	}
	rem := num.UintZero().Mod(p, keep)
	p.Div(p, keep)
	if !rem.IsZero() {
		p.Add(p, num.NewUint(1))
	}
	return p, nil
}

// Engine applies configured fee factors to entry and exit payments.
type Engine struct {
	log *logging.Logger
	cfg Config

	f Factors
}

// New returns a fee engine with the factors taken from the configuration.
func New(log *logging.Logger, cfg Config) (*Engine, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	e := &Engine{
		log: log,
		cfg: cfg,
	}
	return e, e.UpdateFactors(Factors{
		EntryProtocolBps: cfg.EntryProtocolBps,
		EntryDonationBps: cfg.EntryDonationBps,
		ExitProtocolBps:  cfg.ExitProtocolBps,
	})
}

// ReloadConf is used in order to reload the internal configuration of
// the fee engine.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}
	e.cfg = cfg
	// Invalid factor sets are logged and rejected; the previous factors
	// stay live.
	_ = e.UpdateFactors(Factors{
		EntryProtocolBps: cfg.EntryProtocolBps,
		EntryDonationBps: cfg.EntryDonationBps,
		ExitProtocolBps:  cfg.ExitProtocolBps,
	})
}

// UpdateFactors replaces the live fee factors, rejecting factor sets that
// reach or exceed 100%.
func (e *Engine) UpdateFactors(f Factors) error {
	if f.EntryProtocolBps+f.EntryDonationBps >= maxBps || f.ExitProtocolBps >= maxBps {
		e.log.Error("rejecting fee factors",
			logging.Uint64("entry-protocol-bps", f.EntryProtocolBps),
			logging.Uint64("entry-donation-bps", f.EntryDonationBps),
			logging.Uint64("exit-protocol-bps", f.ExitProtocolBps),
		)
		return ErrInvalidFeeFactor
	}
	e.f = f
	return nil
}

// Factors returns the live fee factors.
func (e *Engine) Factors() Factors {
	return e.f
}

// SplitEntry splits a gross buy payment using the configured factors.
func (e *Engine) SplitEntry(gross *num.Uint) (EntrySplit, error) {
	return SplitEntry(gross, e.f.EntryProtocolBps, e.f.EntryDonationBps)
}

// SplitExit splits gross sell proceeds using the configured factors.
func (e *Engine) SplitExit(gross *num.Uint) (ExitSplit, error) {
	return SplitExit(gross, e.f.ExitProtocolBps)
}

// GrossFromNet inverts SplitEntry using the configured factors.
func (e *Engine) GrossFromNet(net *num.Uint) (*num.Uint, error) {
	return GrossFromNet(net, e.f.EntryProtocolBps, e.f.EntryDonationBps)
}
