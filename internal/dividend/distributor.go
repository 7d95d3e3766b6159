// Package dividend tracks every holder's proportional claim on a reward pool
// with a cumulative per-share accumulator and pays it out in bounded passes.
package dividend

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/metrics"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

var (
	ErrNotController    = errors.New("caller is not the controlling token")
	ErrConversionFailed = errors.New("reward token conversion returned nothing")
	ErrSameRewardToken  = errors.New("reward token unchanged")
)

var (
	// AccuracyFactor scales dividendsPerShare.
	AccuracyFactor = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(36))

	// rateOne is the unit-to-token rate before any reward token switch.
	rateOne = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
)

// Share is one holder's position.
type Share struct {
	Amount uint256.Int
	// Excluded is the accumulator value at the last settlement.
	Excluded uint256.Int
	Realised uint256.Int
}

// Converter swaps amount of from held by holder into to, crediting holder.
type Converter func(holder common.Address, from, to ledger.Token, amount *uint256.Int) error

// Distributor accrues deposits per share and pays holders in the reward token.
//
// Accounting runs in internal units. rate converts units into reward-token
// base units (scaled by 1e18) so a reward token switch only rescales rate.
type Distributor struct {
	journal    *state.Journal
	log        *slog.Logger
	clock      clockwork.Clock
	address    common.Address
	controller common.Address
	reward     ledger.Token

	shares  map[common.Address]Share
	claims  map[common.Address]time.Time
	holders *holderSet

	totalShares       uint256.Int
	totalDividends    uint256.Int
	totalDistributed  uint256.Int
	dividendsPerShare uint256.Int
	pending           uint256.Int
	rate              uint256.Int

	minPeriod       time.Duration
	minDistribution uint256.Int
}

// New creates a distributor from cfg.
func New(cfg Config) (*Distributor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Distributor{
		journal:         cfg.Journal,
		log:             cfg.Logger.With("component", "distributor", "address", cfg.Address.Hex()),
		clock:           cfg.Clock,
		address:         cfg.Address,
		controller:      cfg.Controller,
		reward:          cfg.RewardToken,
		shares:          make(map[common.Address]Share),
		claims:          make(map[common.Address]time.Time),
		holders:         newHolderSet(cfg.Journal),
		minPeriod:       cfg.MinPeriod,
		minDistribution: *cfg.MinDistribution,
	}
	d.rate.Set(rateOne)
	return d, nil
}

func (d *Distributor) Address() common.Address    { return d.address }
func (d *Distributor) Controller() common.Address { return d.controller }
func (d *Distributor) RewardToken() ledger.Token  { return d.reward }

// HolderCount is the number of holders with non-zero shares.
func (d *Distributor) HolderCount() int { return d.holders.len() }

// Holders returns the holder set in iteration order.
func (d *Distributor) Holders() []common.Address { return d.holders.snapshot() }

// Cursor is where the next Process call resumes.
func (d *Distributor) Cursor() int { return d.holders.cursor }

func (d *Distributor) TotalShares() *uint256.Int       { return d.totalShares.Clone() }
func (d *Distributor) DividendsPerShare() *uint256.Int { return d.dividendsPerShare.Clone() }
func (d *Distributor) PendingDeposits() *uint256.Int   { return d.toTokens(&d.pending) }

// TotalDividends is every deposit so far, in current reward-token units.
func (d *Distributor) TotalDividends() *uint256.Int { return d.toTokens(&d.totalDividends) }

// TotalDistributed is every payout so far, in current reward-token units.
func (d *Distributor) TotalDistributed() *uint256.Int { return d.toTokens(&d.totalDistributed) }

// ShareOf returns the holder's share amount.
func (d *Distributor) ShareOf(h common.Address) *uint256.Int {
	s := d.shares[h]
	return s.Amount.Clone()
}

// TotalRealised is what h has been paid, in current reward-token units.
func (d *Distributor) TotalRealised(h common.Address) *uint256.Int {
	s := d.shares[h]
	return d.toTokens(&s.Realised)
}

// LastClaim is when h was last paid.
func (d *Distributor) LastClaim(h common.Address) time.Time { return d.claims[h] }

// Criteria returns the payout gating parameters.
func (d *Distributor) Criteria() (time.Duration, *uint256.Int) {
	return d.minPeriod, d.minDistribution.Clone()
}

func (d *Distributor) onlyController(caller common.Address) error {
	if caller != d.controller {
		return fmt.Errorf("%w: %s", ErrNotController, caller.Hex())
	}
	return nil
}

// SetDistributionCriteria gates how often and how much a holder is paid by Process.
func (d *Distributor) SetDistributionCriteria(caller common.Address, minPeriod time.Duration, minDistribution *uint256.Int) error {
	if err := d.onlyController(caller); err != nil {
		return err
	}
	state.Set(d.journal, &d.minPeriod, minPeriod)
	state.Set(d.journal, &d.minDistribution, *minDistribution)
	return nil
}

// SetShare settles h's unpaid earnings and sets its share to amount.
func (d *Distributor) SetShare(caller, h common.Address, amount *uint256.Int) error {
	if err := d.onlyController(caller); err != nil {
		return err
	}
	cur := d.shares[h]
	if !cur.Amount.IsZero() {
		if _, err := d.distribute(h); err != nil {
			return err
		}
		cur = d.shares[h]
	}

	switch {
	case !amount.IsZero() && cur.Amount.IsZero():
		d.holders.add(h)
	case amount.IsZero() && !cur.Amount.IsZero():
		d.holders.remove(h)
	}

	total := new(uint256.Int).Sub(&d.totalShares, &cur.Amount)
	total.Add(total, amount)
	state.Set(d.journal, &d.totalShares, *total)

	cur.Amount = *amount.Clone()
	cur.Excluded = d.dividendsPerShare
	state.SetKey(d.journal, d.shares, h, cur)
	return nil
}

// Deposit credits amount of reward tokens, already held by the distributor,
// to all current shares. With no shares the deposit is parked and folded into
// the next one.
func (d *Distributor) Deposit(caller common.Address, amount *uint256.Int) error {
	if err := d.onlyController(caller); err != nil {
		return err
	}
	units := d.toUnits(amount)
	state.Set(d.journal, &d.totalDividends, *new(uint256.Int).Add(&d.totalDividends, units))

	if d.totalShares.IsZero() {
		state.Set(d.journal, &d.pending, *new(uint256.Int).Add(&d.pending, units))
		metrics.DividendDepositsTotal.WithLabelValues(metrics.StatusSkipped).Inc()
		d.log.Debug("deposit parked, no shares", "amount", amount.ToBig())
		return nil
	}

	units.Add(units, &d.pending)
	state.Set(d.journal, &d.pending, uint256.Int{})

	inc, _ := new(uint256.Int).MulDivOverflow(units, AccuracyFactor, &d.totalShares)
	state.Set(d.journal, &d.dividendsPerShare, *new(uint256.Int).Add(&d.dividendsPerShare, inc))
	metrics.DividendDepositsTotal.WithLabelValues(metrics.StatusOK).Inc()
	return nil
}

// GetUnpaidEarnings is shares * (dividendsPerShare - excluded) / 1e36 in
// reward-token units.
func (d *Distributor) GetUnpaidEarnings(h common.Address) *uint256.Int {
	return d.toTokens(d.unpaidUnits(h))
}

func (d *Distributor) unpaidUnits(h common.Address) *uint256.Int {
	s := d.shares[h]
	if s.Amount.IsZero() || !d.dividendsPerShare.Gt(&s.Excluded) {
		return new(uint256.Int)
	}
	delta := new(uint256.Int).Sub(&d.dividendsPerShare, &s.Excluded)
	out, _ := new(uint256.Int).MulDivOverflow(&s.Amount, delta, AccuracyFactor)
	return out
}

// ShouldDistribute reports whether Process would pay h now.
func (d *Distributor) ShouldDistribute(h common.Address) bool {
	last := d.claims[h]
	if !last.Add(d.minPeriod).Before(d.clock.Now()) {
		return false
	}
	return d.GetUnpaidEarnings(h).Gt(&d.minDistribution)
}

// Claim pays h its unpaid earnings regardless of the distribution criteria.
func (d *Distributor) Claim(h common.Address) (*uint256.Int, error) {
	return d.distribute(h)
}

func (d *Distributor) distribute(h common.Address) (*uint256.Int, error) {
	s := d.shares[h]
	if s.Amount.IsZero() {
		return new(uint256.Int), nil
	}
	units := d.unpaidUnits(h)
	if units.IsZero() {
		return new(uint256.Int), nil
	}
	amount := d.toTokens(units)
	if err := d.reward.Transfer(d.address, h, amount); err != nil {
		return nil, fmt.Errorf("paying %s: %w", h.Hex(), err)
	}
	state.Set(d.journal, &d.totalDistributed, *new(uint256.Int).Add(&d.totalDistributed, units))
	state.SetKey(d.journal, d.claims, h, d.clock.Now())

	s.Realised.Add(&s.Realised, units)
	s.Excluded = d.dividendsPerShare
	state.SetKey(d.journal, d.shares, h, s)

	metrics.DividendPayoutsTotal.Inc()
	return amount, nil
}

// Result summarises one Process pass.
type Result struct {
	Iterations int
	Payouts    int
	Paid       *uint256.Int
	GasUsed    uint64
	Cursor     int
}

// Process visits holders from the persisted cursor until gas is spent or
// every holder has been visited once.
func (d *Distributor) Process(gas uint64) (Result, error) {
	return d.process(gas, d.holders.len())
}

// ProcessN visits at most count holders, optionally restarting from the
// first holder.
func (d *Distributor) ProcessN(count int, resetCursor bool) (Result, error) {
	if resetCursor {
		d.holders.setCursor(0)
	}
	return d.process(^uint64(0), min(count, d.holders.len()))
}

func (d *Distributor) process(gas uint64, limit int) (Result, error) {
	res := Result{Paid: new(uint256.Int), Cursor: d.holders.cursor}
	n := d.holders.len()
	if n == 0 {
		return res, nil
	}
	cursor := d.holders.cursor
	for res.GasUsed < gas && res.Iterations < limit {
		if cursor >= n {
			cursor = 0
		}
		h := d.holders.list[cursor]
		res.GasUsed += IterationGas
		if d.ShouldDistribute(h) {
			paid, err := d.distribute(h)
			if err != nil {
				return res, err
			}
			res.Paid.Add(res.Paid, paid)
			res.Payouts++
			res.GasUsed += PayoutGas
		}
		cursor++
		res.Iterations++
	}
	d.holders.setCursor(cursor)
	res.Cursor = cursor
	metrics.DistributorIterations.Observe(float64(res.Iterations))
	d.log.Debug("processed holders", "iterations", res.Iterations, "payouts", res.Payouts,
		"gas", res.GasUsed, "cursor", cursor)
	return res, nil
}

// SetRewardToken converts the reward balance into next through convert and
// rescales accounting so unpaid earnings carry over in the new token.
func (d *Distributor) SetRewardToken(caller common.Address, next ledger.Token, convert Converter) error {
	if err := d.onlyController(caller); err != nil {
		return err
	}
	if next.Address() == d.reward.Address() {
		return ErrSameRewardToken
	}
	held := d.reward.BalanceOf(d.address)
	if !held.IsZero() {
		before := next.BalanceOf(d.address)
		if err := convert(d.address, d.reward, next, held); err != nil {
			return fmt.Errorf("converting rewards: %w", err)
		}
		got := new(uint256.Int).Sub(next.BalanceOf(d.address), before)
		if got.IsZero() {
			return ErrConversionFailed
		}
		rate, overflow := new(uint256.Int).MulDivOverflow(&d.rate, got, held)
		if overflow || rate.IsZero() {
			return ErrConversionFailed
		}
		state.Set(d.journal, &d.rate, *rate)
	}
	d.log.Info("reward token switched", "from", d.reward.Symbol(), "to", next.Symbol())
	state.Set(d.journal, &d.reward, next)
	return nil
}

func (d *Distributor) toUnits(amount *uint256.Int) *uint256.Int {
	out, _ := new(uint256.Int).MulDivOverflow(amount, rateOne, &d.rate)
	return out
}

func (d *Distributor) toTokens(units *uint256.Int) *uint256.Int {
	out, _ := new(uint256.Int).MulDivOverflow(units, &d.rate, rateOne)
	return out
}

// ResetCursor makes the next pass start from the first holder.
func (d *Distributor) ResetCursor() { d.holders.setCursor(0) }
