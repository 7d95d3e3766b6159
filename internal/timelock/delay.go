package timelock

import (
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/state"
)

// Delay is a governance delay that can only grow through IncreaseTo, or be
// changed through its own timelocked proposal bounded below by a minimum.
type Delay struct {
	journal  *state.Journal
	value    time.Duration
	min      time.Duration
	proposal *Slot[time.Duration]
}

// NewDelay returns a delay starting at initial. min bounds proposals.
func NewDelay(j *state.Journal, initial, min time.Duration) (*Delay, error) {
	if initial < min {
		return nil, fmt.Errorf("%w: %s < %s", ErrDelayTooSmall, initial, min)
	}
	d := &Delay{journal: j, value: initial, min: min}
	d.proposal = NewSlot(j, time.Duration(0), func(c time.Duration) error {
		if c < d.min {
			return fmt.Errorf("%w: %s < %s", ErrDelayTooSmall, c, d.min)
		}
		return nil
	})
	return d, nil
}

// Value is the delay currently in force.
func (d *Delay) Value() time.Duration { return d.value }

// Min is the smallest delay a proposal may set.
func (d *Delay) Min() time.Duration { return d.min }

// IncreaseTo raises the delay immediately. Shortening is never allowed.
func (d *Delay) IncreaseTo(next time.Duration) error {
	if next <= d.value {
		return fmt.Errorf("%w: %s <= %s", ErrDelayMustIncrease, next, d.value)
	}
	state.Set(d.journal, &d.value, next)
	return nil
}

// Propose queues a new delay. It takes effect after the current delay.
func (d *Delay) Propose(now time.Time, next time.Duration) error {
	return d.proposal.Propose(now, next)
}

// Proposed returns the queued delay, zero when none.
func (d *Delay) Proposed() time.Duration {
	c, _ := d.proposal.Candidate()
	return c
}

// Upgrade applies the queued delay once the current delay has elapsed.
func (d *Delay) Upgrade(now time.Time) error {
	if _, err := d.proposal.Upgrade(now, d.value); err != nil {
		return err
	}
	state.Set(d.journal, &d.value, d.proposal.Current())
	return nil
}
