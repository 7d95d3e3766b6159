// Package timelock is the propose, wait, upgrade state machine that guards
// router migrations, plugin swaps and approval-delay changes.
package timelock

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/state"
)

var (
	ErrNoCandidate       = errors.New("there is no candidate")
	ErrDelayNotElapsed   = errors.New("delay has not passed")
	ErrInvalidCandidate  = errors.New("candidate not valid")
	ErrDelayMustIncrease = errors.New("new approval delay must be larger than the current one")
	ErrDelayTooSmall     = errors.New("delay too small")
)

// Validator rejects candidates that fail a type-specific check.
type Validator[T any] func(candidate T) error

// Slot guards a value of type T. It is either stable or holds one pending
// candidate with the time it was proposed.
type Slot[T any] struct {
	journal    *state.Journal
	validate   Validator[T]
	current    T
	candidate  T
	proposedAt time.Time
	pending    bool
}

// NewSlot returns a stable slot holding initial. validate may be nil.
func NewSlot[T any](j *state.Journal, initial T, validate Validator[T]) *Slot[T] {
	return &Slot[T]{journal: j, validate: validate, current: initial}
}

// Current returns the active value.
func (s *Slot[T]) Current() T { return s.current }

// Candidate returns the pending value, if any.
func (s *Slot[T]) Candidate() (T, bool) { return s.candidate, s.pending }

// ProposedAt returns when the pending candidate was proposed.
func (s *Slot[T]) ProposedAt() time.Time { return s.proposedAt }

// Set replaces the active value without a timelock. Used for first-time setup.
func (s *Slot[T]) Set(v T) {
	state.Set(s.journal, &s.current, v)
}

// Propose records candidate at now, replacing any earlier proposal and
// restarting the wait.
func (s *Slot[T]) Propose(now time.Time, candidate T) error {
	if s.validate != nil {
		if err := s.validate(candidate); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
		}
	}
	state.Set(s.journal, &s.candidate, candidate)
	state.Set(s.journal, &s.proposedAt, now)
	state.Set(s.journal, &s.pending, true)
	return nil
}

// Ready reports whether Upgrade would succeed at now.
func (s *Slot[T]) Ready(now time.Time, delay time.Duration) error {
	if !s.pending {
		return ErrNoCandidate
	}
	if unlock := s.proposedAt.Add(delay); now.Before(unlock) {
		return fmt.Errorf("%w: unlocks at %s", ErrDelayNotElapsed, unlock.UTC().Format(time.RFC3339))
	}
	return nil
}

// Upgrade promotes the candidate once delay has elapsed since the proposal
// and returns the value it replaced.
func (s *Slot[T]) Upgrade(now time.Time, delay time.Duration) (T, error) {
	var zero T
	if err := s.Ready(now, delay); err != nil {
		return zero, err
	}
	prev := s.current
	state.Set(s.journal, &s.current, s.candidate)
	s.Cancel()
	return prev, nil
}

// Cancel drops the pending candidate.
func (s *Slot[T]) Cancel() {
	var zero T
	state.Set(s.journal, &s.candidate, zero)
	state.Set(s.journal, &s.proposedAt, time.Time{})
	state.Set(s.journal, &s.pending, false)
}
