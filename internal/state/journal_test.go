package state_test

import (
	"errors"
	"testing"

	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestAtomic_RevertsOnError(t *testing.T) {
	j := state.New()
	x := 1
	m := map[string]int{"a": 1}

	err := j.Atomic(func() error {
		state.Set(j, &x, 2)
		state.SetKey(j, m, "a", 10)
		state.SetKey(j, m, "b", 20)
		return errBoom
	})

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, x)
	assert.Equal(t, map[string]int{"a": 1}, m)
	assert.Zero(t, j.Len())
}

func TestAtomic_KeepsOnSuccess(t *testing.T) {
	j := state.New()
	x := 1
	require.NoError(t, j.Atomic(func() error {
		state.Set(j, &x, 5)
		return nil
	}))
	assert.Equal(t, 5, x)
	assert.Zero(t, j.Len(), "outermost success clears the log")
}

func TestAtomic_NestedFailureOnlyRevertsInner(t *testing.T) {
	j := state.New()
	outer, inner := 0, 0

	err := j.Atomic(func() error {
		state.Set(j, &outer, 1)
		innerErr := j.Atomic(func() error {
			state.Set(j, &inner, 1)
			return errBoom
		})
		assert.ErrorIs(t, innerErr, errBoom)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, outer)
	assert.Equal(t, 0, inner)
}

func TestAtomic_OuterFailureRevertsCommittedInner(t *testing.T) {
	j := state.New()
	v := 0
	err := j.Atomic(func() error {
		require.NoError(t, j.Atomic(func() error {
			state.Set(j, &v, 7)
			return nil
		}))
		return errBoom
	})
	require.Error(t, err)
	assert.Equal(t, 0, v)
}

func TestAtomic_RevertsOnPanic(t *testing.T) {
	j := state.New()
	v := 0
	assert.Panics(t, func() {
		_ = j.Atomic(func() error {
			state.Set(j, &v, 3)
			panic("bad")
		})
	})
	assert.Equal(t, 0, v)
}

func TestDeleteKey(t *testing.T) {
	j := state.New()
	m := map[int]string{1: "one"}
	id := j.Snapshot()
	state.DeleteKey(j, m, 1)
	state.DeleteKey(j, m, 2)
	assert.Empty(t, m)
	j.RevertToSnapshot(id)
	assert.Equal(t, "one", m[1])
}

func TestNilJournal(t *testing.T) {
	var j *state.Journal
	v := 0
	state.Set(j, &v, 4)
	assert.Equal(t, 4, v)
	assert.NoError(t, j.Atomic(func() error { return nil }))
}
