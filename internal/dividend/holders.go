package dividend

import (
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
)

// holderSet is an insertion-ordered set with O(1) add and swap-and-pop
// removal, plus the persisted cursor of the round-robin payout pass.
type holderSet struct {
	journal *state.Journal
	list    []common.Address
	index   map[common.Address]int
	cursor  int
}

func newHolderSet(j *state.Journal) *holderSet {
	return &holderSet{journal: j, index: make(map[common.Address]int)}
}

func (s *holderSet) len() int { return len(s.list) }

func (s *holderSet) contains(h common.Address) bool {
	_, ok := s.index[h]
	return ok
}

func (s *holderSet) add(h common.Address) {
	if s.contains(h) {
		return
	}
	state.SetKey(s.journal, s.index, h, len(s.list))
	s.list = append(s.list, h)
	n := len(s.list) - 1
	s.journal.Record(func() { s.list = s.list[:n] })
}

func (s *holderSet) remove(h common.Address) {
	idx, ok := s.index[h]
	if !ok {
		return
	}
	lastIdx := len(s.list) - 1
	last := s.list[lastIdx]

	s.journal.Record(func() {
		s.list = append(s.list[:lastIdx], last)
		s.list[idx] = h
	})
	s.list[idx] = last
	s.list = s.list[:lastIdx]

	if last != h {
		state.SetKey(s.journal, s.index, last, idx)
	}
	state.DeleteKey(s.journal, s.index, h)
}

func (s *holderSet) setCursor(c int) {
	state.Set(s.journal, &s.cursor, c)
}

func (s *holderSet) snapshot() []common.Address {
	out := make([]common.Address, len(s.list))
	copy(out, s.list)
	return out
}
