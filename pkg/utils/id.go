package utils

import (
	"fmt"
	"sync/atomic"
)

// Sequence hands out ordered ids of the form <prefix><n>, starting at 1.
// Request ids from one simulator are therefore sortable by admission order
// when compared numerically.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence creates a sequence with the given prefix
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next id
func (s *Sequence) Next() string {
	return fmt.Sprintf("%s%d", s.prefix, s.n.Add(1))
}

// Count returns how many ids were handed out
func (s *Sequence) Count() uint64 {
	return s.n.Load()
}
