package engine

import (
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
)

// ActiveSet holds the requests that have not been evicted yet, in admission
// order: routed requests still travelling and NoPath requests, which stay
// forever.
type ActiveSet struct {
	items []*Request
	byID  map[string]*Request
}

// NewActiveSet creates an empty active set
func NewActiveSet() *ActiveSet {
	return &ActiveSet{byID: make(map[string]*Request)}
}

// Add appends r to the set
func (s *ActiveSet) Add(r *Request) {
	s.items = append(s.items, r)
	s.byID[r.ID] = r
}

// Get returns the active request with the given id
func (s *ActiveSet) Get(id string) (*Request, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Len returns the number of active requests
func (s *ActiveSet) Len() int {
	return len(s.items)
}

// InFlight returns the number of routed requests that still hold edges
func (s *ActiveSet) InFlight() int {
	n := 0
	for _, r := range s.items {
		if r.Status == models.RequestStatusRouted {
			n++
		}
	}
	return n
}

// List returns the active requests in admission order
func (s *ActiveSet) List() []*Request {
	out := make([]*Request, len(s.items))
	copy(out, s.items)
	return out
}

// EvictExpired releases and removes every routed request whose end time is
// strictly before now. On a release failure it stops evicting and returns
// the requests evicted so far together with the error; the failing request
// stays in the set.
func (s *ActiveSet) EvictExpired(now float64, g *graph.Graph) ([]*Request, error) {
	var evicted []*Request
	var err error
	kept := make([]*Request, 0, len(s.items))
	for _, r := range s.items {
		if err == nil && r.expired(now) {
			if err = r.release(g); err == nil {
				evicted = append(evicted, r)
				delete(s.byID, r.ID)
				continue
			}
		}
		kept = append(kept, r)
	}
	s.items = kept
	return evicted, err
}
