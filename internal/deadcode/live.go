package deadcode

import (
	"slices"

	"github.com/roach88/deadlint/internal/ir"
)

// LiveSet is the set of declarations proven reachable from a root. It only
// grows: the marker inserts, and nothing removes.
type LiveSet struct {
	ids map[ir.ID]struct{}
}

func newLiveSet() *LiveSet {
	return &LiveSet{ids: make(map[ir.ID]struct{})}
}

func (s *LiveSet) insert(id ir.ID) {
	s.ids[id] = struct{}{}
}

// Contains reports whether id is live.
func (s *LiveSet) Contains(id ir.ID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of live IDs.
func (s *LiveSet) Len() int { return len(s.ids) }

// IDs returns the live IDs in ascending order.
func (s *LiveSet) IDs() []ir.ID {
	ids := make([]ir.ID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Oracle answers liveness queries over a finished LiveSet.
type Oracle struct {
	crate    *ir.Crate
	live     *LiveSet
	inherent map[ir.ID][]ir.ID
}

// NewOracle returns an oracle over the result of Mark. The crate is only
// read, here and by every later query.
func NewOracle(c *ir.Crate, live *LiveSet) *Oracle {
	return &Oracle{crate: c, live: live, inherent: c.InherentImplIndex()}
}

// IsLive reports whether the declaration is live. A type also counts as
// live when any associated item of one of its inherent impls is, so calling
// `T::new()` keeps `T` alive without naming it anywhere else.
func (o *Oracle) IsLive(id ir.ID) bool {
	if o.live.Contains(id) {
		return true
	}
	for _, impl := range o.inherent[id] {
		for _, item := range o.crate.AssociatedItems(impl) {
			if o.live.Contains(item) {
				return true
			}
		}
	}
	return false
}
