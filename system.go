package causal

import (
	"sync"

	"github.com/drpcorg/causal/clock"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// registry is the membership core shared by the per-discipline
// coordinators. Lookups are lock-free; membership mutation is
// serialized, so a join never races a routing call that is sizing
// vectors or allocating reorder buckets.
type registry[P any] struct {
	procs *xsync.MapOf[clock.ProcessID, P]
	lock  sync.Mutex
	order []clock.ProcessID
	opts  Options
}

func newRegistry[P any](opts Options) *registry[P] {
	opts.setDefaults()
	return &registry[P]{
		procs: xsync.NewMapOf[clock.ProcessID, P](),
		opts:  opts,
	}
}

// add registers a new member. fresh builds the member's state given
// every id known at that moment (the newcomer included); admit, when
// not nil, lets each existing member account for the newcomer. Nothing
// is mutated on a duplicate id.
func (r *registry[P]) add(id clock.ProcessID, fresh func(known []clock.ProcessID) P, admit func(p P)) (P, error) {
	var none P
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.procs.Load(id); ok {
		return none, errors.Wrapf(ErrProcessKnown, "%s", id)
	}
	known := make([]clock.ProcessID, 0, len(r.order)+1)
	known = append(known, r.order...)
	known = append(known, id)
	p := fresh(known)
	if admit != nil {
		for _, prev := range r.order {
			if prior, ok := r.procs.Load(prev); ok {
				admit(prior)
			}
		}
	}
	r.procs.Store(id, p)
	r.order = append(r.order, id)
	r.opts.Logger.Debug("process registered", "id", id, "members", len(r.order))
	return p, nil
}

func (r *registry[P]) get(id clock.ProcessID) (P, bool) {
	return r.procs.Load(id)
}

// ids returns the membership in registration order.
func (r *registry[P]) ids() []clock.ProcessID {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]clock.ProcessID{}, r.order...)
}

// others returns every member but from, in registration order.
func (r *registry[P]) others(from clock.ProcessID) []P {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]P, 0, len(r.order))
	for _, id := range r.order {
		if id == from {
			continue
		}
		if p, ok := r.procs.Load(id); ok {
			out = append(out, p)
		}
	}
	return out
}

type process interface {
	History() *History
}

func collectStats[P process](r *registry[P]) Stats {
	ids := r.ids()
	st := Stats{
		Processes: len(ids),
		Events:    make(map[clock.ProcessID]int, len(ids)),
	}
	for _, id := range ids {
		if p, ok := r.get(id); ok {
			st.Events[id] = p.History().Len()
		}
	}
	return st
}
