package causal

import (
	"sync"

	"github.com/cespare/xxhash"
	"github.com/drpcorg/causal/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
)

type EventKind byte

const (
	EventSend      EventKind = 'S'
	EventReceive   EventKind = 'R'
	EventBroadcast EventKind = 'B'
	EventDeliver   EventKind = 'D'
)

func (k EventKind) String() string {
	switch k {
	case EventSend:
		return "SEND"
	case EventReceive:
		return "RECEIVE"
	case EventBroadcast:
		return "BROADCAST"
	case EventDeliver:
		return "DELIVER"
	default:
		return "?"
	}
}

// Event is one step of a process's life: a message it sent or had
// delivered, tagged with direction. Exactly one of Time, Vec, Seq is
// meaningful, depending on the clock discipline. Events are an audit
// trail; none of the disciplines ever read them back.
type Event struct {
	Kind    EventKind
	From    clock.ProcessID
	To      clock.ProcessID // empty for broadcasts
	Time    clock.Scalar
	Vec     clock.VV // stamp snapshot, never mutated after append
	Seq     uint64
	Content string
}

// Digest is a stable 64-bit fingerprint of the event.
func (e Event) Digest() uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte{byte(e.Kind), 0})
	_, _ = h.Write([]byte(e.From))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(e.To))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(e.stamp())
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(e.Content))
	return h.Sum64()
}

func (e Event) stamp() []byte {
	switch {
	case e.Vec != nil:
		return e.Vec.Bytes()
	case e.Seq != 0:
		return toytlv.Record('N', clock.ZipUint64(e.Seq))
	default:
		return toytlv.Record('L', clock.ZipUint64(uint64(e.Time)))
	}
}

// TLV Event record
func (e Event) Bytes() (ret []byte) {
	bm, ret := toytlv.OpenHeader(ret, 'E')
	ret = toytlv.Append(ret, 'K', []byte{byte(e.Kind)})
	ret = toytlv.Append(ret, 'F', []byte(e.From))
	if e.To != "" {
		ret = toytlv.Append(ret, 'T', []byte(e.To))
	}
	ret = append(ret, e.stamp()...)
	ret = toytlv.Append(ret, 'C', []byte(e.Content))
	toytlv.CloseHeader(ret, bm)
	return
}

// History is the append-only per-process event log. Recent events are
// additionally indexed by digest for cheap audit lookups.
type History struct {
	lock   sync.Mutex
	events []Event
	index  *lru.Cache[uint64, Event]
}

func NewHistory(indexSize int) *History {
	if indexSize <= 0 {
		indexSize = defaultHistoryIndex
	}
	index, _ := lru.New[uint64, Event](indexSize)
	return &History{index: index}
}

func (h *History) Append(e Event) {
	h.lock.Lock()
	h.events = append(h.events, e)
	h.lock.Unlock()
	h.index.Add(e.Digest(), e)
}

func (h *History) Len() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.events)
}

// Events returns a snapshot of the log in append order.
func (h *History) Events() []Event {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]Event{}, h.events...)
}

// Find locates an event by digest: the index serves recent events,
// older ones take a scan.
func (h *History) Find(digest uint64) (Event, bool) {
	if e, ok := h.index.Get(digest); ok {
		return e, true
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	for _, e := range h.events {
		if e.Digest() == digest {
			return e, true
		}
	}
	return Event{}, false
}

var _ toyqueue.Feeder = (*History)(nil)

// Feed exports the log as TLV records.
func (h *History) Feed() (recs toyqueue.Records, err error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	recs = make(toyqueue.Records, 0, len(h.events))
	for _, e := range h.events {
		recs = append(recs, e.Bytes())
	}
	return
}
