package causal

import (
	"sync"

	"github.com/drpcorg/causal/clock"
	"github.com/drpcorg/causal/utils"
	"github.com/pkg/errors"
)

// FifoMessage is a broadcast stamped with its sender's sequence
// number: the k-th broadcast by a process carries k, starting at 1.
type FifoMessage struct {
	From    clock.ProcessID
	Seq     uint64
	Content string
}

// senderQueue reorders one sender's broadcasts for one observer.
// pending holds buffered messages by sequence number; seqs keeps the
// buffered numbers in a min-heap so release pops candidates in order.
type senderQueue struct {
	next    uint64
	pending map[uint64]FifoMessage
	seqs    utils.Heap[uint64]
}

func newSenderQueue() *senderQueue {
	return &senderQueue{next: 1, pending: make(map[uint64]FifoMessage)}
}

// FifoProcess observes broadcasts and releases them to its history in
// per-sender order. There is no ordering across distinct senders.
type FifoProcess struct {
	id    clock.ProcessID
	lock  sync.Mutex
	seq   uint64
	inbox map[clock.ProcessID]*senderQueue
	hist  *History
}

func NewFifoProcess(id clock.ProcessID, known ...clock.ProcessID) *FifoProcess {
	return newFifoProcess(id, known, defaultHistoryIndex)
}

func newFifoProcess(id clock.ProcessID, known []clock.ProcessID, indexSize int) *FifoProcess {
	inbox := make(map[clock.ProcessID]*senderQueue, len(known))
	for _, k := range known {
		if k != id {
			inbox[k] = newSenderQueue()
		}
	}
	return &FifoProcess{id: id, inbox: inbox, hist: NewHistory(indexSize)}
}

func (p *FifoProcess) ID() clock.ProcessID {
	return p.id
}

func (p *FifoProcess) History() *History {
	return p.hist
}

// Seq returns the sender-side sequence counter: how many broadcasts
// this process has issued.
func (p *FifoProcess) Seq() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.seq
}

// NextExpected returns the next sequence number this observer will
// release for the given sender.
func (p *FifoProcess) NextExpected(from clock.ProcessID) uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	if q, ok := p.inbox[from]; ok {
		return q.next
	}
	return 1
}

// Admit allocates a reorder bucket for a newcomer.
func (p *FifoProcess) Admit(id clock.ProcessID) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if _, ok := p.inbox[id]; !ok && id != p.id {
		p.inbox[id] = newSenderQueue()
	}
}

// Broadcast stamps the next sequence number. A process sees its own
// broadcasts in issue order, with no delay: the BROADCAST event goes
// to its history immediately.
func (p *FifoProcess) Broadcast(content string) FifoMessage {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.seq++
	msg := FifoMessage{From: p.id, Seq: p.seq, Content: content}
	p.hist.Append(Event{Kind: EventBroadcast, From: p.id, Seq: msg.Seq, Content: content})
	return msg
}

// Deliver buffers an incoming broadcast, then releases the longest
// contiguous run starting at the sender's next expected number. A gap
// blocks everything behind it until the missing number arrives;
// re-delivery of an already seen sequence number is a no-op. The
// release loop runs under the same lock as the insertion.
func (p *FifoProcess) Deliver(msg FifoMessage) {
	p.lock.Lock()
	defer p.lock.Unlock()
	q, ok := p.inbox[msg.From]
	if !ok {
		q = newSenderQueue()
		p.inbox[msg.From] = q
	}
	if msg.Seq < q.next {
		return // already released
	}
	if _, dup := q.pending[msg.Seq]; dup {
		return // already buffered
	}
	q.pending[msg.Seq] = msg
	q.seqs.Push(msg.Seq)
	for q.seqs.Len() > 0 && q.seqs.Peek() == q.next {
		ready := q.pending[q.seqs.Pop()]
		delete(q.pending, ready.Seq)
		p.hist.Append(Event{Kind: EventDeliver, From: ready.From, Seq: ready.Seq, Content: ready.Content})
		q.next++
	}
}

// Blocked counts buffered messages stuck behind a sequence gap.
func (p *FifoProcess) Blocked() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	n := 0
	for _, q := range p.inbox {
		n += len(q.pending)
	}
	return n
}

// FifoSystem coordinates FIFO broadcast: per-sender delivery order at
// every observer, no ordering guarantee across senders.
type FifoSystem struct {
	reg *registry[*FifoProcess]
}

func NewFifoSystem(opts Options) *FifoSystem {
	return &FifoSystem{reg: newRegistry[*FifoProcess](opts)}
}

// AddProcess registers a fresh process and gives every existing one a
// reorder bucket for it.
func (s *FifoSystem) AddProcess(id clock.ProcessID) (*FifoProcess, error) {
	return s.reg.add(id,
		func(known []clock.ProcessID) *FifoProcess {
			return newFifoProcess(id, known, s.reg.opts.HistoryIndexSize)
		},
		func(prev *FifoProcess) {
			prev.Admit(id)
		})
}

// SpawnProcess registers a process under a minted id.
func (s *FifoSystem) SpawnProcess() (*FifoProcess, error) {
	return s.AddProcess(NewProcessID())
}

func (s *FifoSystem) Process(id clock.ProcessID) (*FifoProcess, bool) {
	return s.reg.get(id)
}

func (s *FifoSystem) ProcessIDs() []clock.ProcessID {
	return s.reg.ids()
}

// Broadcast stamps at the sender, then delivers to every other
// process in registration order. Recipient order is not causally
// significant; each observer buffers per sender on its own.
func (s *FifoSystem) Broadcast(from clock.ProcessID, content string) error {
	sender, ok := s.reg.get(from)
	if !ok {
		return errors.Wrapf(ErrProcessUnknown, "%s", from)
	}
	msg := sender.Broadcast(content)
	for _, p := range s.reg.others(from) {
		p.Deliver(msg)
	}
	return nil
}

// Deliver hands a stamped message straight to one observer, bypassing
// the broadcast fan-out. Meant for driving the reorder buffer from
// tests and external transports.
func (s *FifoSystem) Deliver(to clock.ProcessID, msg FifoMessage) error {
	p, ok := s.reg.get(to)
	if !ok {
		return errors.Wrapf(ErrProcessUnknown, "%s", to)
	}
	p.Deliver(msg)
	return nil
}

func (s *FifoSystem) Stats() Stats {
	st := collectStats(s.reg)
	st.Blocked = make(map[clock.ProcessID]int, st.Processes)
	for _, id := range s.reg.ids() {
		if p, ok := s.reg.get(id); ok {
			st.Blocked[id] = p.Blocked()
		}
	}
	return st
}
