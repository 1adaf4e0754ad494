package causal

import (
	"sync"

	"github.com/drpcorg/causal/clock"
	"github.com/pkg/errors"
)

// VectorMessage carries an immutable snapshot of the sender's vector
// at send time; the sender's later progress never retouches it.
type VectorMessage struct {
	From    clock.ProcessID
	To      clock.ProcessID
	Vec     clock.VV
	Content string
}

// VectorProcess is one process under the vector clock discipline.
type VectorProcess struct {
	id   clock.ProcessID
	lock sync.Mutex
	vec  clock.VV
	hist *History
}

func NewVectorProcess(id clock.ProcessID, known ...clock.ProcessID) *VectorProcess {
	return newVectorProcess(id, known, defaultHistoryIndex)
}

func newVectorProcess(id clock.ProcessID, known []clock.ProcessID, indexSize int) *VectorProcess {
	vec := make(clock.VV, len(known)+1)
	vec.Set(id, 0)
	for _, k := range known {
		vec.Put(k, 0)
	}
	return &VectorProcess{id: id, vec: vec, hist: NewHistory(indexSize)}
}

func (p *VectorProcess) ID() clock.ProcessID {
	return p.id
}

func (p *VectorProcess) History() *History {
	return p.hist
}

// Vec returns a snapshot of the current vector.
func (p *VectorProcess) Vec() clock.VV {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.vec.Copy()
}

// Admit grows the vector with a zero component for a newcomer.
func (p *VectorProcess) Admit(id clock.ProcessID) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.vec.Put(id, 0)
}

// Send ticks own component, then snapshots the whole vector into the
// message and logs the SEND.
func (p *VectorProcess) Send(to clock.ProcessID, content string) VectorMessage {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.vec.Tick(p.id)
	msg := VectorMessage{From: p.id, To: to, Vec: p.vec.Copy(), Content: content}
	p.hist.Append(Event{Kind: EventSend, From: p.id, To: to, Vec: msg.Vec, Content: content})
	return msg
}

// Receive merges the message's stamp first, then ticks own component;
// the other order would miscount our own contribution to the merge.
// Nothing is mutated on an address mismatch.
func (p *VectorProcess) Receive(msg VectorMessage) error {
	if msg.To != p.id {
		return errors.Wrapf(ErrAddressMismatch, "message for %s received by %s", msg.To, p.id)
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.vec.Merge(msg.Vec)
	p.vec.Tick(p.id)
	p.hist.Append(Event{Kind: EventReceive, From: msg.From, To: msg.To, Vec: msg.Vec, Content: msg.Content})
	return nil
}

// VectorSystem coordinates processes under vector clocks. Admitting a
// process extends every existing vector with a zero component for it.
type VectorSystem struct {
	reg *registry[*VectorProcess]
}

func NewVectorSystem(opts Options) *VectorSystem {
	return &VectorSystem{reg: newRegistry[*VectorProcess](opts)}
}

// AddProcess registers a fresh process whose initial vector spans all
// ids known at creation time, each zero.
func (s *VectorSystem) AddProcess(id clock.ProcessID) (*VectorProcess, error) {
	return s.reg.add(id,
		func(known []clock.ProcessID) *VectorProcess {
			return newVectorProcess(id, known, s.reg.opts.HistoryIndexSize)
		},
		func(prev *VectorProcess) {
			prev.Admit(id)
		})
}

// SpawnProcess registers a process under a minted id.
func (s *VectorSystem) SpawnProcess() (*VectorProcess, error) {
	return s.AddProcess(NewProcessID())
}

func (s *VectorSystem) Process(id clock.ProcessID) (*VectorProcess, bool) {
	return s.reg.get(id)
}

func (s *VectorSystem) ProcessIDs() []clock.ProcessID {
	return s.reg.ids()
}

// Send routes one message, stamping at the sender and delivering to
// the recipient synchronously. Both endpoints are validated before
// either is touched.
func (s *VectorSystem) Send(from, to clock.ProcessID, content string) error {
	sender, ok := s.reg.get(from)
	if !ok {
		return errors.Wrapf(ErrProcessUnknown, "%s", from)
	}
	recipient, ok := s.reg.get(to)
	if !ok {
		return errors.Wrapf(ErrProcessUnknown, "%s", to)
	}
	msg := sender.Send(to, content)
	return recipient.Receive(msg)
}

func (s *VectorSystem) Stats() Stats {
	return collectStats(s.reg)
}
