package causal

import (
	"sync"

	"github.com/drpcorg/causal/clock"
	"github.com/pkg/errors"
)

// LamportMessage carries a scalar stamp. Immutable once constructed.
type LamportMessage struct {
	From    clock.ProcessID
	To      clock.ProcessID
	Time    clock.Scalar
	Content string
}

// LamportProcess is one process under the scalar clock discipline.
// Scalar clocks impose no delivery ordering of their own; they only
// witness potential causal order.
type LamportProcess struct {
	id   clock.ProcessID
	lock sync.Mutex
	time clock.Scalar
	hist *History
}

func NewLamportProcess(id clock.ProcessID) *LamportProcess {
	return newLamportProcess(id, defaultHistoryIndex)
}

func newLamportProcess(id clock.ProcessID, indexSize int) *LamportProcess {
	return &LamportProcess{id: id, hist: NewHistory(indexSize)}
}

func (p *LamportProcess) ID() clock.ProcessID {
	return p.id
}

func (p *LamportProcess) History() *History {
	return p.hist
}

// Now returns the current scalar time.
func (p *LamportProcess) Now() clock.Scalar {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.time
}

// Send stamps an outgoing message with freshly advanced local time and
// logs the SEND.
func (p *LamportProcess) Send(to clock.ProcessID, content string) LamportMessage {
	p.lock.Lock()
	defer p.lock.Unlock()
	msg := LamportMessage{From: p.id, To: to, Time: p.time.Tick(), Content: content}
	p.hist.Append(Event{Kind: EventSend, From: p.id, To: to, Time: msg.Time, Content: content})
	return msg
}

// Receive moves local time strictly past the message's stamp and logs
// the RECEIVE. Nothing is mutated on an address mismatch.
func (p *LamportProcess) Receive(msg LamportMessage) error {
	if msg.To != p.id {
		return errors.Wrapf(ErrAddressMismatch, "message for %s received by %s", msg.To, p.id)
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.time.Witness(msg.Time)
	p.hist.Append(Event{Kind: EventReceive, From: msg.From, To: msg.To, Time: msg.Time, Content: msg.Content})
	return nil
}

// LamportSystem coordinates processes under scalar clocks.
type LamportSystem struct {
	reg *registry[*LamportProcess]
}

func NewLamportSystem(opts Options) *LamportSystem {
	return &LamportSystem{reg: newRegistry[*LamportProcess](opts)}
}

// AddProcess registers a fresh process under the given id.
func (s *LamportSystem) AddProcess(id clock.ProcessID) (*LamportProcess, error) {
	return s.reg.add(id, func([]clock.ProcessID) *LamportProcess {
		return newLamportProcess(id, s.reg.opts.HistoryIndexSize)
	}, nil)
}

// SpawnProcess registers a process under a minted id.
func (s *LamportSystem) SpawnProcess() (*LamportProcess, error) {
	return s.AddProcess(NewProcessID())
}

func (s *LamportSystem) Process(id clock.ProcessID) (*LamportProcess, bool) {
	return s.reg.get(id)
}

func (s *LamportSystem) ProcessIDs() []clock.ProcessID {
	return s.reg.ids()
}

// Send routes one message, stamping at the sender and delivering to
// the recipient synchronously. Both endpoints are validated before
// either is touched.
func (s *LamportSystem) Send(from, to clock.ProcessID, content string) error {
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

func (s *LamportSystem) Stats() Stats {
	return collectStats(s.reg)
}
