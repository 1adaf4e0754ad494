package causal

import (
	"testing"

	"github.com/drpcorg/causal/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLamportSend(t *testing.T) {
	p := NewLamportProcess("a")
	msg := p.Send("b", "hi")

	assert.Equal(t, clock.ProcessID("a"), msg.From)
	assert.Equal(t, clock.ProcessID("b"), msg.To)
	assert.Equal(t, clock.Scalar(1), msg.Time)
	assert.Equal(t, clock.Scalar(1), p.Now())

	events := p.History().Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventSend, events[0].Kind)
	assert.Equal(t, "hi", events[0].Content)
}

func TestLamportReceive(t *testing.T) {
	p := NewLamportProcess("b")
	err := p.Receive(LamportMessage{From: "a", To: "b", Time: 5, Content: "hi"})
	require.Nil(t, err)

	// max(0,5)+1, not 5
	assert.Equal(t, clock.Scalar(6), p.Now())

	events := p.History().Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventReceive, events[0].Kind)
	assert.Equal(t, clock.Scalar(5), events[0].Time) // stamp as carried
}

func TestLamportAddressMismatch(t *testing.T) {
	p := NewLamportProcess("b")
	err := p.Receive(LamportMessage{From: "a", To: "c", Time: 5})
	assert.True(t, errors.Is(err, ErrAddressMismatch))

	// fail-fast: nothing was mutated
	assert.Equal(t, clock.Scalar(0), p.Now())
	assert.Equal(t, 0, p.History().Len())
}

func TestLamportSystemRouting(t *testing.T) {
	s := NewLamportSystem(Options{})
	_, err := s.AddProcess("a")
	require.Nil(t, err)
	_, err = s.AddProcess("b")
	require.Nil(t, err)

	require.Nil(t, s.Send("a", "b", "one"))
	require.Nil(t, s.Send("b", "a", "two"))

	// a=1 on send, b=max(0,1)+1=2, b=3 on send, a=max(1,3)+1=4
	a, _ := s.Process("a")
	b, _ := s.Process("b")
	assert.Equal(t, clock.Scalar(4), a.Now())
	assert.Equal(t, clock.Scalar(3), b.Now())

	assert.Equal(t, 2, a.History().Len())
	assert.Equal(t, 2, b.History().Len())
}

func TestLamportChainMonotone(t *testing.T) {
	s := NewLamportSystem(Options{})
	for _, id := range []clock.ProcessID{"a", "b", "c"} {
		_, err := s.AddProcess(id)
		require.Nil(t, err)
	}

	require.Nil(t, s.Send("a", "b", "m1"))
	require.Nil(t, s.Send("b", "c", "m2"))
	require.Nil(t, s.Send("c", "a", "m3"))

	a, _ := s.Process("a")
	b, _ := s.Process("b")
	c, _ := s.Process("c")

	// each hop strictly advances: send a=1, recv b=2, send b=3,
	// recv c=4, send c=5, recv a=6
	assert.Equal(t, clock.Scalar(6), a.Now())
	assert.Equal(t, clock.Scalar(3), b.Now())
	assert.Equal(t, clock.Scalar(5), c.Now())
}

func TestLamportUnknownProcess(t *testing.T) {
	s := NewLamportSystem(Options{})
	_, err := s.AddProcess("a")
	require.Nil(t, err)

	err = s.Send("a", "ghost", "boo")
	assert.True(t, errors.Is(err, ErrProcessUnknown))
	err = s.Send("ghost", "a", "boo")
	assert.True(t, errors.Is(err, ErrProcessUnknown))

	// validation precedes any stamping
	a, _ := s.Process("a")
	assert.Equal(t, clock.Scalar(0), a.Now())
}
