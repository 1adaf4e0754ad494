package causal

import (
	"testing"

	"github.com/drpcorg/causal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationOrder(t *testing.T) {
	s := NewFifoSystem(Options{})
	want := []clock.ProcessID{"c", "a", "b"}
	for _, id := range want {
		_, err := s.AddProcess(id)
		require.Nil(t, err)
	}
	assert.Equal(t, want, s.ProcessIDs())
}

func TestSpawnProcess(t *testing.T) {
	s := NewLamportSystem(Options{})
	p1, err := s.SpawnProcess()
	require.Nil(t, err)
	p2, err := s.SpawnProcess()
	require.Nil(t, err)

	assert.NotEmpty(t, p1.ID())
	assert.NotEqual(t, p1.ID(), p2.ID())
	assert.Len(t, s.ProcessIDs(), 2)
}

func TestSystemsAreIsolated(t *testing.T) {
	s1 := NewLamportSystem(Options{})
	s2 := NewLamportSystem(Options{})

	_, err := s1.AddProcess("a")
	require.Nil(t, err)

	// same id in another coordinator, no clash
	_, err = s2.AddProcess("a")
	require.Nil(t, err)

	_, err = s2.AddProcess("b")
	require.Nil(t, err)
	require.Nil(t, s2.Send("a", "b", "hi"))

	a1, _ := s1.Process("a")
	assert.Equal(t, clock.Scalar(0), a1.Now())
}

func TestNewProcessID(t *testing.T) {
	a, b := NewProcessID(), NewProcessID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
