package causal

import (
	"testing"

	"github.com/drpcorg/causal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDigest(t *testing.T) {
	a := Event{Kind: EventSend, From: "a", To: "b", Time: 1, Content: "x"}
	b := Event{Kind: EventSend, From: "a", To: "b", Time: 1, Content: "x"}
	assert.Equal(t, a.Digest(), b.Digest())

	b.Content = "y"
	assert.NotEqual(t, a.Digest(), b.Digest())

	c := Event{Kind: EventReceive, From: "a", To: "b", Time: 1, Content: "x"}
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestHistoryAppendOnly(t *testing.T) {
	h := NewHistory(0)
	h.Append(Event{Kind: EventSend, From: "a", To: "b", Time: 1})
	h.Append(Event{Kind: EventReceive, From: "b", To: "a", Time: 2})

	events := h.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventSend, events[0].Kind)
	assert.Equal(t, EventReceive, events[1].Kind)

	// snapshot, not a window into the log
	events[0].Content = "tampered"
	assert.Equal(t, "", h.Events()[0].Content)
}

func TestHistoryFind(t *testing.T) {
	h := NewHistory(1) // tiny index forces the scan path
	first := Event{Kind: EventSend, From: "a", To: "b", Time: 1, Content: "old"}
	h.Append(first)
	for i := clock.Scalar(2); i < 10; i++ {
		h.Append(Event{Kind: EventSend, From: "a", To: "b", Time: i})
	}

	// evicted from the index by now, found by scan
	got, ok := h.Find(first.Digest())
	require.True(t, ok)
	assert.Equal(t, "old", got.Content)

	// the latest one is served from the index
	last := Event{Kind: EventSend, From: "a", To: "b", Time: 9}
	got, ok = h.Find(last.Digest())
	require.True(t, ok)
	assert.Equal(t, last, got)

	_, ok = h.Find(0xdeadbeef)
	assert.False(t, ok)
}

func TestHistoryFeed(t *testing.T) {
	h := NewHistory(0)
	h.Append(Event{Kind: EventBroadcast, From: "a", Seq: 1, Content: "one"})
	h.Append(Event{Kind: EventDeliver, From: "b", Seq: 1, Content: "two"})

	recs, err := h.Feed()
	require.Nil(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, byte('E'), rec[0]&0xdf) // TLV 'E' record, long or short form
		assert.NotEmpty(t, rec)
	}
}

func TestEventBytesVariants(t *testing.T) {
	events := []Event{
		{Kind: EventSend, From: "a", To: "b", Time: 3, Content: "scalar"},
		{Kind: EventSend, From: "a", To: "b", Vec: clock.VV{"a": 1}, Content: "vector"},
		{Kind: EventBroadcast, From: "a", Seq: 7, Content: "fifo"},
	}
	seen := map[uint64]bool{}
	for _, e := range events {
		assert.NotEmpty(t, e.Bytes())
		assert.False(t, seen[e.Digest()])
		seen[e.Digest()] = true
	}
}
