// Package causal models causality tracking among cooperating processes
// of a message-passing system, under three ordering disciplines: scalar
// Lamport clocks, vector clocks, and per-sender sequence-numbered FIFO
// broadcast. Delivery is a synchronous call-through: there is no
// transport, persistence or failure model, only the state transitions
// of the algorithms themselves.
package causal

import (
	"errors"
	"log/slog"

	"github.com/drpcorg/causal/clock"
	"github.com/drpcorg/causal/utils"
	"github.com/google/uuid"
)

var ErrProcessKnown = errors.New("causal: process already registered")
var ErrProcessUnknown = errors.New("causal: unknown process")
var ErrAddressMismatch = errors.New("causal: message addressed to another process")

const defaultHistoryIndex = 1024

type Options struct {
	Logger utils.Logger

	// HistoryIndexSize caps the per-process digest index.
	HistoryIndexSize int
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.HistoryIndexSize <= 0 {
		o.HistoryIndexSize = defaultHistoryIndex
	}
}

// NewProcessID mints a fresh id for callers that do not pick their own.
func NewProcessID() clock.ProcessID {
	return clock.ProcessID(uuid.Must(uuid.NewV7()).String())
}
