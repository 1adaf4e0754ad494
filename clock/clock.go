package clock

// ProcessID identifies a process; stable for the process's lifetime.
type ProcessID string

// Scalar is a Lamport counter, a monotonic witness of potential causal
// order: if event a happened before event b then stamp(a) < stamp(b).
// The converse does not hold, scalar stamps cannot prove concurrency.
type Scalar uint64

// Tick advances local time by one; returns the new value.
func (t *Scalar) Tick() Scalar {
	*t++
	return *t
}

// Witness folds in a remote stamp: local = max(local, remote) + 1.
// Receiving a causally-earlier message still moves local time strictly
// past it.
func (t *Scalar) Witness(remote Scalar) Scalar {
	if remote > *t {
		*t = remote
	}
	*t++
	return *t
}
