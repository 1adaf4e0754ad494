package clock

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/learn-decentralized-systems/toytlv"
)

// VV is a version vector: the progress made by each known process.
// Missing entries read as zero, so vectors of different dimensions
// compare cleanly while membership grows.
type VV map[ProcessID]uint64

func (vv VV) Get(id ProcessID) (pro uint64) {
	return vv[id]
}

// Set the progress for the specified process
func (vv VV) Set(id ProcessID, pro uint64) {
	vv[id] = pro
}

// Put the id-pro pair to the VV, returns whether it was
// unseen (i.e. made any difference)
func (vv VV) Put(id ProcessID, pro uint64) bool {
	pre, ok := vv[id]
	if ok && pre >= pro {
		return false
	}
	vv[id] = pro
	return true
}

// Tick increments the component owned by id, returns the new value.
func (vv VV) Tick(id ProcessID) uint64 {
	vv[id]++
	return vv[id]
}

// Covers is true when every component of b is matched or exceeded here
// ("succeeds or equals" in the happened-before partial order).
func (vv VV) Covers(b VV) bool {
	for id, pro := range b {
		if pro > vv[id] {
			return false
		}
	}
	return true
}

// CoveredBy is true when b matches or exceeds every component here
// ("precedes or equals").
func (vv VV) CoveredBy(b VV) bool {
	return b.Covers(vv)
}

// ConcurrentWith is true when neither vector covers the other. Equal
// vectors are never concurrent; the relation is symmetric.
func (vv VV) ConcurrentWith(b VV) bool {
	return !vv.Covers(b) && !b.Covers(vv)
}

// Eq compares over the union of key sets; explicit zero entries do not
// break equality.
func (vv VV) Eq(b VV) bool {
	return vv.Covers(b) && b.Covers(vv)
}

// Merge folds b in, component-wise max over the union of keys. The
// result is the least upper bound: it covers both inputs.
func (vv VV) Merge(b VV) {
	for id, pro := range b {
		if pro > vv[id] {
			vv[id] = pro
		}
	}
}

func (vv VV) Copy() VV {
	ret := make(VV, len(vv))
	for id, pro := range vv {
		ret[id] = pro
	}
	return ret
}

func (vv VV) IDs() []ProcessID {
	ids := make([]ProcessID, 0, len(vv))
	for id := range vv {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (vv VV) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range vv.IDs() {
		if i > 0 {
			b.WriteByte(',')
		}
		_, _ = fmt.Fprintf(&b, "%s:%d", id, vv[id])
	}
	b.WriteByte('}')
	return b.String()
}

var ErrBadVRecord = errors.New("bad Vv record")

// TLV Vv record; every entry is an 'I' process id and an 'N' counter
func (vv VV) Bytes() (ret []byte) {
	bm, ret := toytlv.OpenHeader(ret, 'V')
	for _, id := range vv.IDs() {
		ret = toytlv.Append(ret, 'V',
			toytlv.Record('I', []byte(id)),
			toytlv.Record('N', ZipUint64(vv[id])),
		)
	}
	toytlv.CloseHeader(ret, bm)
	return
}

// consumes: Vv record
// Entries already covered are ignored, so loading merges.
func (vv VV) LoadBytes(rec []byte) error {
	lit, body, rest, err := toytlv.TakeAnyWary(rec)
	if err != nil {
		return err
	}
	if len(rest) != 0 || lit != 'V' {
		return ErrBadVRecord
	}
	for len(body) > 0 {
		var pair []byte
		pair, body, err = toytlv.TakeWary('V', body)
		if err != nil {
			return err
		}
		idb, tail, err := toytlv.TakeWary('I', pair)
		if err != nil {
			return err
		}
		prob, tail, err := toytlv.TakeWary('N', tail)
		if err != nil {
			return err
		}
		if len(tail) != 0 {
			return ErrBadVRecord
		}
		vv.Put(ProcessID(idb), UnzipUint64(prob))
	}
	return nil
}

// ZipUint64 packs a uint64 into the shortest little-endian byte string.
func ZipUint64(v uint64) []byte {
	buf := [8]byte{}
	i := 0
	for v > 0 {
		buf[i] = uint8(v)
		v >>= 8
		i++
	}
	return buf[0:i]
}

func UnzipUint64(zip []byte) (v uint64) {
	for i := len(zip) - 1; i >= 0; i-- {
		v <<= 8
		v |= uint64(zip[i])
	}
	return
}
