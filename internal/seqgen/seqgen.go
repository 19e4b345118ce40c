// Package seqgen implements the monotonic sequence counter used to mint
// opaque backing filenames, persisted through internal/store.
package seqgen

import (
	"encoding/binary"
	"fmt"

	"github.com/santileortiz/dhtfs/internal/store"
)

// Generator wraps a dedicated store.Adapter holding nothing but an 8-byte
// big-endian counter.
type Generator struct {
	adapter *store.Adapter
}

// New wraps adapter, which must be dedicated to the sequence counter (the
// ".seqcounter" backing file).
func New(adapter *store.Adapter) *Generator {
	return &Generator{adapter: adapter}
}

// Next acquires the write lock, reads the current counter value (0 on fresh
// setup), writes value+1, and returns value+1.
func (g *Generator) Next() (uint64, error) {
	status, raw, err := g.adapter.LoadRW()
	if err != nil {
		return 0, err
	}

	var current uint64
	switch status {
	case store.StatusAbsent:
		current = 0
	case store.StatusOK:
		if len(raw) != 8 {
			g.adapter.Abort()
			return 0, fmt.Errorf("seqgen: corrupt counter record of length %d", len(raw))
		}
		current = binary.BigEndian.Uint64(raw)
	default:
		g.adapter.Abort()
		return 0, fmt.Errorf("seqgen: unreadable counter")
	}

	next := current + 1

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := g.adapter.Store(buf); err != nil {
		return 0, err
	}

	return next, nil
}

// BackingName formats a sequence value as the reserved opaque filename
// "f_<32-hex-digits-zero-padded>".
func BackingName(seq uint64) string {
	return fmt.Sprintf("f_%032x", seq)
}
