package format

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/relab/bbhash"
)

// PaletteLookup maps a splat back to its palette position using a minimal
// perfect hash over the distinct palette entries. Matches are confirmed
// bit-for-bit, so a splat that is not in the palette is never reported as
// found.
//
// Two distinct splats can share a 64-bit key; the MPHF cannot hold
// duplicate keys, so such a palette is served from an exact map instead.
//
// PaletteLookup is read-only after construction and safe for concurrent use.
type PaletteLookup struct {
	mph       *bbhash.BBHash2
	positions []uint32
	bits      [][12]uint32
	exact     map[[12]uint32]uint32
}

// keyOf hashes splat bits into an MPHF key.
var keyOf = splatKey

// NewPaletteLookup builds a lookup over palette. When the palette holds the
// same splat more than once, the first position wins.
func NewPaletteLookup(palette []Splat) (*PaletteLookup, error) {
	if len(palette) == 0 {
		return &PaletteLookup{}, nil
	}

	seen := make(map[[12]uint32]uint32, len(palette))
	keySeen := make(map[uint64]struct{}, len(palette))
	keys := make([]uint64, 0, len(palette))
	first := make([]uint32, 0, len(palette))
	collided := false
	for i, s := range palette {
		b := s.Bits()
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = uint32(i)
		key := keyOf(b)
		if _, dup := keySeen[key]; dup {
			collided = true
		}
		keySeen[key] = struct{}{}
		keys = append(keys, key)
		first = append(first, uint32(i))
	}
	if collided {
		return &PaletteLookup{exact: seen}, nil
	}

	// Build MPHF with gamma=2.0 (good space/time tradeoff)
	mph, err := bbhash.New(keys, bbhash.Gamma(2.0))
	if err != nil {
		return nil, fmt.Errorf("build palette MPHF: %w", err)
	}

	// BBHash returns 1-indexed values.
	l := &PaletteLookup{
		mph:       mph,
		positions: make([]uint32, len(keys)),
		bits:      make([][12]uint32, len(keys)),
	}
	filled := make([]bool, len(keys))
	for i, key := range keys {
		slot := mph.Find(key)
		if slot == 0 || slot > uint64(len(keys)) {
			return nil, fmt.Errorf("palette MPHF lookup failed for entry %d", first[i])
		}
		if filled[slot-1] {
			return nil, fmt.Errorf("palette entry %d collides with entry %d", first[i], l.positions[slot-1])
		}
		filled[slot-1] = true
		l.positions[slot-1] = first[i]
		l.bits[slot-1] = palette[first[i]].Bits()
	}
	return l, nil
}

// Len returns the number of distinct splats.
func (l *PaletteLookup) Len() int {
	if l.exact != nil {
		return len(l.exact)
	}
	return len(l.positions)
}

// Lookup returns the palette position of s, or ok=false if s is not in the
// palette.
func (l *PaletteLookup) Lookup(s Splat) (pos uint32, ok bool) {
	b := s.Bits()
	if l.exact != nil {
		pos, ok = l.exact[b]
		return pos, ok
	}
	if l.mph == nil {
		return 0, false
	}
	slot := l.mph.Find(keyOf(b))
	if slot == 0 || slot > uint64(len(l.positions)) {
		return 0, false
	}
	if l.bits[slot-1] != b {
		return 0, false
	}
	return l.positions[slot-1], true
}

// splatKey hashes the raw bits of a splat with FNV-1a.
func splatKey(b [12]uint32) uint64 {
	var buf [SplatSize]byte
	for i, v := range b {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	h := fnv.New64a()
	h.Write(buf[:])
	return h.Sum64()
}
