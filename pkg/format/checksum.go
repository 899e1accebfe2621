package format

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// DefaultChunkSize is the streaming chunk used when a caller passes 0.
const DefaultChunkSize = 32 << 10

func normalizeChunk(chunk int) int {
	if chunk <= 0 {
		return DefaultChunkSize
	}
	return chunk
}

// CRC32 returns the IEEE CRC32 of data (reflected 0xEDB88320, pre and post
// inverted).
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// StreamPayload feeds header, palette and index bytes of v to fn, in order,
// in pieces of at most chunk bytes. The footer is not included. fn must not
// retain the slice.
func StreamPayload(v *Video, chunk int, fn func([]byte) error) error {
	if v == nil {
		return ErrNilVideo
	}
	if uint64(len(v.Palette)) != uint64(v.Header.PaletteSize) {
		return fmt.Errorf("%w: palette has %d splats, header says %d",
			ErrStructure, len(v.Palette), v.Header.PaletteSize)
	}
	total, err := indexCount(v.Header)
	if err != nil {
		return err
	}
	if uint64(len(v.Index)) != total {
		return fmt.Errorf("%w: index has %d entries, header says %d",
			ErrStructure, len(v.Index), total)
	}

	s := newChunkSink(chunk, fn)
	var hdr [HeaderSize]byte
	putHeader(hdr[:], v.Header)
	if err := s.write(hdr[:]); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}
	if err := s.splats(v.Palette); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}
	if err := s.indices(v.Index); err != nil {
		return err
	}
	return s.flush()
}

// Checksum computes the CRC32 of v's payload from memory.
func Checksum(v *Video, chunk int) (uint32, error) {
	h := crc32.NewIEEE()
	err := StreamPayload(v, chunk, func(p []byte) error {
		h.Write(p)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("checksum: %w", err)
	}
	return h.Sum32(), nil
}

// chunkSink batches small writes into chunks of a fixed size.
type chunkSink struct {
	buf []byte
	n   int
	fn  func([]byte) error
}

func newChunkSink(chunk int, fn func([]byte) error) *chunkSink {
	return &chunkSink{buf: make([]byte, normalizeChunk(chunk)), fn: fn}
}

func (s *chunkSink) write(p []byte) error {
	for len(p) > 0 {
		c := copy(s.buf[s.n:], p)
		s.n += c
		p = p[c:]
		if s.n == len(s.buf) {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *chunkSink) flush() error {
	if s.n == 0 {
		return nil
	}
	err := s.fn(s.buf[:s.n])
	s.n = 0
	return err
}

func (s *chunkSink) splats(palette []Splat) error {
	var rec [SplatSize]byte
	for _, sp := range palette {
		PutSplat(rec[:], sp)
		if err := s.write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}

func (s *chunkSink) indices(index []uint64) error {
	var rec [IndexEntrySize]byte
	for _, v := range index {
		binary.LittleEndian.PutUint64(rec[:], v)
		if err := s.write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}
