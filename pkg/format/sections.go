package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"slices"
)

// checkedMul multiplies a and b, failing on 64-bit overflow.
func checkedMul(a, b uint64, what string) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %s: %d * %d", ErrSizeOverflow, what, a, b)
	}
	return lo, nil
}

// addressable rejects byte counts that cannot back a single allocation.
func addressable(n uint64, what string) error {
	if n > math.MaxInt {
		return fmt.Errorf("%w: %s: %d bytes", ErrSizeOverflow, what, n)
	}
	return nil
}

// PaletteBytes returns count * SplatSize, checked.
func PaletteBytes(count uint32) (uint64, error) {
	n, err := checkedMul(uint64(count), SplatSize, "palette bytes")
	if err != nil {
		return 0, err
	}
	if err := addressable(n, "palette bytes"); err != nil {
		return 0, err
	}
	return n, nil
}

// TotalIndices returns width*height*depth*frames without overflow checks.
// Use TotalIndicesChecked for untrusted headers.
func TotalIndices(h Header) uint64 {
	return uint64(h.Width) * uint64(h.Height) * uint64(h.Depth) * uint64(h.Frames)
}

// indexCount is the overflow-checked cell count. Zero dimensions give zero.
func indexCount(h Header) (uint64, error) {
	return checkedMul(uint64(h.Width)*uint64(h.Height), uint64(h.Depth)*uint64(h.Frames), "total indices")
}

// TotalIndicesChecked returns the number of index cells, failing if any
// dimension is zero or any partial product overflows.
func TotalIndicesChecked(h Header) (uint64, error) {
	dims := []struct {
		name string
		v    uint32
	}{
		{"width", h.Width},
		{"height", h.Height},
		{"depth", h.Depth},
		{"frames", h.Frames},
	}
	acc := uint64(1)
	for _, d := range dims {
		if d.v == 0 {
			return 0, fmt.Errorf("%w: %s", ErrZeroDimension, d.name)
		}
		var err error
		acc, err = checkedMul(acc, uint64(d.v), "total indices")
		if err != nil {
			return 0, err
		}
	}
	return acc, nil
}

// IndexBytes returns total * IndexEntrySize, checked.
func IndexBytes(total uint64) (uint64, error) {
	n, err := checkedMul(total, IndexEntrySize, "index bytes")
	if err != nil {
		return 0, err
	}
	if err := addressable(n, "index bytes"); err != nil {
		return 0, err
	}
	return n, nil
}

// WritePalette writes the first count splats of palette.
func WritePalette(w io.Writer, palette []Splat, count uint32) error {
	return writePalette(w, palette, count, DefaultChunkSize)
}

func writePalette(w io.Writer, palette []Splat, count uint32, chunk int) error {
	if len(palette) == 0 {
		return errors.New("write palette: no palette")
	}
	if count == 0 {
		return fmt.Errorf("write palette: %w: palette size", ErrZeroDimension)
	}
	if uint64(len(palette)) < uint64(count) {
		return fmt.Errorf("%w: write palette: have %d splats, need %d", ErrStructure, len(palette), count)
	}
	s := newChunkSink(chunk, func(p []byte) error { return writeFull(w, p, "palette") })
	if err := s.splats(palette[:count]); err != nil {
		return err
	}
	return s.flush()
}

// ReadPalette reads count splats. Nothing is allocated if the size check
// fails, and the partially filled buffer is dropped on a short read.
func ReadPalette(r io.Reader, count uint32) ([]Splat, error) {
	return readPalette(r, count, DefaultChunkSize)
}

func readPalette(r io.Reader, count uint32, chunk int) ([]Splat, error) {
	if count == 0 {
		return nil, fmt.Errorf("read palette: %w: palette size", ErrZeroDimension)
	}
	if _, err := PaletteBytes(count); err != nil {
		return nil, err
	}
	palette, err := readRecords(r, uint64(count), SplatSize, chunk, DecodeSplat)
	if err != nil {
		return nil, shortTransfer("read palette", err)
	}
	return palette, nil
}

// WriteIndex writes the first total entries of index.
func WriteIndex(w io.Writer, index []uint64, total uint64) error {
	return writeIndex(w, index, total, DefaultChunkSize)
}

func writeIndex(w io.Writer, index []uint64, total uint64, chunk int) error {
	if len(index) == 0 {
		return errors.New("write index: no index")
	}
	if total == 0 {
		return fmt.Errorf("write index: %w: index count", ErrZeroDimension)
	}
	if uint64(len(index)) < total {
		return fmt.Errorf("%w: write index: have %d entries, need %d", ErrStructure, len(index), total)
	}
	s := newChunkSink(chunk, func(p []byte) error { return writeFull(w, p, "index") })
	if err := s.indices(index[:total]); err != nil {
		return err
	}
	return s.flush()
}

// ReadIndex reads total index entries with the same checks as ReadPalette.
func ReadIndex(r io.Reader, total uint64) ([]uint64, error) {
	return readIndex(r, total, DefaultChunkSize)
}

func readIndex(r io.Reader, total uint64, chunk int) ([]uint64, error) {
	if total == 0 {
		return nil, fmt.Errorf("read index: %w: index count", ErrZeroDimension)
	}
	if _, err := IndexBytes(total); err != nil {
		return nil, err
	}
	index, err := readRecords(r, total, IndexEntrySize, chunk, binary.LittleEndian.Uint64)
	if err != nil {
		return nil, shortTransfer("read index", err)
	}
	return index, nil
}

// initialRecords caps the capacity taken on trust from a header count.
const initialRecords = 1 << 16

// readRecords reads n fixed-size records, at most one chunk of whole records
// at a time. The result grows with the data actually read, doubling up to n,
// so a header that overstates the stream fails on the short read instead of
// on the allocation.
func readRecords[T any](r io.Reader, n uint64, size, chunk int, decode func([]byte) T) ([]T, error) {
	per := uint64(max(normalizeChunk(chunk)/size, 1))
	out := make([]T, 0, min(n, initialRecords))
	buf := make([]byte, min(per, n)*uint64(size))
	for read := uint64(0); read < n; {
		k := min(per, n-read)
		if free := uint64(cap(out) - len(out)); free < k {
			grow := min(max(uint64(cap(out)), k), n-read)
			out = slices.Grow(out, int(grow))
		}
		b := buf[:k*uint64(size)]
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		for j := 0; j < int(k); j++ {
			out = append(out, decode(b[j*size:(j+1)*size]))
		}
		read += k
	}
	return out, nil
}
