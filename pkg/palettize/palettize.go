// Package palettize turns a dense per-cell splat volume into the palette and
// index sections of a container.
package palettize

import (
	"errors"
	"fmt"
	"math"

	"github.com/eunmann/splat4d/pkg/format"
)

var (
	// ErrPaletteOverflow is returned when the volume holds more distinct
	// splats than the palette limit.
	ErrPaletteOverflow = errors.New("palette overflow")
	// ErrUnknownSplat is returned by MapCells for a cell absent from the
	// palette.
	ErrUnknownSplat = errors.New("splat not in palette")
	// ErrCellCount is returned when the cell count does not match the
	// dimensions.
	ErrCellCount = errors.New("cell count mismatch")
)

// Dims are the grid dimensions of a volume.
type Dims struct {
	Width, Height, Depth, Frames uint32
}

// Cells returns the checked cell count.
func (d Dims) Cells() (uint64, error) {
	h := format.MakeHeader(d.Width, d.Height, d.Depth, d.Frames, 1, 0)
	return format.TotalIndicesChecked(h)
}

// Options bound palette construction.
type Options struct {
	// MaxPalette caps the number of distinct splats. Zero means the format
	// limit of 2^32-1.
	MaxPalette uint32
}

// Result is a palette and the index referencing it.
type Result struct {
	Dims    Dims
	Palette []format.Splat
	Index   []uint64
}

// Build deduplicates cells bitwise. Palette order is order of first
// appearance, so the same volume always yields the same container.
func Build(cells []format.Splat, d Dims, opts Options) (*Result, error) {
	n, err := d.Cells()
	if err != nil {
		return nil, fmt.Errorf("palettize: %w", err)
	}
	if uint64(len(cells)) != n {
		return nil, fmt.Errorf("palettize: %w: have %d cells, dimensions need %d", ErrCellCount, len(cells), n)
	}

	limit := uint64(opts.MaxPalette)
	if limit == 0 {
		limit = math.MaxUint32
	}

	positions := make(map[[12]uint32]uint64)
	r := &Result{Dims: d, Index: make([]uint64, len(cells))}
	for i, s := range cells {
		key := s.Bits()
		pos, ok := positions[key]
		if !ok {
			pos = uint64(len(r.Palette))
			if pos >= limit {
				return nil, fmt.Errorf("palettize: %w: more than %d distinct splats", ErrPaletteOverflow, limit)
			}
			positions[key] = pos
			r.Palette = append(r.Palette, s)
		}
		r.Index[i] = pos
	}
	return r, nil
}

// Video assembles a container from the result.
func (r *Result) Video(flags format.Flags) (*format.Video, error) {
	h := format.MakeHeader(r.Dims.Width, r.Dims.Height, r.Dims.Depth, r.Dims.Frames,
		uint32(len(r.Palette)), flags)
	return format.NewVideo(h, r.Palette, r.Index)
}

// MapCells resolves each cell against an existing palette.
func MapCells(palette []format.Splat, cells []format.Splat) ([]uint64, error) {
	lookup, err := format.NewPaletteLookup(palette)
	if err != nil {
		return nil, fmt.Errorf("map cells: %w", err)
	}

	index := make([]uint64, len(cells))
	for i, s := range cells {
		pos, ok := lookup.Lookup(s)
		if !ok {
			return nil, fmt.Errorf("map cells: cell %d: %w", i, ErrUnknownSplat)
		}
		index[i] = uint64(pos)
	}
	return index, nil
}
