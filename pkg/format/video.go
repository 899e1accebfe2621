package format

import (
	"fmt"

	"github.com/eunmann/splat4d/pkg/membudget"
)

// Video is a decoded or assembled container. It exclusively owns its palette
// and index buffers.
type Video struct {
	Header  Header
	Palette []Splat
	Index   []uint64
	Footer  Footer

	budget   *membudget.Budget
	reserved uint64
}

// NewVideo assembles a video from in-memory sections. The footer is derived
// from h and its checksum is computed from the payload. Section lengths must
// match the header exactly.
func NewVideo(h Header, palette []Splat, index []uint64) (*Video, error) {
	v := &Video{
		Header:  h,
		Palette: palette,
		Index:   index,
		Footer:  MakeFooter(h),
	}
	sum, err := Checksum(v, DefaultChunkSize)
	if err != nil {
		return nil, fmt.Errorf("new video: %w", err)
	}
	v.Footer.Checksum = sum
	return v, nil
}

// Release drops the palette and index buffers and returns their reservation
// to the decode budget. It is safe to call more than once.
func (v *Video) Release() {
	if v == nil {
		return
	}
	v.Palette = nil
	v.Index = nil
	if v.budget != nil && v.reserved > 0 {
		v.budget.Release(v.reserved)
	}
	v.budget = nil
	v.reserved = 0
}

// Cells returns the number of index cells implied by the header.
func (v *Video) Cells() uint64 {
	return TotalIndices(v.Header)
}

// CellIndex returns the flat index position of (x, y, z, t). x varies
// fastest, then y, then z, then t.
func (v *Video) CellIndex(x, y, z, t uint32) (uint64, error) {
	h := v.Header
	if x >= h.Width || y >= h.Height || z >= h.Depth || t >= h.Frames {
		return 0, fmt.Errorf("%w: cell (%d,%d,%d,%d) outside %dx%dx%dx%d",
			ErrBoundsCheck, x, y, z, t, h.Width, h.Height, h.Depth, h.Frames)
	}
	pos := ((uint64(t)*uint64(h.Depth)+uint64(z))*uint64(h.Height)+uint64(y))*uint64(h.Width) + uint64(x)
	if pos >= uint64(len(v.Index)) {
		return 0, fmt.Errorf("%w: cell %d, index has %d entries", ErrBoundsCheck, pos, len(v.Index))
	}
	return pos, nil
}

// At resolves the splat referenced by cell (x, y, z, t).
func (v *Video) At(x, y, z, t uint32) (Splat, error) {
	pos, err := v.CellIndex(x, y, z, t)
	if err != nil {
		return Splat{}, err
	}
	ref := v.Index[pos]
	if ref >= uint64(len(v.Palette)) {
		return Splat{}, fmt.Errorf("%w: cell %d references palette entry %d of %d",
			ErrBoundsCheck, pos, ref, len(v.Palette))
	}
	return v.Palette[ref], nil
}
