package inspect

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/eunmann/splat4d/pkg/format"
)

// SliceOptions control slice reconstruction.
type SliceOptions struct {
	// Active limits coloring to these palette entries; other cells are
	// black. Nil colors every entry.
	Active map[uint32]bool
}

// ReconstructSlice renders the width×height plane at frame t, depth z. Each
// pixel is the referenced entry's rgb scaled by its alpha and clipped to
// [0, 1]. Colors stored on a 0-255 scale (any channel above 1) are
// normalized first, as is an alpha above 1. Cell row y=0 is the bottom row
// of the image.
func ReconstructSlice(v *format.Video, t, z uint32, opts SliceOptions) (*image.NRGBA, error) {
	if v == nil {
		return nil, format.ErrNilVideo
	}
	h := v.Header
	if t >= h.Frames || z >= h.Depth {
		return nil, fmt.Errorf("%w: slice (t=%d, z=%d) outside %d frames × %d depth",
			format.ErrBoundsCheck, t, z, h.Frames, h.Depth)
	}

	scale := paletteScale(v.Palette)
	colors := make([]color.NRGBA, len(v.Palette))
	for i, s := range v.Palette {
		if opts.Active != nil && !opts.Active[uint32(i)] {
			colors[i] = color.NRGBA{A: 0xFF}
			continue
		}
		a := s.Alpha
		if a > 1 {
			a /= 255
		}
		colors[i] = color.NRGBA{
			R: unit8(s.R / scale * a),
			G: unit8(s.G / scale * a),
			B: unit8(s.B / scale * a),
			A: 0xFF,
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(h.Width), int(h.Height)))
	for y := uint32(0); y < h.Height; y++ {
		base, err := v.CellIndex(0, y, z, t)
		if err != nil {
			return nil, err
		}
		for x := uint32(0); x < h.Width; x++ {
			ref := v.Index[base+uint64(x)]
			if ref >= uint64(len(colors)) {
				return nil, fmt.Errorf("%w: cell (%d, %d, %d, %d) references %d, palette has %d",
					format.ErrBoundsCheck, x, y, z, t, ref, len(colors))
			}
			img.SetNRGBA(int(x), int(h.Height-1-y), colors[ref])
		}
	}
	return img, nil
}

// IndexHeatmap renders the palette reference of each cell in the slice as a
// gray level, 0 for entry 0 and 255 for the last entry. Rows are laid out as
// in ReconstructSlice.
func IndexHeatmap(v *format.Video, t, z uint32) (*image.Gray, error) {
	if v == nil {
		return nil, format.ErrNilVideo
	}
	h := v.Header
	if t >= h.Frames || z >= h.Depth {
		return nil, fmt.Errorf("%w: slice (t=%d, z=%d) outside %d frames × %d depth",
			format.ErrBoundsCheck, t, z, h.Frames, h.Depth)
	}

	top := float64(max(len(v.Palette)-1, 1))
	img := image.NewGray(image.Rect(0, 0, int(h.Width), int(h.Height)))
	for y := uint32(0); y < h.Height; y++ {
		base, err := v.CellIndex(0, y, z, t)
		if err != nil {
			return nil, err
		}
		for x := uint32(0); x < h.Width; x++ {
			ref := min(float64(v.Index[base+uint64(x)]), top)
			img.SetGray(int(x), int(h.Height-1-y), color.Gray{Y: uint8(math.Round(ref / top * 255))})
		}
	}
	return img, nil
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// paletteScale is 255 when any color channel exceeds 1, else 1.
func paletteScale(palette []format.Splat) float32 {
	for _, s := range palette {
		if s.R > 1 || s.G > 1 || s.B > 1 {
			return 255
		}
	}
	return 1
}

func unit8(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xFF
	}
	return uint8(math.Round(float64(v) * 255))
}
