package inspect

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/eunmann/splat4d/pkg/format"
	"github.com/eunmann/splat4d/pkg/humanfmt"
)

// SummaryOptions control how much of a video WriteSummary prints.
type SummaryOptions struct {
	// Palette prints every palette entry.
	Palette bool
	// MaxIndices is how many leading index entries to print. Zero prints
	// none; a negative value prints all.
	MaxIndices int
}

// DefaultSummaryOptions prints the palette and the first eight indices.
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{Palette: true, MaxIndices: 8}
}

// WriteSummary prints the header, decoded flags, palette, leading indices
// and footer of v.
func WriteSummary(w io.Writer, v *format.Video, opts SummaryOptions) error {
	if v == nil {
		return format.ErrNilVideo
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	p := &printer{w: tw}

	h := v.Header
	p.line("header")
	p.line("  magic\t%q", h.Magic[:])
	p.line("  version\t%d.%d.%d.%d", h.Version[0], h.Version[1], h.Version[2], h.Version[3])
	p.line("  dimensions\t%s", humanfmt.Dims(h.Width, h.Height, h.Depth, h.Frames))
	p.line("  palette size\t%d", h.PaletteSize)
	p.line("  cells\t%d", format.TotalIndices(h))
	writeFlags(p, h.Flags)

	if opts.Palette {
		p.line("palette (%d)", len(v.Palette))
		for i, s := range v.Palette {
			p.line("  [%d]\tmu (%.2f, %.2f, %.2f, %.2f)\tsigma (%.2f, %.2f, %.2f, %.2f)\trgba (%.2f, %.2f, %.2f, %.2f)",
				i, s.MuX, s.MuY, s.MuZ, s.MuT, s.SigmaX, s.SigmaY, s.SigmaZ, s.SigmaT,
				s.R, s.G, s.B, s.Alpha)
		}
	}

	if opts.MaxIndices != 0 {
		n := len(v.Index)
		if opts.MaxIndices > 0 {
			n = min(n, opts.MaxIndices)
		}
		p.line("index (%d)", len(v.Index))
		for i := 0; i < n; i++ {
			p.line("  [%d]\t%d", i, v.Index[i])
		}
		if rest := len(v.Index) - n; rest > 0 {
			p.line("  ... (%d more)", rest)
		}
	}

	f := v.Footer
	p.line("footer")
	p.line("  idxoffset\t%d", f.IndexOffset)
	p.line("  checksum\t0x%08X", f.Checksum)
	p.line("  end\t%q", f.End[:])

	if p.err != nil {
		return p.err
	}
	return tw.Flush()
}

func writeFlags(p *printer, f format.Flags) {
	p.line("  flags\t0x%08X", uint32(f))
	p.line("    endian\t%s", EndianName(f.Endian()))
	p.line("    sort\t%s", SortedName(f.Sorted()))
	p.line("    precision\t%s", PrecisionName(f.Precision()))
	p.line("    compression\t%s", CompressionName(f.Compression()))
	p.line("    index width\t%s", IndexWidthName(f.IndexWidth()))
	p.line("    shape\t%s", ShapeName(f.SplatShape()))
	p.line("    color space\t%s", ColorSpaceName(f.ColorSpace()))
	p.line("    interp\t%s", InterpolationName(f.Interpolation()))
	p.line("    reserved\t0x%X", f.Reserved())
	p.line("    metadata\t0x%02X", f.Metadata())
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(tmpl string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, tmpl+"\n", args...)
}
