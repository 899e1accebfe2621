package inspect

import (
	"fmt"
	"sort"

	"github.com/eunmann/splat4d/pkg/format"
)

// Usage is how many cells reference one palette entry.
type Usage struct {
	Entry uint32
	Cells uint64
}

// PaletteUsage counts references per palette entry, most used first. Ties
// keep palette order. Entries nothing references are included with zero
// cells. An index entry outside the palette is an error.
func PaletteUsage(v *format.Video) ([]Usage, error) {
	if v == nil {
		return nil, format.ErrNilVideo
	}
	counts := make([]uint64, len(v.Palette))
	for i, ref := range v.Index {
		if ref >= uint64(len(counts)) {
			return nil, fmt.Errorf("%w: index entry %d references %d, palette has %d",
				format.ErrBoundsCheck, i, ref, len(counts))
		}
		counts[ref]++
	}

	usage := make([]Usage, len(counts))
	for i, c := range counts {
		usage[i] = Usage{Entry: uint32(i), Cells: c}
	}
	sort.SliceStable(usage, func(i, j int) bool {
		return usage[i].Cells > usage[j].Cells
	})
	return usage, nil
}

// TopEntries returns the palette positions of the n most used entries.
func TopEntries(usage []Usage, n int) map[uint32]bool {
	n = min(n, len(usage))
	top := make(map[uint32]bool, n)
	for _, u := range usage[:n] {
		top[u.Entry] = true
	}
	return top
}
