package rawio

import (
	"fmt"

	"github.com/eunmann/splat4d/pkg/format"
	"github.com/parquet-go/parquet-go"
)

// splatRow is the parquet schema for a palette entry.
type splatRow struct {
	MuX    float32 `parquet:"mu_x"`
	SigmaX float32 `parquet:"sigma_x"`
	MuY    float32 `parquet:"mu_y"`
	SigmaY float32 `parquet:"sigma_y"`
	MuZ    float32 `parquet:"mu_z"`
	SigmaZ float32 `parquet:"sigma_z"`
	MuT    float32 `parquet:"mu_t"`
	SigmaT float32 `parquet:"sigma_t"`
	R      float32 `parquet:"r"`
	G      float32 `parquet:"g"`
	B      float32 `parquet:"b"`
	Alpha  float32 `parquet:"alpha"`
}

// indexRow is the parquet schema for one cell's palette reference.
type indexRow struct {
	Ref uint64 `parquet:"ref"`
}

func writePaletteParquet(path string, palette []format.Splat) error {
	rows := make([]splatRow, len(palette))
	for i, s := range palette {
		rows[i] = splatRow(s)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet palette: %w", err)
	}
	return nil
}

func readPaletteParquet(path string) ([]format.Splat, error) {
	rows, err := parquet.ReadFile[splatRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet palette: %w", err)
	}
	palette := make([]format.Splat, len(rows))
	for i, r := range rows {
		palette[i] = format.Splat(r)
	}
	return palette, nil
}

func writeIndexParquet(path string, index []uint64) error {
	rows := make([]indexRow, len(index))
	for i, ref := range index {
		rows[i].Ref = ref
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet index: %w", err)
	}
	return nil
}

func readIndexParquet(path string) ([]uint64, error) {
	rows, err := parquet.ReadFile[indexRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet index: %w", err)
	}
	index := make([]uint64, len(rows))
	for i, r := range rows {
		index[i] = r.Ref
	}
	return index, nil
}
