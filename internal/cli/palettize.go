package cli

import (
	"fmt"
	"time"

	"github.com/eunmann/splat4d/internal/logctx"
	"github.com/eunmann/splat4d/pkg/format"
	"github.com/eunmann/splat4d/pkg/logging"
	"github.com/eunmann/splat4d/pkg/palettize"
	"github.com/eunmann/splat4d/pkg/rawio"
	"github.com/spf13/cobra"
)

type palettizeOptions struct {
	dims       dimFlags
	cells      string
	palette    string
	output     string
	maxPalette uint32
	flags      string
}

func newPalettizeCmd(a *app) *cobra.Command {
	o := &palettizeOptions{}
	cmd := &cobra.Command{
		Use:   "palettize",
		Short: "Build a container from a dense per-cell splat volume",
		Long: `Read one splat per cell (x fastest, then y, z, t) and write a container.
Identical splats share a palette entry, in order of first appearance. With
--palette the cells are mapped onto that fixed palette instead, and any cell
not found in it is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPalettize(cmd, a, o)
		},
	}
	o.dims.register(cmd)
	cmd.Flags().StringVar(&o.cells, "cells", "", "per-cell splat file (.bin, .zst or .parquet)")
	cmd.Flags().StringVar(&o.palette, "palette", "", "map onto this fixed palette")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output .4spl path")
	cmd.Flags().Uint32Var(&o.maxPalette, "max-palette", 0, "fail if more distinct splats than this")
	cmd.Flags().StringVar(&o.flags, "flags", "", "raw header flags word, e.g. 0x4")
	_ = cmd.MarkFlagRequired("cells")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runPalettize(cmd *cobra.Command, a *app, o *palettizeOptions) error {
	start := time.Now()
	log := logctx.FromContext(cmd.Context())

	flags, err := parseFlags(o.flags)
	if err != nil {
		return err
	}
	cells, err := rawio.LoadPalette(o.cells)
	if err != nil {
		return err
	}
	dims := palettize.Dims{
		Width:  o.dims.width,
		Height: o.dims.height,
		Depth:  o.dims.depth,
		Frames: o.dims.frames,
	}

	var r *palettize.Result
	if o.palette != "" {
		palette, err := rawio.LoadPalette(o.palette)
		if err != nil {
			return err
		}
		n, err := dims.Cells()
		if err != nil {
			return err
		}
		if uint64(len(cells)) != n {
			return fmt.Errorf("palettize: %w: have %d cells, dimensions need %d", palettize.ErrCellCount, len(cells), n)
		}
		index, err := palettize.MapCells(palette, cells)
		if err != nil {
			return err
		}
		r = &palettize.Result{Dims: dims, Palette: palette, Index: index}
	} else {
		if r, err = palettize.Build(cells, dims, palettize.Options{MaxPalette: o.maxPalette}); err != nil {
			return err
		}
	}

	v, err := r.Video(flags)
	if err != nil {
		return err
	}
	if err := format.FlagsSupported(v.Header.Flags); err != nil {
		return fmt.Errorf("palettize: %w", err)
	}
	if err := format.EncodeFile(o.output, v, a.codecOptions()); err != nil {
		return fmt.Errorf("encode %s: %w", o.output, err)
	}

	logging.FileCreated(log, "palettize", time.Since(start)).
		Str("path", o.output).
		Count("cells", uint64(len(cells))).
		Uint32("palette_size", v.Header.PaletteSize).
		Hex32("checksum", v.Footer.Checksum).
		Log("container written")

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d cells, %d palette entries, checksum 0x%08X)\n",
		o.output, len(cells), v.Header.PaletteSize, v.Footer.Checksum)
	return nil
}
