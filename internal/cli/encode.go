package cli

import (
	"fmt"
	"time"

	"github.com/eunmann/splat4d/internal/logctx"
	"github.com/eunmann/splat4d/pkg/format"
	"github.com/eunmann/splat4d/pkg/logging"
	"github.com/eunmann/splat4d/pkg/rawio"
	"github.com/spf13/cobra"
)

type dimFlags struct {
	width, height, depth, frames uint32
}

func (d *dimFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&d.width, "width", 0, "grid width (x)")
	cmd.Flags().Uint32Var(&d.height, "height", 0, "grid height (y)")
	cmd.Flags().Uint32Var(&d.depth, "depth", 0, "grid depth (z)")
	cmd.Flags().Uint32Var(&d.frames, "frames", 0, "frame count (t)")
	for _, name := range []string{"width", "height", "depth", "frames"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

type encodeOptions struct {
	dims        dimFlags
	palette     string
	index       string
	output      string
	paletteSize uint32
	flags       string
}

func newEncodeCmd(a *app) *cobra.Command {
	o := &encodeOptions{}
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a .4spl container from palette and index files",
		Long: `Build a .4spl container from a flat palette file and a flat index file.
The index must hold exactly width*height*depth*frames entries, ordered with x
varying fastest, then y, z and t.

Example:
  splat4d encode --palette palette.bin --index index.zst \
    --width 64 --height 64 --depth 1 --frames 30 --output clip.4spl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, a, o)
		},
	}
	o.dims.register(cmd)
	cmd.Flags().StringVar(&o.palette, "palette", "", "palette file (.bin, .zst or .parquet)")
	cmd.Flags().StringVar(&o.index, "index", "", "index file (.bin, .zst or .parquet)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output .4spl path")
	cmd.Flags().Uint32Var(&o.paletteSize, "palette-size", 0, "palette entries to use (default: all in the palette file)")
	cmd.Flags().StringVar(&o.flags, "flags", "", "raw header flags word, e.g. 0x4")
	for _, name := range []string{"palette", "index", "output"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runEncode(cmd *cobra.Command, a *app, o *encodeOptions) error {
	start := time.Now()
	ctx := logctx.WithStr(cmd.Context(), "output", o.output)
	log := logctx.FromContext(ctx)

	flags, err := parseFlags(o.flags)
	if err != nil {
		return err
	}

	palette, err := rawio.LoadPalette(o.palette)
	if err != nil {
		return err
	}
	size := o.paletteSize
	if size == 0 {
		size = uint32(len(palette))
	}
	if uint64(size) != uint64(len(palette)) {
		return fmt.Errorf("--palette-size %d does not match %d entries in %s", size, len(palette), o.palette)
	}

	index, err := rawio.LoadIndex(o.index)
	if err != nil {
		return err
	}

	h := format.MakeHeader(o.dims.width, o.dims.height, o.dims.depth, o.dims.frames, size, flags)
	if err := format.FlagsSupported(h.Flags); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	total, err := format.TotalIndicesChecked(h)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if uint64(len(index)) != total {
		return fmt.Errorf("encode: %s holds %d entries, dimensions need %d", o.index, len(index), total)
	}
	for i, ref := range index {
		if ref >= uint64(size) {
			return fmt.Errorf("encode: %w: index entry %d references %d, palette has %d",
				format.ErrBoundsCheck, i, ref, size)
		}
	}

	v, err := format.NewVideo(h, palette, index)
	if err != nil {
		return err
	}
	if err := format.EncodeFile(o.output, v, a.codecOptions()); err != nil {
		return fmt.Errorf("encode %s: %w", o.output, err)
	}

	fileSize, err := format.FileSize(h)
	if err != nil {
		return err
	}
	logging.FileCreated(log, "encode", time.Since(start)).
		Str("path", o.output).
		Uint32("palette_size", size).
		Hex32("checksum", v.Footer.Checksum).
		Bytes("size", int64(fileSize)).
		Log("container written")

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, checksum 0x%08X)\n", o.output, fileSize, v.Footer.Checksum)
	return nil
}
