package cli

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/eunmann/splat4d/pkg/fileutil"
	"github.com/eunmann/splat4d/pkg/inspect"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	input   string
	output  string
	frame   uint32
	depth   uint32
	top     int
	heatmap bool
}

func newRenderCmd(a *app) *cobra.Command {
	o := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one x,y slice of a container to PNG",
		Long: `Render the x,y plane at a given frame and depth. Each pixel is the
referenced palette color scaled by its alpha. --top limits coloring to the N
most used palette entries; --heatmap renders palette positions as gray levels
instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, a, o)
		},
	}
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "input .4spl path")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output PNG path")
	cmd.Flags().Uint32Var(&o.frame, "frame", 0, "frame (t) to render")
	cmd.Flags().Uint32Var(&o.depth, "depth", 0, "depth (z) to render")
	cmd.Flags().IntVar(&o.top, "top", 0, "color only the N most used palette entries")
	cmd.Flags().BoolVar(&o.heatmap, "heatmap", false, "render palette positions instead of colors")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runRender(cmd *cobra.Command, a *app, o *renderOptions) error {
	v, err := a.decodeLocal(cmd.Context(), o.input)
	if err != nil {
		return err
	}
	defer v.Release()

	var img image.Image
	if o.heatmap {
		img, err = inspect.IndexHeatmap(v, o.frame, o.depth)
	} else {
		opts := inspect.SliceOptions{}
		if o.top > 0 {
			usage, uerr := inspect.PaletteUsage(v)
			if uerr != nil {
				return uerr
			}
			opts.Active = inspect.TopEntries(usage, o.top)
		}
		img, err = inspect.ReconstructSlice(v, o.frame, o.depth, opts)
	}
	if err != nil {
		return err
	}

	err = fileutil.WriteTmpThenMove(filepath.Dir(o.output), o.output, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := inspect.WritePNG(f, img); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", o.output, err)
	}

	b := img.Bounds()
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d, t=%d z=%d)\n", o.output, b.Dx(), b.Dy(), o.frame, o.depth)
	return nil
}
