package cli

import (
	"fmt"

	"github.com/eunmann/splat4d/pkg/humanfmt"
	"github.com/eunmann/splat4d/pkg/inspect"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	var (
		showPalette bool
		indices     int
		usage       int
	)
	cmd := &cobra.Command{
		Use:   "info <file.4spl>",
		Short: "Print a container's header, flags and footer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.decodeLocal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer v.Release()

			out := cmd.OutOrStdout()
			opts := inspect.SummaryOptions{Palette: showPalette, MaxIndices: indices}
			if err := inspect.WriteSummary(out, v, opts); err != nil {
				return err
			}

			if usage <= 0 {
				return nil
			}
			counts, err := inspect.PaletteUsage(v)
			if err != nil {
				return err
			}
			cells := v.Cells()
			fmt.Fprintf(out, "usage (top %d of %d)\n", min(usage, len(counts)), len(counts))
			for _, u := range counts[:min(usage, len(counts))] {
				fmt.Fprintf(out, "  [%d] %s cells (%.1f%%)\n",
					u.Entry, humanfmt.CountUint64(u.Cells), float64(u.Cells)*100/float64(cells))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPalette, "palette", false, "print every palette entry")
	cmd.Flags().IntVar(&indices, "indices", 8, "leading index entries to print (-1 for all)")
	cmd.Flags().IntVar(&usage, "usage", 0, "print the N most referenced palette entries")
	return cmd
}
