package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/eunmann/splat4d/internal/logctx"
	"github.com/eunmann/splat4d/pkg/inspect"
	"github.com/eunmann/splat4d/pkg/logging"
	"github.com/eunmann/splat4d/pkg/rawio"
	"github.com/spf13/cobra"
)

type decodeOptions struct {
	input    string
	palette  string
	index    string
	manifest string
	print    bool
}

func newDecodeCmd(a *app) *cobra.Command {
	o := &decodeOptions{}
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode and verify a container, optionally exporting its arrays",
		Long: `Decode a .4spl container. Every structural and checksum check runs before
anything is exported. The palette and index can be written back out as flat
files (.bin, .zst or .parquet), and a manifest records their SHA-256 digests.

Example:
  splat4d decode --input clip.4spl --palette p.parquet --index i.zst --manifest export.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, a, o)
		},
	}
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "input .4spl path")
	cmd.Flags().StringVar(&o.palette, "palette", "", "export palette to this file")
	cmd.Flags().StringVar(&o.index, "index", "", "export index to this file")
	cmd.Flags().StringVar(&o.manifest, "manifest", "", "write an export manifest (requires --palette or --index)")
	cmd.Flags().BoolVar(&o.print, "print", false, "print the decoded container")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runDecode(cmd *cobra.Command, a *app, o *decodeOptions) error {
	if o.manifest != "" && o.palette == "" && o.index == "" {
		return errors.New("--manifest requires --palette or --index")
	}

	start := time.Now()
	ctx := logctx.WithStr(cmd.Context(), "input", o.input)
	log := logctx.FromContext(ctx)

	v, err := a.decodeLocal(ctx, o.input)
	if err != nil {
		return err
	}
	defer v.Release()

	var exported []string
	if o.palette != "" {
		if err := rawio.SavePalette(o.palette, v.Palette); err != nil {
			return err
		}
		exported = append(exported, o.palette)
	}
	if o.index != "" {
		if err := rawio.SaveIndex(o.index, v.Index); err != nil {
			return err
		}
		exported = append(exported, o.index)
	}

	if o.manifest != "" {
		m := rawio.NewManifest(o.input, v)
		m.RunID = logctx.RunID(ctx)
		dir := filepath.Dir(o.manifest)
		for _, path := range exported {
			if err := m.AddFile(dir, path); err != nil {
				return err
			}
		}
		if err := rawio.WriteManifest(o.manifest, m); err != nil {
			return err
		}
	}

	logging.PhaseComplete(log, "decode", time.Since(start)).
		Uint32("palette_size", v.Header.PaletteSize).
		Count("cells", v.Cells()).
		Hex32("checksum", v.Footer.Checksum).
		Log("container decoded")

	out := cmd.OutOrStdout()
	if o.print {
		return inspect.WriteSummary(out, v, inspect.DefaultSummaryOptions())
	}
	fmt.Fprintf(out, "ok %s (checksum 0x%08X)\n", o.input, v.Footer.Checksum)
	for _, path := range exported {
		fmt.Fprintf(out, "exported %s\n", path)
	}
	return nil
}
