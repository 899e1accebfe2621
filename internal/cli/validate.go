package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/eunmann/splat4d/internal/logctx"
	"github.com/eunmann/splat4d/pkg/rawio"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "validate [file.4spl...]",
		Short: "Check containers and export manifests",
		Long: `Decode each container and report whether it passes every structural and
checksum check. With --manifest, also verify the files an earlier decode
exported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && manifest == "" {
				return errors.New("validate needs at least one file or --manifest")
			}
			return runValidate(cmd, a, args, manifest)
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "", "export manifest to verify")
	return cmd
}

func runValidate(cmd *cobra.Command, a *app, paths []string, manifest string) error {
	ctx := cmd.Context()
	log := logctx.FromContext(ctx)
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range paths {
		v, err := a.decodeLocal(ctx, path)
		if err != nil {
			failed++
			log.Warn().Err(err).Str("path", path).Msg("validation failed")
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s\n", path)
		v.Release()
	}

	if manifest != "" {
		m, err := rawio.ReadManifest(manifest)
		if err == nil {
			err = rawio.VerifyManifest(filepath.Dir(manifest), m)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", manifest, err)
		} else {
			fmt.Fprintf(out, "ok   %s (%d files)\n", manifest, len(m.Files))
		}
	}

	if failed > 0 {
		total := len(paths)
		if manifest != "" {
			total++
		}
		return fmt.Errorf("%d of %d checks failed", failed, total)
	}
	return nil
}
