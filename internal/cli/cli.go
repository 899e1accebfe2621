// Package cli implements the splat4d command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/eunmann/splat4d/internal/logctx"
	"github.com/eunmann/splat4d/pkg/config"
	"github.com/eunmann/splat4d/pkg/format"
	"github.com/eunmann/splat4d/pkg/logging"
	"github.com/eunmann/splat4d/pkg/memdiag"
	"github.com/eunmann/splat4d/pkg/membudget"
	"github.com/spf13/cobra"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	return run(context.Background(), args, os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(ctx)
	if a.tracker != nil {
		a.tracker.Stop()
	}
	return err
}

// app holds what the persistent flags resolve to. It is filled in by the
// root command's PersistentPreRunE before any subcommand runs.
type app struct {
	configPath string
	memBudget  string
	chunkSize  string
	debug      bool
	human      bool

	cfg     *config.Config
	budget  *membudget.Budget
	chunk   int
	tracker *memdiag.Tracker
}

func (a *app) codecOptions() format.Options {
	return format.Options{ChunkSize: a.chunk, Budget: a.budget}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "splat4d",
		Short: "Encode, decode and inspect .4spl splat videos",
		Long: `splat4d works with .4spl containers: palette-indexed x,y,z,t volumes of
4D Gaussian splats with a CRC32-protected payload.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.memBudget, "mem-budget", "", "decode memory budget, e.g. 4GiB (overrides "+membudget.EnvBudget+")")
	pf.StringVar(&a.chunkSize, "chunk-size", "", "checksum streaming chunk, e.g. 32KiB")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&a.human, "human", false, "human-friendly console logs")

	root.AddCommand(
		newEncodeCmd(a),
		newDecodeCmd(a),
		newValidateCmd(a),
		newInfoCmd(a),
		newRenderCmd(a),
		newPalettizeCmd(a),
		newFetchCmd(a),
		newPushCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Init(a.debug, a.human || cfg.Log.Human)
	if !a.debug {
		if err := logging.SetLevel(cfg.Log.Level); err != nil {
			return err
		}
	}

	if a.chunkSize != "" {
		cfg.Codec.ChunkSize = a.chunkSize
	}
	if a.chunk, err = cfg.ChunkSizeBytes(); err != nil {
		return fmt.Errorf("--chunk-size: %w", err)
	}

	if a.budget, err = membudget.Resolve(a.memBudget, cfg.Codec.MemoryBudget); err != nil {
		return fmt.Errorf("--mem-budget: %w", err)
	}

	ctx := logctx.WithLogger(cmd.Context(), *logging.L())
	ctx = logctx.WithStr(logctx.WithRunID(ctx), "command", cmd.Name())
	cmd.SetContext(ctx)

	a.tracker = memdiag.NewTracker(memdiag.ConfigFromEnv(), logctx.FromContext(ctx))
	a.tracker.Start()
	a.tracker.SetPhase(cmd.Name())

	logger := logctx.FromContext(ctx)
	logger.Debug().
		Uint64("mem_budget", a.budget.Total()).
		Str("mem_budget_source", string(a.budget.Source())).
		Int("chunk_size", a.chunk).
		Msg("configured")
	return nil
}

// parseFlags parses a raw flags word in decimal, 0x hex or 0b binary. An
// empty string is zero, which the header sanitizes to the default.
func parseFlags(s string) (format.Flags, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid --flags %q: %w", s, err)
	}
	return format.Flags(v), nil
}

// decodeLocal decodes path with the configured budget.
func (a *app) decodeLocal(ctx context.Context, path string) (*format.Video, error) {
	log := logctx.FromContext(ctx)
	v, err := format.DecodeFile(path, a.codecOptions())
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", path).
		Uint64("mem_in_use", a.budget.InUse()).
		Msg("decoded container")
	if a.tracker != nil {
		a.tracker.SampleWithBudget("decoded", a.budget.InUse(), a.budget.Total())
	}
	return v, nil
}
