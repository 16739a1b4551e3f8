package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/helixir/citegraph/internal/config"
	"github.com/helixir/citegraph/internal/gather"
	"github.com/helixir/citegraph/internal/refstore"
)

type gatherOptions struct {
	keywords []string
	types    []string
	limit    int
	expand   bool
	out      string
}

func newGatherCmd(root *rootOptions) *cobra.Command {
	return gatherCommand(root, &gatherOptions{})
}

func gatherCommand(root *rootOptions, opts *gatherOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gather",
		Short: "Build a reference store by keyword search",
		Long: `Gather searches the API for every keyword and publication type, lists the
references of each hit and writes the rows in the reference store format
read by enrich. With --expand the references of the hits are listed too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGather(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.keywords, "keywords", "k", nil, "Search keywords (overrides gather.keywords)")
	f.StringSliceVar(&opts.types, "types", nil, "Publication types searched per keyword")
	f.IntVarP(&opts.limit, "limit", "n", 0, "Search hits per keyword and type")
	f.BoolVar(&opts.expand, "expand", false, "Also list the references of every cited paper")
	f.StringVarP(&opts.out, "out", "o", "", "Output CSV (overrides gather.output)")

	return cmd
}

func applyGatherFlags(cfg *config.Config, flags *pflag.FlagSet, opts *gatherOptions) {
	if flags.Changed("keywords") {
		cfg.Gather.Keywords = opts.keywords
	}
	if flags.Changed("types") {
		cfg.Gather.PublicationTypes = opts.types
	}
	if flags.Changed("limit") {
		cfg.Gather.Limit = opts.limit
	}
	if flags.Changed("expand") {
		cfg.Gather.Expand = opts.expand
	}
	if flags.Changed("out") {
		cfg.Gather.Output = opts.out
	}
}

func gatherOpts(c config.GatherConfig) gather.Options {
	return gather.Options{
		Keywords:         c.Keywords,
		PublicationTypes: c.PublicationTypes,
		Limit:            c.Limit,
		Expand:           c.Expand,
		MinJitter:        c.MinJitter,
		MaxJitter:        c.MaxJitter,
		Retries:          c.Retries,
		Backoff:          c.Backoff,
	}
}

func runGather(cmd *cobra.Command, root *rootOptions, opts *gatherOptions) error {
	a, err := loadApp(root, "gather")
	if err != nil {
		return err
	}
	applyGatherFlags(a.cfg, cmd.Flags(), opts)
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if len(a.cfg.Gather.Keywords) == 0 {
		return fmt.Errorf("at least one keyword is required")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a.enableMetrics()
	_, stopMetrics := a.startMetricsServer()
	defer stopMetrics()

	rows, err := gather.New(a.newSemanticScholarClient(), gatherOpts(a.cfg.Gather), a.logger).Run(ctx)
	if err != nil {
		return err
	}

	out := a.cfg.Gather.Output
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := refstore.WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}

	a.logger.Info().Str("path", out).Int("rows", len(rows)).Msg("reference store written")
	return nil
}
