package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/helixir/citegraph/internal/batch"
	"github.com/helixir/citegraph/internal/config"
	"github.com/helixir/citegraph/internal/events"
	"github.com/helixir/citegraph/internal/export"
	"github.com/helixir/citegraph/internal/pipeline"
	"github.com/helixir/citegraph/internal/refstore"
	"github.com/helixir/citegraph/internal/repository"
)

type enrichOptions struct {
	input             string
	out               string
	paperConcurrency  int
	paperChunkSize    int
	authorConcurrency int
	authorChunkSize   int
	retries           int
	noNotFound        bool
	database          bool
	kafka             bool
}

func newEnrichCmd(root *rootOptions) *cobra.Command {
	return enrichCommand(root, &enrichOptions{})
}

func enrichCommand(root *rootOptions, opts *enrichOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fetch metadata, propagate keywords and export the four tables",
		Long: `Enrich loads the reference store, fetches paper metadata in concurrent
chunks, reconciles references from the store, classifies and propagates
keywords one hop, fetches authors and writes papers.csv, authors.csv,
venues.csv and paper_keywords.csv to the output directory.

Flags override the corresponding configuration values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnrich(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "Reference store CSV (overrides input.path)")
	f.StringVarP(&opts.out, "out", "o", "", "Output directory (overrides output.dir)")
	f.IntVar(&opts.paperConcurrency, "paper-concurrency", 0, "Paper chunks in flight")
	f.IntVar(&opts.paperChunkSize, "paper-chunk-size", 0, "Paper ids per request")
	f.IntVar(&opts.authorConcurrency, "author-concurrency", 0, "Author chunks in flight")
	f.IntVar(&opts.authorChunkSize, "author-chunk-size", 0, "Author ids per request")
	f.IntVar(&opts.retries, "retries", 0, "Extra attempts per failed chunk, for both fetchers")
	f.BoolVar(&opts.noNotFound, "no-not-found", false, "Do not collect ids the API could not resolve")
	f.BoolVar(&opts.database, "database", false, "Also write the tables to PostgreSQL")
	f.BoolVar(&opts.kafka, "kafka", false, "Publish run events to Kafka")

	return cmd
}

// applyEnrichFlags copies explicitly set flags over the loaded configuration.
func applyEnrichFlags(cfg *config.Config, flags *pflag.FlagSet, opts *enrichOptions) {
	if flags.Changed("input") {
		cfg.Input.Path = opts.input
	}
	if flags.Changed("out") {
		cfg.Output.Dir = opts.out
	}
	if flags.Changed("paper-concurrency") {
		cfg.Fetch.Papers.Concurrency = opts.paperConcurrency
	}
	if flags.Changed("paper-chunk-size") {
		cfg.Fetch.Papers.ChunkSize = opts.paperChunkSize
	}
	if flags.Changed("author-concurrency") {
		cfg.Fetch.Authors.Concurrency = opts.authorConcurrency
	}
	if flags.Changed("author-chunk-size") {
		cfg.Fetch.Authors.ChunkSize = opts.authorChunkSize
	}
	if flags.Changed("retries") {
		cfg.Fetch.Papers.Retries = opts.retries
		cfg.Fetch.Authors.Retries = opts.retries
	}
	if flags.Changed("no-not-found") && opts.noNotFound {
		cfg.Fetch.Papers.WantNotFound = false
		cfg.Fetch.Authors.WantNotFound = false
	}
	if flags.Changed("database") {
		cfg.Database.Enabled = opts.database
	}
	if flags.Changed("kafka") {
		cfg.Kafka.Enabled = opts.kafka
	}
}

func fetchOptions(c config.FetcherConfig) batch.Options {
	return batch.Options{
		Concurrency:  c.Concurrency,
		ChunkSize:    c.ChunkSize,
		WantNotFound: c.WantNotFound,
		Retries:      c.Retries,
		RetryDelay:   c.RetryDelay,
	}
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Papers:       fetchOptions(cfg.Fetch.Papers),
		PaperFields:  cfg.Fetch.Papers.Fields,
		Authors:      fetchOptions(cfg.Fetch.Authors),
		AuthorFields: cfg.Fetch.Authors.Fields,
		Vocabulary:   cfg.Keywords.Vocabulary,
		InputPath:    cfg.Input.Path,
		OutputDir:    cfg.Output.Dir,
	}
}

func inputColumns(c config.InputConfig) refstore.Columns {
	return refstore.Columns{
		ID:         c.IDColumn,
		References: c.ReferencesColumn,
		Keyword:    c.KeywordColumn,
	}
}

func runEnrich(cmd *cobra.Command, root *rootOptions, opts *enrichOptions) error {
	a, err := loadApp(root, "enrich")
	if err != nil {
		return err
	}
	applyEnrichFlags(a.cfg, cmd.Flags(), opts)
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	cfg := a.cfg

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	metrics := a.enableMetrics()
	srv, stopMetrics := a.startMetricsServer()
	defer stopMetrics()

	store, err := refstore.LoadFile(cfg.Input.Path, inputColumns(cfg.Input))
	if err != nil {
		return fmt.Errorf("load reference store: %w", err)
	}
	a.logger.Info().
		Str("path", cfg.Input.Path).
		Int("papers", store.Len()).
		Msg("reference store loaded")

	sinks := []pipeline.Sink{export.NewCSVWriter(cfg.Output.Dir)}

	if cfg.Database.Enabled {
		db, err := a.openDatabase(ctx)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if srv != nil {
			srv.AddCheck("database", db)
		}
		sinks = append(sinks, repository.NewPgExportRepository(db.Pool(), a.logger))
	}

	p := pipeline.New(a.newSemanticScholarClient(), sinks, pipelineOptions(cfg), a.logger, metrics)

	if cfg.Kafka.Enabled {
		publisher := events.NewPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, a.logger, metrics)
		defer func() {
			if err := publisher.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("failed to close event publisher")
			}
		}()
		p.WithPublisher(publisher)
	}

	result, err := p.Run(ctx, store)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result.Summary.Payload())
}
