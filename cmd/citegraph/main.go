// Package main provides the citegraph CLI: gather a reference store, enrich
// it into export tables and manage the export database schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configFile string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "citegraph",
		Short: "Build a keyword-annotated citation graph from a reference store",
		Long: `citegraph enriches a CSV of paper ids and their references with metadata
from the Semantic Scholar Graph API, propagates keywords one hop along
citation edges and exports papers, authors, venues and paper keywords.

Examples:
  citegraph gather --keywords "big data" --limit 20 --out papers_combined.csv
  citegraph enrich --input papers_combined.csv --out ./out
  citegraph migrate --up`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (default: ./config.yaml, ./config/config.yaml, /etc/citegraph/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newEnrichCmd(opts))
	root.AddCommand(newGatherCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newEventsCmd(opts))

	return root
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
