package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/profilecore/internal/app"
	"github.com/felixgeelhaar/profilecore/internal/domain/fetch"
	"github.com/felixgeelhaar/profilecore/internal/domain/resolve"
	"github.com/felixgeelhaar/profilecore/internal/domain/source"
	"github.com/felixgeelhaar/profilecore/internal/ports"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "profilecore",
	Short: "Fetch, classify, and evaluate compliance profiles",
	Long: `profilecore resolves a profile target (a local directory, a local
tar.gz/zip archive, or a remote location), classifies its layout, and
evaluates its control definitions, surfacing the result as info, a
structured check report, a reproducible archive, or a locked dependency
graph.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "profilecore.toml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command and returns the process exit code
// (spec.md §6 "Exit semantics"): 0 success, 1 validation errors present
// (handled directly by the check command), 2 fetch/resolution failure,
// 3 unexpected internal error.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return exitCodeFor(err)
	}
	return 0
}

func exitCodeFor(err error) int {
	var fetchErr *fetch.FetchError
	var structErr *source.StructureError
	var conflictErr *resolve.VersionConflict
	var cycleErr *resolve.CyclicDependencyError
	if errors.As(err, &fetchErr) || errors.As(err, &structErr) ||
		errors.As(err, &conflictErr) || errors.As(err, &cycleErr) {
		return 2
	}
	return 3
}

func printError(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func newApp() (*app.App, error) {
	cfg, err := app.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", cfgFile, err)
	}
	level := ports.LevelInfo
	if verbose {
		level = ports.LevelDebug
	}
	return app.New(os.Stdout, cfg, level), nil
}
