// Package cli implements the molscore command tree.  The commands work on
// local files so models can be trained and applied without any of the server
// infrastructure running.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	LogLevel     string
	OutputFormat string
}

// NewRootCommand creates the root command with global flags and all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "molscore",
		Short:   "MolScore — frequency-based molecular typicality scoring",
		Long:    "MolScore estimates how typical a molecule is relative to a reference\ncorpus by the log-likelihood of its circular atom environments.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.NewLogger(logging.LogConfig{
				Level:  opts.LogLevel,
				Format: "console",
			})
			if err != nil {
				return err
			}
			logging.SetDefault(logger)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")

	cmd.AddCommand(
		newTrainCommand(opts),
		newScoreCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// Execute runs the command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

// printResult renders v as JSON or hands off to the text renderer.
func printResult(w io.Writer, format string, v interface{}, text func(io.Writer)) error {
	if strings.EqualFold(format, "json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
