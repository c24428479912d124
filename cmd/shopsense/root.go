package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/shopsense/backend/internal/infrastructure/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose bool
	noColor bool
	json    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shopsense",
		Short: "ShopSense - marketplace product search from the command line",
		Long: `ShopSense turns a natural language shopping request into a short list of
well rated marketplace products with recent customer reviews.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newExtractCmd(opts))

	return cmd
}

// logger writes to stderr so stdout stays clean for results
func (o *rootOptions) logger(level string) zerolog.Logger {
	if o.verbose {
		level = "debug"
	} else if level == "" || level == "info" {
		level = "warn"
	}
	return logging.New(logging.Options{
		Level:   level,
		Format:  "console",
		Output:  os.Stderr,
		Service: "shopsense-cli",
	})
}

func (o *rootOptions) printer(out io.Writer) *printer {
	return &printer{out: out, json: o.json}
}
