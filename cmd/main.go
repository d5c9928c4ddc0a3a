// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"pii-anonymizer/internal/config"
	"pii-anonymizer/internal/logging"
	"pii-anonymizer/internal/observability"
	"pii-anonymizer/internal/version"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	noColor    bool
	debug      bool
}

// runtimeEnv is what a command needs after flags and configuration are resolved
type runtimeEnv struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	observer *observability.StandardObserver
	noColor  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "pii-anonymizer",
		Short: "Detect and mask personally identifiable information",
		Long: `pii-anonymizer finds PII such as names, email addresses and phone numbers
in free text, CSV, Excel, PDF and plain text files and replaces it with
masks or entity tags.

Run it once from the command line, or start the web interface with
"pii-anonymizer serve".

Examples:
  pii-anonymizer redact --text "Contact John Doe at john@example.com"
  pii-anonymizer redact contacts.csv -o contacts_redacted.xlsx
  cat notes.txt | pii-anonymizer redact --strategy tag
  pii-anonymizer serve --port 8080`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(version.Info() + "\n")

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to configuration file (default: search standard locations)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: console or json")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&opts.debug, "debug", false, "Show step-by-step processing on stderr")

	root.AddCommand(
		newRedactCmd(opts),
		newServeCmd(opts),
		newEntitiesCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load resolves configuration, logging and metrics for a command
func (o *globalOptions) load(stderr io.Writer) (*runtimeEnv, error) {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "Warning: failed to load .env: %v\n", err)
	}

	cfg, err := config.LoadConfigOrDefault(o.configFile)
	if err != nil {
		if o.configFile != "" {
			return nil, err
		}
		fmt.Fprintf(stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(stderr, "Using default configuration\n")
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.debug {
		cfg.Logging.Level = "debug"
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	noColor := o.noColor || os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr)
	if noColor {
		color.NoColor = true
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		NoColor: noColor,
	})
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics("pii_anonymizer")
	observer := observability.NewStandardObserver(logger, metrics)
	if o.debug {
		observer = observer.WithDebug(observability.NewDebugObserver(stderr))
	}

	return &runtimeEnv{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		observer: observer,
		noColor:  noColor,
	}, nil
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(version.Get())
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print build information as JSON")
	return cmd
}

// printError prints a command failure, keeping multi-line guidance readable
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(w, "Error: ")
	fmt.Fprintln(w, err)
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
