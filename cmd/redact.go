// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pii-anonymizer/internal/anonymizer"
	"pii-anonymizer/internal/core"
	"pii-anonymizer/internal/export"
	"pii-anonymizer/internal/table"
)

// redactFlags holds the redact command's flag values
type redactFlags struct {
	text         string
	output       string
	format       string
	engine       string
	language     string
	entities     []string
	exclude      []string
	allow        []string
	strategy     string
	maskChar     string
	workers      int
	showEntities bool
	quiet        bool
}

func newRedactCmd(global *globalOptions) *cobra.Command {
	f := &redactFlags{}

	cmd := &cobra.Command{
		Use:   "redact [file]",
		Short: "Redact PII in text or a document",
		Long: `Redact PII in text passed with --text, in a file, or in text piped on stdin.

Files are read as tables: CSV and Excel columns holding text are anonymized
while numeric and boolean columns are kept. PDF and plain text files become a
single "text" cell.

The output format follows --format, then the extension of --output, then
defaults to text on a terminal.

Supported input: ` + strings.Join(table.SupportedExtensions(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedact(cmd, global, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.text, "text", "t", "", "Text to redact")
	flags.StringVarP(&f.output, "output", "o", "", "Write the result to this file instead of stdout")
	flags.StringVarP(&f.format, "format", "f", "", "Output format: "+strings.Join(export.List(), ", "))
	flags.StringVar(&f.engine, "engine", "", "Detector engine: "+strings.Join(core.Engines, ", "))
	flags.StringVar(&f.language, "language", "", "Detection language")
	flags.StringSliceVar(&f.entities, "entities", nil, "Entity types to detect (default: all)")
	flags.StringSliceVar(&f.exclude, "exclude", nil, `Entity types to leave unmasked, "none" to mask everything (default: URL)`)
	flags.StringSliceVar(&f.allow, "allow", nil, "Values that are never masked")
	flags.StringVar(&f.strategy, "strategy", "", "Replacement strategy: mask or tag")
	flags.StringVar(&f.maskChar, "mask-char", "", "Mask character for the mask strategy")
	flags.IntVar(&f.workers, "workers", 0, "Parallel detector calls for tables (default: CPU count)")
	flags.BoolVar(&f.showEntities, "show-entities", false, "Print a summary of masked entities to stderr")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "Suppress progress output")

	return cmd
}

// apply copies explicitly set flags over the loaded configuration
func (f *redactFlags) apply(cmd *cobra.Command, env *runtimeEnv) {
	cfg := env.cfg
	changed := cmd.Flags().Changed

	if changed("engine") {
		cfg.Detector.Engine = f.engine
	}
	if changed("language") {
		cfg.Detector.Language = f.language
	}
	if changed("entities") {
		cfg.Detector.Entities = f.entities
	}
	if changed("exclude") {
		cfg.Redaction.ExcludeEntities = f.exclude
		if len(f.exclude) == 1 && strings.EqualFold(f.exclude[0], "none") {
			cfg.Redaction.ExcludeEntities = nil
		}
	}
	if changed("allow") {
		cfg.Redaction.AllowList = f.allow
	}
	if changed("strategy") {
		cfg.Redaction.Strategy = f.strategy
	}
	if changed("mask-char") {
		cfg.Redaction.MaskChar = f.maskChar
	}
	if changed("workers") {
		cfg.Detector.Workers = f.workers
	}
}

func runRedact(cmd *cobra.Command, global *globalOptions, f *redactFlags, args []string) error {
	if f.text != "" && len(args) > 0 {
		return errors.New("--text cannot be used together with a file argument")
	}

	stderr := cmd.ErrOrStderr()
	env, err := global.load(stderr)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	f.apply(cmd, env)

	format, err := resolveFormat(f.format, f.output)
	if err != nil {
		return err
	}

	det, err := core.BuildDetector(env.cfg, env.observer)
	if err != nil {
		return err
	}
	anon, err := core.BuildAnonymizer(env.cfg, det, env.observer)
	if err != nil {
		return err
	}
	if !f.quiet && isTerminal(os.Stderr) {
		anon = anon.WithProgress(progressPrinter(stderr))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := redactInput(ctx, anon, f.text, args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	env.logger.Debug("redaction finished",
		zap.String("source", string(outcome.Source)),
		zap.Int("entities", outcome.TotalEntities()),
		zap.Strings("text_columns", outcome.Result.TextColumns))

	if err := writeOutcome(cmd.OutOrStdout(), outcome, format, f.output, env.noColor || !isTerminal(os.Stdout)); err != nil {
		return err
	}
	if f.output != "" && !f.quiet {
		fmt.Fprintf(stderr, "Wrote %s (%s)\n", f.output, format)
	}
	if f.showEntities {
		printEntitySummary(stderr, outcome)
	}
	return nil
}

// redactInput picks the input source: --text, a file argument, or stdin
func redactInput(ctx context.Context, anon *anonymizer.Anonymizer, text string, args []string, stdin io.Reader) (*core.Outcome, error) {
	switch {
	case text != "":
		return core.RedactText(ctx, anon, text)
	case len(args) == 1:
		return core.RedactFile(ctx, anon, args[0])
	}

	if f, ok := stdin.(*os.File); ok && isTerminal(f) {
		return nil, errors.New("no input: pass a file, use --text, or pipe text on stdin")
	}
	data, err := io.ReadAll(bufio.NewReader(stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.New("no text to redact on stdin")
	}
	return core.RedactText(ctx, anon, string(data))
}

// resolveFormat picks the output format from the flag, then the output
// extension, then falls back to text
func resolveFormat(format, output string) (string, error) {
	if format != "" {
		format = strings.ToLower(format)
		if _, ok := export.Get(format); !ok {
			return "", fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(export.List(), ", "))
		}
		return format, nil
	}

	if output != "" {
		switch strings.ToLower(filepath.Ext(output)) {
		case ".xlsx":
			return "xlsx", nil
		case ".csv":
			return "csv", nil
		case ".json":
			return "json", nil
		case ".yaml", ".yml":
			return "yaml", nil
		case ".txt", "":
			return "text", nil
		default:
			return "", fmt.Errorf("cannot infer the output format from %q; use --format", output)
		}
	}

	return "text", nil
}

// writeOutcome exports the redacted table to output, or to stdout when empty
func writeOutcome(stdout io.Writer, outcome *core.Outcome, format, output string, noColor bool) (err error) {
	w := stdout
	if output != "" {
		file, createErr := os.Create(filepath.Clean(output))
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if cerr := file.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		w = file
		noColor = true
	}

	doc := outcome.Document()
	if format == "text" && output == "" {
		// the terminal summary is opt-in through --show-entities
		doc.EntityCounts = nil
	}
	return export.Export(w, format, doc, export.Options{NoColor: noColor})
}

// findingContext is how much redacted text is shown around each finding
const findingContext = 24

// printEntitySummary prints per-type counts and, for text input, each masked
// entity in its redacted surroundings
func printEntitySummary(w io.Writer, outcome *core.Outcome) {
	counts := outcome.Result.EntityCounts
	if len(counts) == 0 {
		fmt.Fprintln(w, "No PII detected.")
		return
	}
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	bold.Fprintf(w, "Redacted %d entities:\n", outcome.TotalEntities())
	for _, entity := range sortedKeys(counts) {
		fmt.Fprintf(w, "  %s %d\n", yellow.Sprintf("%-20s", entity), counts[entity])
	}

	findings := outcome.Findings(findingContext)
	if len(findings) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, fd := range findings {
		fmt.Fprintf(w, "  %s %s%s%s\n",
			yellow.Sprintf("%-20s", fd.EntityType),
			faint.Sprint(fd.Context.BeforeText),
			bold.Sprint(fd.Context.Text),
			faint.Sprint(fd.Context.AfterText))
	}
}

// progressPrinter rewrites a single progress line on stderr
func progressPrinter(w io.Writer) func(completed, total int) {
	return func(completed, total int) {
		if total < 2 {
			return
		}
		fmt.Fprintf(w, "\rRedacting: %d/%d cells", completed, total)
		if completed == total {
			fmt.Fprintln(w)
		}
	}
}
