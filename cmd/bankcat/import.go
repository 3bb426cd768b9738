package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/importer"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bank statement into a draft period",
		Long: `Import a CSV or OFX/QFX bank statement into the drafts of one period.

Lines already drafted for the period are skipped, so importing the same
statement twice is harmless. Use --replace to discard the period's drafts
and start over from this file.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	addScopeFlags(cmd)
	cmd.Flags().String("format", "", "statement format (csv, ofx); inferred from the extension when empty")
	cmd.Flags().Bool("replace", false, "replace the period's existing drafts")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	scope, err := scopeFromFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	replace, _ := cmd.Flags().GetBool("replace")

	parser, err := importer.New(format, path, scope.Period)
	if err != nil {
		return err
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to open statement: %w", err)
	}
	defer func() { _ = file.Close() }()

	parsed, err := parser.Parse(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to parse %s statement: %w", parser.Format(), err)
	}

	slog.Info("Parsed statement",
		"file", path,
		"format", parser.Format(),
		"lines", len(parsed.Lines),
		"dropped", parsed.Dropped,
		"out_of_range", parsed.OutOfRange)

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if _, err := verifyScope(ctx, store, scope); err != nil {
		return err
	}

	lifecycle, err := newLifecycle(store)
	if err != nil {
		return err
	}

	result, err := lifecycle.Import(ctx, scope, parsed.Lines, replace)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Imported %d new lines into %s", result.Inserted, scope.Period)))
	if result.Duplicates > 0 {
		printLine(cmd, cli.FormatInfo(fmt.Sprintf("Skipped %d lines already drafted", result.Duplicates)))
	}
	if result.Replaced {
		printLine(cmd, cli.FormatInfo("Replaced the period's previous drafts"))
	}
	if parsed.Dropped > 0 {
		printLine(cmd, cli.FormatWarning(fmt.Sprintf("Dropped %d rows without a usable date or description", parsed.Dropped)))
	}
	if parsed.OutOfRange > 0 {
		printLine(cmd, cli.FormatWarning(fmt.Sprintf("%d lines are dated outside %s", parsed.OutOfRange, scope.Period)))
	}
	if result.Inserted > 0 {
		printLine(cmd, cli.FormatInfo("Run 'bankcat suggest' to categorize the new lines."))
	}
	return nil
}
