package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/engine"
	"github.com/Veraticus/bankcat/internal/model"
)

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest a category for every draft line of a period",
		Long: `Score every draft line of the period against the client's categories,
keyword rules, learned vendors and learned keywords, and store the best
suggestion with its confidence and reason.

Suggestions can be refreshed at any time; reviewed categories are kept.`,
		RunE: runSuggest,
	}

	addScopeFlags(cmd)
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")

	return cmd
}

func runSuggest(cmd *cobra.Command, _ []string) error {
	scope, err := scopeFromFlags(cmd)
	if err != nil {
		return err
	}
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	interruptHandler := cli.NewInterruptHandler(cmd.OutOrStdout())
	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	ctx := interruptHandler.HandleInterrupts(runCtx, "Suggestion refresh")

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

	drafts, err := store.ListDrafts(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to load drafts: %w", err)
	}
	if len(drafts) == 0 {
		printLine(cmd, cli.FormatInfo(fmt.Sprintf("No draft lines for %s. Import a statement first.", scope.Period)))
		return nil
	}

	var progress *cli.Progress
	if !noProgress {
		progress = cli.NewProgress(os.Stderr, len(drafts), "Suggesting")
	}

	var onProgress engine.ProgressFunc
	if progress != nil {
		onProgress = progress.Update
	}

	summary, err := lifecycle.RefreshSuggestions(ctx, scope, onProgress)
	if err != nil {
		if interruptHandler.WasInterrupted() || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("suggestion refresh failed: %w", err)
	}
	if progress != nil {
		progress.Finish()
	}

	content := fmt.Sprintf("Rows:            %d\nSuggested:       %d\nFallbacks:       %d\nLow confidence:  %d",
		summary.Rows, summary.Suggested, summary.Fallbacks, summary.LowConfidence)
	printLine(cmd, cli.RenderBox("Suggestions "+scope.Period, content))

	kinds := make([]model.MatchKind, 0, len(summary.ByKind))
	for kind := range summary.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return summary.ByKind[kinds[i]] > summary.ByKind[kinds[j]] })

	rows := make([][]string, 0, len(kinds))
	for _, kind := range kinds {
		label := string(kind)
		if label == "" {
			label = "none"
		}
		rows = append(rows, []string{label, fmt.Sprintf("%d", summary.ByKind[kind])})
	}
	printTable(cmd, []string{"Match", "Rows"}, rows)

	if summary.Fallbacks > 0 || summary.LowConfidence > 0 {
		printLine(cmd, cli.FormatWarning("Some lines need attention. Use 'bankcat drafts list --attention' to see them."))
	}
	return nil
}
