package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/model"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Record review decisions for draft lines",
		Long: `Set the final category of draft lines, or accept the suggestions that
are confident enough in one go. Review can be repeated until the period is
committed.`,
	}

	cmd.AddCommand(reviewSetCmd())
	cmd.AddCommand(reviewAcceptCmd())

	return cmd
}

func reviewSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <category> <id>...",
		Short: "Set the final category of one or more draft lines",
		Long: `Set the final category of one or more draft lines. An empty category
("") clears the decision so the line counts as unreviewed again.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}
			vendor, _ := cmd.Flags().GetString("vendor")

			category := args[0]
			decisions := make([]model.ReviewDecision, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := parseID(arg, "draft")
				if err != nil {
					return err
				}
				decisions = append(decisions, model.ReviewDecision{
					ID:            id,
					FinalCategory: category,
					FinalVendor:   vendor,
				})
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			lifecycle, err := newLifecycle(store)
			if err != nil {
				return err
			}

			if err := lifecycle.SaveReview(ctx, scope, decisions); err != nil {
				if errors.Is(err, common.ErrUnknownCategory) {
					return common.NewUserError(
						fmt.Sprintf("%q is not an active category. Use 'bankcat categories list' to see the options.", category), err)
				}
				return fmt.Errorf("failed to save review: %w", err)
			}

			if category == "" {
				printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Cleared the decision of %d lines", len(decisions))))
				return nil
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Set %d lines to %q", len(decisions), category)))
			return nil
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().String("vendor", "", "final vendor name")

	return cmd
}

func reviewAcceptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Accept the confident suggestions of a period",
		Long: `Accept the suggestion of every unreviewed line whose confidence is at
least the threshold (review.accept_min_confidence, 0.80 by default).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}

			minConfidence := appConfig.AcceptMinConfidence
			if cmd.Flags().Changed("min-confidence") {
				minConfidence, _ = cmd.Flags().GetFloat64("min-confidence")
			}
			if minConfidence < 0 || minConfidence > 1 {
				return fmt.Errorf("--min-confidence must be within [0, 1], got %.2f", minConfidence)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			lifecycle, err := newLifecycle(store)
			if err != nil {
				return err
			}

			accepted, err := lifecycle.AcceptSuggestions(ctx, scope, minConfidence)
			if err != nil {
				return fmt.Errorf("failed to accept suggestions: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Accepted %d suggestions at or above %s",
				accepted, cli.FormatConfidence(minConfidence))))
			return nil
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().Float64("min-confidence", 0.80, "minimum confidence to accept")

	return cmd
}
