package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/model"
)

func commitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit a reviewed period into the ledger",
		Long: `Copy every draft line of the period into the immutable committed ledger,
record the suggestion accuracy and clear the drafts. The commit then
teaches the client's vendor memory and keyword weights.

Lines without a reviewed category take their suggestion unless
commit.require_review is set.`,
		RunE: runCommit,
	}

	addScopeFlags(cmd)
	cmd.Flags().String("by", "", "who is committing (default: $USER)")
	cmd.Flags().String("notes", "", "notes stored with the commit")
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	return cmd
}

func runCommit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	scope, err := scopeFromFlags(cmd)
	if err != nil {
		return err
	}
	committedBy, _ := cmd.Flags().GetString("by")
	if committedBy == "" {
		committedBy = os.Getenv("USER")
	}
	notes, _ := cmd.Flags().GetString("notes")
	yes, _ := cmd.Flags().GetBool("yes")

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

	if !yes {
		drafts, err := store.ListDrafts(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to load drafts: %w", err)
		}
		reviewed := 0
		for i := range drafts {
			if drafts[i].IsReviewed() {
				reviewed++
			}
		}

		reader := cli.NewNonBlockingReader(cmd.InOrStdin())
		ok, err := cli.Confirm(ctx, reader, cmd.OutOrStdout(),
			fmt.Sprintf("Commit %d lines of %s (%d reviewed)?", len(drafts), scope.Period, reviewed))
		if err != nil {
			return err
		}
		if !ok {
			printLine(cmd, cli.FormatInfo("Nothing committed."))
			return nil
		}
	}

	record, _, err := lifecycle.Commit(ctx, scope, committedBy, notes)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNothingToCommit):
			return common.NewUserError(fmt.Sprintf("There are no draft lines for %s.", scope.Period), err)
		case errors.Is(err, common.ErrUnreviewedRows):
			return common.NewUserError("Some lines have no reviewed category. Review them or run 'bankcat review accept'.", err)
		}
		return err
	}

	content := fmt.Sprintf("Commit:     %d\nPeriod:     %s\nRows:       %d\nAccuracy:   %s\nCommitted:  %s",
		record.ID, record.Period, record.RowsCommitted, formatAccuracy(record.Accuracy),
		record.CommittedAt.Format("2006-01-02 15:04"))
	printLine(cmd, cli.RenderBox("Committed", content))
	if appConfig.LearningEnabled {
		printLine(cmd, cli.FormatInfo("Vendor memory and keyword weights were updated."))
	}
	return nil
}

func commitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commits",
		Short: "Inspect committed ledgers",
	}

	cmd.AddCommand(listCommitsCmd())
	cmd.AddCommand(showCommitCmd())

	return cmd
}

func listCommitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List commits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")
			bankID, _ := cmd.Flags().GetInt64("bank")
			period, _ := cmd.Flags().GetString("period")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			commits, err := store.ListCommits(ctx, clientID, bankID, period)
			if err != nil {
				return fmt.Errorf("failed to list commits: %w", err)
			}

			if len(commits) == 0 {
				printLine(cmd, cli.FormatInfo("No commits found."))
				return nil
			}

			rows := make([][]string, 0, len(commits))
			for _, c := range commits {
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					strconv.FormatInt(c.ClientID, 10),
					strconv.FormatInt(c.BankID, 10),
					c.Period,
					strconv.Itoa(c.RowsCommitted),
					formatAccuracy(c.Accuracy),
					c.CommittedBy,
					c.CommittedAt.Format("2006-01-02 15:04"),
				})
			}
			printTable(cmd, []string{"ID", "Client", "Bank", "Period", "Rows", "Accuracy", "By", "At"}, rows)
			return nil
		},
	}

	cmd.Flags().Int64("client", 0, "filter by client ID")
	cmd.Flags().Int64("bank", 0, "filter by bank ID")
	cmd.Flags().String("period", "", "filter by period")

	return cmd
}

func showCommitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the ledger of one commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "commit")
			if err != nil {
				return err
			}
			width, _ := cmd.Flags().GetInt("width")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			record, err := store.GetCommit(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get commit: %w", err)
			}
			txns, err := store.GetCommittedTransactions(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get committed transactions: %w", err)
			}

			summary := fmt.Sprintf("Period:     %s\nRows:       %d\nAccuracy:   %s\nBy:         %s\nAt:         %s",
				record.Period, record.RowsCommitted, formatAccuracy(record.Accuracy),
				valueOrDash(record.CommittedBy), record.CommittedAt.Format("2006-01-02 15:04"))
			if record.Notes != "" {
				summary += "\nNotes:      " + record.Notes
			}
			printLine(cmd, cli.RenderBox(fmt.Sprintf("Commit %d", record.ID), summary))

			rows := make([][]string, 0, len(txns))
			for i := range txns {
				rows = append(rows, committedRow(&txns[i], width))
			}
			printTable(cmd, []string{"Date", "Description", "Debit", "Credit", "Category", "Vendor", "Suggested"}, rows)
			return nil
		},
	}

	cmd.Flags().Int("width", 40, "maximum description width")

	return cmd
}

func committedRow(t *model.CommittedTransaction, width int) []string {
	suggested := t.SuggestedCategory
	if suggested != "" && suggested != t.Category {
		suggested = cli.WarningStyle.Render(suggested)
	}
	return []string{
		t.Date.Format("2006-01-02"),
		cli.Truncate(t.Description, width),
		t.Debit.StringFixed(2),
		t.Credit.StringFixed(2),
		t.Category,
		valueOrDash(t.Vendor),
		valueOrDash(suggested),
	}
}
