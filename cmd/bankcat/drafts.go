package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/engine"
	"github.com/Veraticus/bankcat/internal/model"
)

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect and discard draft periods",
		Long:  `List the draft lines of a period, show one line in detail, or discard a whole period.`,
	}

	cmd.AddCommand(listDraftsCmd())
	cmd.AddCommand(showDraftCmd())
	cmd.AddCommand(deleteDraftsCmd())
	cmd.AddCommand(periodsCmd())

	return cmd
}

// needsAttention reports rows a reviewer should look at first.
func needsAttention(d *model.DraftTransaction) bool {
	if d.IsReviewed() {
		return false
	}
	return d.SuggestedCategory == "" || d.Confidence < engine.LowConfidenceThreshold
}

func amountCell(d *model.DraftTransaction) string {
	if d.Debit.IsPositive() {
		return cli.ErrorStyle.Render("-" + d.Debit.StringFixed(2))
	}
	return cli.SuccessStyle.Render(d.Credit.StringFixed(2))
}

func listDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the draft lines of a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}
			attention, _ := cmd.Flags().GetBool("attention")
			width, _ := cmd.Flags().GetInt("width")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			drafts, err := store.ListDrafts(ctx, scope)
			if err != nil {
				return fmt.Errorf("failed to list drafts: %w", err)
			}

			rows := make([][]string, 0, len(drafts))
			reviewed := 0
			for i := range drafts {
				d := &drafts[i]
				if d.IsReviewed() {
					reviewed++
				}
				if attention && !needsAttention(d) {
					continue
				}

				category := d.SuggestedCategory
				confidence := cli.FormatConfidence(d.Confidence)
				if d.IsReviewed() {
					category = cli.SuccessStyle.Render(d.FinalCategory)
					confidence = cli.SubtleStyle.Render("reviewed")
				}
				rows = append(rows, []string{
					strconv.FormatInt(d.ID, 10),
					d.Date.Format("2006-01-02"),
					cli.Truncate(d.Description, width),
					amountCell(d),
					category,
					confidence,
				})
			}

			if len(rows) == 0 {
				printLine(cmd, cli.FormatInfo(fmt.Sprintf("No draft lines to show for %s.", scope.Period)))
				return nil
			}

			printTable(cmd, []string{"ID", "Date", "Description", "Amount", "Category", "Confidence"}, rows)
			printLine(cmd, cli.SubtleStyle.Render(fmt.Sprintf("%d lines, %d reviewed", len(drafts), reviewed)))
			return nil
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().Bool("attention", false, "only unreviewed lines with no or low-confidence suggestions")
	cmd.Flags().Int("width", 40, "maximum description width")

	return cmd
}

func showDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one draft line in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "draft")
			if err != nil {
				return err
			}
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			alternatives, _ := cmd.Flags().GetInt("alternatives")

			drafts, err := store.ListDrafts(ctx, scope)
			if err != nil {
				return fmt.Errorf("failed to list drafts: %w", err)
			}

			var draft *model.DraftTransaction
			for i := range drafts {
				if drafts[i].ID == id {
					draft = &drafts[i]
					break
				}
			}
			if draft == nil {
				return fmt.Errorf("draft %d not found in %s", id, scope.Period)
			}
			printLine(cmd, cli.RenderBox(fmt.Sprintf("Draft %d", id), describeDraft(draft)))

			if alternatives <= 0 {
				return nil
			}
			lifecycle, err := newLifecycle(store)
			if err != nil {
				return err
			}
			ranked, err := lifecycle.Alternatives(ctx, scope, id, alternatives)
			if err != nil {
				return fmt.Errorf("failed to rank categories: %w", err)
			}
			if len(ranked) == 0 {
				printLine(cmd, cli.SubtleStyle.Render("No category scored for this line."))
				return nil
			}
			printTable(cmd, []string{"Rank", "Category", "Score", "Match", "Evidence"}, rankingRows(ranked))
			return nil
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().Int("alternatives", 3, "ranked candidate categories to show (0 to hide)")

	return cmd
}

func describeDraft(d *model.DraftTransaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date:         %s\n", d.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Description:  %s\n", d.Description)
	fmt.Fprintf(&b, "Debit:        %s\n", d.Debit.StringFixed(2))
	fmt.Fprintf(&b, "Credit:       %s\n", d.Credit.StringFixed(2))
	if d.Balance.Valid {
		fmt.Fprintf(&b, "Balance:      %s\n", d.Balance.Decimal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Status:       %s\n", d.Status)
	fmt.Fprintf(&b, "Suggested:    %s (%s)\n", valueOrDash(d.SuggestedCategory), cli.FormatConfidence(d.Confidence))
	fmt.Fprintf(&b, "Vendor:       %s\n", valueOrDash(d.SuggestedVendor))
	fmt.Fprintf(&b, "Reason:       %s\n", valueOrDash(d.Reason))
	fmt.Fprintf(&b, "Final:        %s\n", valueOrDash(d.FinalCategory))
	fmt.Fprintf(&b, "Final vendor: %s\n", valueOrDash(d.FinalVendor))
	fmt.Fprintf(&b, "Import:       %s", d.ImportID)
	return b.String()
}

func rankingRows(ranked model.CategoryScores) [][]string {
	rows := make([][]string, 0, len(ranked))
	for i, s := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.Category.Name,
			strconv.FormatFloat(s.Score, 'f', 2, 64),
			string(s.Kind),
			valueOrDash(strings.Join(s.Reasons, "; ")),
		})
	}
	return rows
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func deleteDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Discard every draft line of a period",
		Long: `Discard every draft line of a period. Committed ledgers and learned
signals are not touched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			scope, err := scopeFromFlags(cmd)
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if !yes {
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				ok, err := cli.Confirm(ctx, reader, cmd.OutOrStdout(),
					fmt.Sprintf("Discard all drafts of %s?", scope.Period))
				if err != nil {
					return err
				}
				if !ok {
					printLine(cmd, cli.FormatInfo("Nothing deleted."))
					return nil
				}
			}

			n, err := store.DeletePeriod(ctx, scope)
			if err != nil {
				return fmt.Errorf("failed to delete drafts: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted %d draft lines from %s", n, scope.Period)))
			return nil
		},
	}

	addScopeFlags(cmd)
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	return cmd
}

func periodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "List the periods that have drafts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")
			bankID, _ := cmd.Flags().GetInt64("bank")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			lifecycle, err := newLifecycle(store)
			if err != nil {
				return err
			}

			periods, err := store.ListPeriods(ctx, clientID, bankID)
			if err != nil {
				return fmt.Errorf("failed to list periods: %w", err)
			}

			if len(periods) == 0 {
				printLine(cmd, cli.FormatInfo("No draft periods."))
				return nil
			}

			rows := make([][]string, 0, len(periods))
			for _, p := range periods {
				state, err := lifecycle.State(ctx, model.PeriodScope{ClientID: clientID, BankID: bankID, Period: p.Period})
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					p.Period,
					string(state),
					strconv.Itoa(p.Rows),
					strconv.Itoa(p.Reviewed),
					p.FirstDate.Format("2006-01-02"),
					p.LastDate.Format("2006-01-02"),
				})
			}
			printTable(cmd, []string{"Period", "State", "Rows", "Reviewed", "From", "To"}, rows)
			return nil
		},
	}

	addClientFlag(cmd)
	cmd.Flags().Int64("bank", 0, "bank account ID")
	_ = cmd.MarkFlagRequired("bank")

	return cmd
}
