package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/classification"
	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/learning"
	"github.com/Veraticus/bankcat/internal/model"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and seed the learned signals of a client",
		Long: `Show the vendor memory and keyword weights learned from commits, or seed
them by hand before the first commit.`,
	}

	cmd.AddCommand(memoryVendorsCmd())
	cmd.AddCommand(memoryKeywordsCmd())
	cmd.AddCommand(memoryTeachCmd())
	cmd.AddCommand(memorySeedKeywordCmd())

	return cmd
}

func memoryVendorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "List remembered vendors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")
			category, _ := cmd.Flags().GetString("category")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			entries, err := store.ListVendorMemory(ctx, clientID)
			if err != nil {
				return fmt.Errorf("failed to list vendor memory: %w", err)
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				if category != "" && e.Category != category {
					continue
				}
				rows = append(rows, []string{
					e.VendorKey,
					e.Category,
					cli.FormatConfidence(e.Confidence),
					strconv.Itoa(e.TimesConfirmed),
					e.LastSeen.Format("2006-01-02"),
				})
			}

			if len(rows) == 0 {
				printLine(cmd, cli.FormatInfo("No vendors remembered yet. Commit a reviewed period to teach some."))
				return nil
			}
			printTable(cmd, []string{"Vendor", "Category", "Confidence", "Confirmed", "Last seen"}, rows)
			return nil
		},
	}

	addClientFlag(cmd)
	cmd.Flags().String("category", "", "only vendors of this category")

	return cmd
}

func memoryKeywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "List learned keyword weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")
			category, _ := cmd.Flags().GetString("category")
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			weights, err := store.ListKeywordWeights(ctx, clientID)
			if err != nil {
				return fmt.Errorf("failed to list keyword weights: %w", err)
			}

			filtered := make([]model.KeywordWeight, 0, len(weights))
			for _, w := range weights {
				if category == "" || w.Category == category {
					filtered = append(filtered, w)
				}
			}
			sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Weight > filtered[j].Weight })
			if limit > 0 && len(filtered) > limit {
				filtered = filtered[:limit]
			}

			if len(filtered) == 0 {
				printLine(cmd, cli.FormatInfo("No keyword weights learned yet."))
				return nil
			}

			rows := make([][]string, 0, len(filtered))
			for _, w := range filtered {
				rows = append(rows, []string{
					w.Token,
					w.Category,
					strconv.FormatFloat(w.Weight, 'f', 2, 64),
					strconv.Itoa(w.TimesUsed),
				})
			}
			printTable(cmd, []string{"Token", "Category", "Weight", "Used"}, rows)
			return nil
		},
	}

	addClientFlag(cmd)
	cmd.Flags().String("category", "", "only keywords of this category")
	cmd.Flags().Int("limit", 50, "maximum rows to show (0 for all)")

	return cmd
}

func memoryTeachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teach <vendor> <category>",
		Short: "Remember a vendor's category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")
			confidence, _ := cmd.Flags().GetFloat64("confidence")

			key := classification.Normalize(args[0])
			if key == "" {
				return fmt.Errorf("vendor %q has no usable characters", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if _, err := store.GetCategoryByName(ctx, clientID, args[1]); err != nil {
				return fmt.Errorf("unknown category %q: %w", args[1], err)
			}

			if err := store.SetVendorMemory(ctx, model.VendorMemoryEntry{
				ClientID:   clientID,
				VendorKey:  key,
				Category:   args[1],
				Confidence: confidence,
			}); err != nil {
				return err
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Remembered %q as %q", key, args[1])))
			return nil
		},
	}

	addClientFlag(cmd)
	cmd.Flags().Float64("confidence", 0, "memory confidence in (0, 1]; the learning default when unset")

	return cmd
}

func memorySeedKeywordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-keyword <token> <category>",
		Short: "Seed a keyword weight",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")
			weight, _ := cmd.Flags().GetFloat64("weight")

			token := classification.Normalize(args[0])
			if len([]rune(token)) < learning.MinTokenLength {
				return fmt.Errorf("keyword %q is too short", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if _, err := store.GetCategoryByName(ctx, clientID, args[1]); err != nil {
				return fmt.Errorf("unknown category %q: %w", args[1], err)
			}

			if err := store.SetKeywordWeight(ctx, model.KeywordWeight{
				ClientID: clientID,
				Token:    token,
				Category: args[1],
				Weight:   weight,
			}); err != nil {
				return err
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Seeded %q for %q at %.2f", token, args[1], weight)))
			return nil
		},
	}

	addClientFlag(cmd)
	cmd.Flags().Float64("weight", 0.5, "keyword weight")

	return cmd
}
