package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage a client's categories",
		Long: `List, add and deactivate the categories of a client's chart of accounts.

Categories are never deleted because committed rows reference them by name.
Adding a deactivated category again reactivates it.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(deactivateCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")
			all, _ := cmd.Flags().GetBool("all")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			categories, err := store.GetCategories(ctx, clientID, all)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				printLine(cmd, cli.FormatInfo("No categories found. Use 'bankcat categories add' to create one."))
				return nil
			}

			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				status := cli.SuccessStyle.Render("active")
				if !c.IsActive {
					status = cli.SubtleStyle.Render("inactive")
				}
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10), c.Code, c.Name, string(c.Type), string(c.Nature), status,
				})
			}
			printTable(cmd, []string{"ID", "Code", "Name", "Type", "Nature", "Status"}, rows)
			return nil
		},
	}

	addClientFlag(cmd)
	cmd.Flags().Bool("all", false, "include inactive categories")

	return cmd
}

func addCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Long: `Add a category to a client's chart of accounts.

The type is one of Income, Expense or Other. The nature is the side of the
statement the category normally sits on: Dr, Cr or Any.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")
			code, _ := cmd.Flags().GetString("code")
			typeFlag, _ := cmd.Flags().GetString("type")
			natureFlag, _ := cmd.Flags().GetString("nature")

			categoryType, ok := model.ParseCategoryType(typeFlag)
			if !ok {
				return fmt.Errorf("invalid category type %q (want Income, Expense or Other)", typeFlag)
			}

			category := &model.Category{
				ClientID: clientID,
				Code:     code,
				Name:     args[0],
				Type:     categoryType,
				Nature:   model.ParseNature(natureFlag),
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.CreateCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Category %q ready (ID %d, %s, %s)",
				category.Name, category.ID, category.Type, category.Nature)))
			return nil
		},
	}

	addClientFlag(cmd)
	cmd.Flags().String("code", "", "optional account code")
	cmd.Flags().String("type", "Expense", "category type (Income, Expense, Other)")
	cmd.Flags().String("nature", "Any", "category nature (Dr, Cr, Any)")

	return cmd
}

func deactivateCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <name>",
		Short: "Deactivate a category",
		Long: `Deactivate a category so it is no longer suggested or accepted in review.
Committed rows keep their category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.SetCategoryActive(ctx, clientID, args[0], false); err != nil {
				return fmt.Errorf("failed to deactivate category: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Deactivated category %q", args[0])))
			return nil
		},
	}

	addClientFlag(cmd)

	return cmd
}
