package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/model"
)

func clientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage clients",
		Long:  `Register the businesses whose bank statements are categorized.`,
	}

	cmd.AddCommand(addClientCmd())
	cmd.AddCommand(listClientsCmd())

	return cmd
}

func addClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			industry, _ := cmd.Flags().GetString("industry")
			country, _ := cmd.Flags().GetString("country")
			description, _ := cmd.Flags().GetString("description")

			client := &model.Client{
				Name:        args[0],
				Industry:    industry,
				Country:     country,
				Description: description,
			}
			if err := store.CreateClient(ctx, client); err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Created client %q with ID %d", client.Name, client.ID)))
			return nil
		},
	}

	cmd.Flags().String("industry", "", "industry the client operates in")
	cmd.Flags().String("country", "", "country code, e.g. ZA")
	cmd.Flags().String("description", "", "free-text description")

	return cmd
}

func listClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			clients, err := store.ListClients(ctx)
			if err != nil {
				return fmt.Errorf("failed to list clients: %w", err)
			}

			if len(clients) == 0 {
				printLine(cmd, cli.FormatInfo("No clients found. Use 'bankcat clients add' to create one."))
				return nil
			}

			rows := make([][]string, 0, len(clients))
			for _, c := range clients {
				rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, c.Industry, c.Country})
			}
			printTable(cmd, []string{"ID", "Name", "Industry", "Country"}, rows)
			return nil
		},
	}
}

func banksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banks",
		Short: "Manage bank accounts",
		Long:  `Register the bank accounts of a client. The account type steers suggestions.`,
	}

	cmd.AddCommand(addBankCmd())
	cmd.AddCommand(listBanksCmd())

	return cmd
}

func addBankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a bank account for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			clientID, _ := cmd.Flags().GetInt64("client")
			account, _ := cmd.Flags().GetString("account")
			accountType, _ := cmd.Flags().GetString("type")
			currency, _ := cmd.Flags().GetString("currency")
			opening, _ := cmd.Flags().GetString("opening-balance")

			bank := &model.Bank{
				ClientID:      clientID,
				Name:          args[0],
				AccountMasked: account,
				AccountType:   accountType,
				Currency:      currency,
			}
			if opening != "" {
				amount, err := decimal.NewFromString(opening)
				if err != nil {
					return fmt.Errorf("invalid opening balance %q: %w", opening, err)
				}
				bank.OpeningBalance = decimal.NewNullDecimal(amount.Round(2))
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.CreateBank(ctx, bank); err != nil {
				return fmt.Errorf("failed to create bank: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Created bank %q with ID %d", bank.Name, bank.ID)))
			return nil
		},
	}

	addClientFlag(cmd)
	cmd.Flags().String("account", "", "masked account number, e.g. ****1234")
	cmd.Flags().String("type", "", "account type, e.g. \"Business Current\" or \"Credit Card\"")
	cmd.Flags().String("currency", "ZAR", "account currency")
	cmd.Flags().String("opening-balance", "", "opening balance")

	return cmd
}

func listBanksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the bank accounts of a client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetInt64("client")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			banks, err := store.ListBanks(ctx, clientID)
			if err != nil {
				return fmt.Errorf("failed to list banks: %w", err)
			}

			if len(banks) == 0 {
				printLine(cmd, cli.FormatInfo("No bank accounts found. Use 'bankcat banks add' to create one."))
				return nil
			}

			rows := make([][]string, 0, len(banks))
			for _, b := range banks {
				opening := "-"
				if b.OpeningBalance.Valid {
					opening = b.OpeningBalance.Decimal.StringFixed(2)
				}
				rows = append(rows, []string{
					strconv.FormatInt(b.ID, 10), b.Name, b.AccountMasked, b.AccountType, b.Currency, opening,
				})
			}
			printTable(cmd, []string{"ID", "Name", "Account", "Type", "Currency", "Opening"}, rows)
			return nil
		},
	}

	addClientFlag(cmd)

	return cmd
}
