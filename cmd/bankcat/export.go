package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/config"
	"github.com/Veraticus/bankcat/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export committed ledgers",
	}

	cmd.AddCommand(exportSheetsCmd())

	return cmd
}

func exportSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets <commit-id>",
		Short: "Export a commit to Google Sheets",
		Long: `Write one commit to its own tab of the configured spreadsheet: a summary,
a per-category breakdown and the full ledger.

Credentials come from the sheets.* config keys or GOOGLE_SHEETS_* environment
variables. Run 'bankcat auth sheets' once to set up OAuth2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "commit")
			if err != nil {
				return err
			}

			sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("google sheets is not configured: %w", err)
			}
			if spreadsheetID, _ := cmd.Flags().GetString("spreadsheet-id"); spreadsheetID != "" {
				sheetsConfig.SpreadsheetID = spreadsheetID
			}

			interruptHandler := cli.NewInterruptHandler(cmd.OutOrStdout())
			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			ctx := interruptHandler.HandleInterrupts(runCtx, "Export")

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

			writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
			if err != nil {
				return fmt.Errorf("failed to create sheets writer: %w", err)
			}

			spreadsheetID, err := writer.WriteCommit(ctx, record, txns)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Exported %d rows to tab %q", len(txns), sheets.SheetTitle(record))))
			printLine(cmd, cli.FormatInfo("https://docs.google.com/spreadsheets/d/"+spreadsheetID))
			return nil
		},
	}

	cmd.Flags().String("spreadsheet-id", "", "spreadsheet to write to (overrides sheets.spreadsheet_id)")

	return cmd
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command opens a local callback server, prints the consent URL and saves
the resulting token to sheets.token_file. You only need to run it once.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := viper.GetString("sheets.client_id")
			clientSecret := viper.GetString("sheets.client_secret")

			if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
				clientID = flagID
			}
			if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
				clientSecret = flagSecret
			}
			if clientID == "" {
				clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
			}
			if clientSecret == "" {
				clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
			}
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret or use --client-id and --client-secret")
			}

			tokenFile := config.ExpandPath(viper.GetString("sheets.token_file"))
			if tokenFile == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("failed to get home directory: %w", err)
				}
				tokenFile = filepath.Join(home, ".config", "bankcat", "sheets-token.json")
			}
			listen, _ := cmd.Flags().GetString("listen")

			slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

			if _, err := sheets.AuthenticateOAuth2Interactive(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    tokenFile,
				ListenAddr:   listen,
			}); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			printLine(cmd, cli.FormatSuccess("Google Sheets authentication saved to "+tokenFile))
			printLine(cmd, cli.FormatInfo("Set sheets.token_file to this path if it is not already configured."))
			return nil
		},
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("listen", "localhost:8080", "callback listener address")

	return cmd
}
