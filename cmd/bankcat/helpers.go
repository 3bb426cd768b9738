package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bankcat/internal/classification"
	"github.com/Veraticus/bankcat/internal/cli"
	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/config"
	"github.com/Veraticus/bankcat/internal/engine"
	"github.com/Veraticus/bankcat/internal/learning"
	"github.com/Veraticus/bankcat/internal/model"
	"github.com/Veraticus/bankcat/internal/storage"
)

// appConfig is loaded once by the root command's PersistentPreRunE.
var appConfig *config.Config

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("%w: configuration not loaded", common.ErrMissingConfig)
	}

	store, err := storage.NewSQLiteStorage(appConfig.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newLifecycle wires the engine from configuration. The learner is only
// attached when learning is enabled.
func newLifecycle(store *storage.SQLiteStorage) (*engine.Lifecycle, error) {
	rules, err := appConfig.RuleTable()
	if err != nil {
		return nil, err
	}

	var learner engine.Learner
	if appConfig.LearningEnabled {
		learner = learning.NewUpdater(store, learning.Config{MergeDistance: appConfig.VendorMergeDistance})
	}

	return engine.NewWithConfig(store, classification.NewSuggester(rules), learner, engine.Config{
		Workers:       appConfig.SuggestWorkers,
		RequireReview: appConfig.RequireReview,
	}), nil
}

func closeStore(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func addClientFlag(cmd *cobra.Command) {
	cmd.Flags().Int64("client", 0, "client ID")
	_ = cmd.MarkFlagRequired("client")
}

func addScopeFlags(cmd *cobra.Command) {
	addClientFlag(cmd)
	cmd.Flags().Int64("bank", 0, "bank account ID")
	cmd.Flags().String("period", "", "statement period, e.g. 2025-10")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("period")
}

func scopeFromFlags(cmd *cobra.Command) (model.PeriodScope, error) {
	clientID, _ := cmd.Flags().GetInt64("client")
	bankID, _ := cmd.Flags().GetInt64("bank")
	period, _ := cmd.Flags().GetString("period")

	scope := model.PeriodScope{ClientID: clientID, BankID: bankID, Period: period}
	if err := scope.Validate(); err != nil {
		return scope, err
	}
	return scope, nil
}

// verifyScope checks that the bank belongs to the client before any write.
func verifyScope(ctx context.Context, store *storage.SQLiteStorage, scope model.PeriodScope) (*model.Bank, error) {
	bank, err := store.GetBank(ctx, scope.BankID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewUserError(fmt.Sprintf("Bank %d does not exist", scope.BankID), err)
		}
		return nil, err
	}
	if bank.ClientID != scope.ClientID {
		return nil, common.NewUserError(
			fmt.Sprintf("Bank %d belongs to client %d, not %d", bank.ID, bank.ClientID, scope.ClientID),
			model.ErrInvalidScope)
	}
	return bank, nil
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q", what, arg)
	}
	return id, nil
}

func formatAccuracy(accuracy *float64) string {
	if accuracy == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *accuracy*100)
}

func printLine(cmd *cobra.Command, s string) {
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), s); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}

func printTable(cmd *cobra.Command, headers []string, rows [][]string) {
	if _, err := fmt.Fprint(cmd.OutOrStdout(), cli.RenderTable(headers, rows)); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}
