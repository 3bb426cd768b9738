package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/bankcat/internal/config"
	"github.com/Veraticus/bankcat/internal/model"
	"github.com/Veraticus/bankcat/internal/storage"
)

const octoberCSV = `Date,Description,Debit,Credit,Balance
2025-10-01,POS PURCHASE UBER TRIP 123456 REF9988,25.00,,975.00
2025-10-02,MONTHLY FEE,5.50,,969.50
2025-10-03,EFT ACME HOLDINGS INVOICE 2231,,1200.00,2169.50
`

func setupApp(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bankcat.db")
	appConfig = &config.Config{
		DatabasePath:        dbPath,
		LogLevel:            "error",
		SuggestWorkers:      2,
		VendorMergeDistance: 2,
		AcceptMinConfidence: 0.80,
		LearningEnabled:     true,
	}
	t.Cleanup(func() { appConfig = nil })
	return dbPath
}

func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	out, err := run(t, cmd, "", args...)
	require.NoError(t, err, out)
	return out
}

func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

func TestCommandTree(t *testing.T) {
	tests := map[string][]string{
		"clients":    {"add", "list"},
		"banks":      {"add", "list"},
		"categories": {"add", "list", "deactivate"},
		"drafts":     {"list", "show", "delete", "periods"},
		"review":     {"set", "accept"},
		"commits":    {"list", "show"},
		"memory":     {"vendors", "keywords", "teach", "seed-keyword"},
		"export":     {"sheets"},
		"auth":       {"sheets"},
	}

	for group, subs := range tests {
		cmd := findSubcommand(rootCmd, group)
		require.NotNil(t, cmd, "missing command %s", group)
		for _, sub := range subs {
			assert.NotNil(t, findSubcommand(cmd, sub), "missing %s %s", group, sub)
		}
	}

	for _, name := range []string{"migrate", "import", "suggest", "commit", "version"} {
		assert.NotNil(t, findSubcommand(rootCmd, name), "missing command %s", name)
	}
}

func TestReviewAcceptDefaultThreshold(t *testing.T) {
	flag := reviewAcceptCmd().Flag("min-confidence")
	require.NotNil(t, flag)
	assert.Equal(t, "0.8", flag.DefValue)
}

func TestScopeFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	addScopeFlags(cmd)

	require.NoError(t, cmd.Flags().Set("client", "1"))
	require.NoError(t, cmd.Flags().Set("bank", "2"))
	_, err := scopeFromFlags(cmd)
	assert.ErrorIs(t, err, model.ErrInvalidScope)

	require.NoError(t, cmd.Flags().Set("period", "2025-10"))
	scope, err := scopeFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, model.PeriodScope{ClientID: 1, BankID: 2, Period: "2025-10"}, scope)
}

func TestFormatAccuracy(t *testing.T) {
	assert.Equal(t, "-", formatAccuracy(nil))
	accuracy := 2.0 / 3.0
	assert.Equal(t, "67%", formatAccuracy(&accuracy))
}

func TestNeedsAttention(t *testing.T) {
	tests := []struct {
		name  string
		draft model.DraftTransaction
		want  bool
	}{
		{name: "no suggestion", draft: model.DraftTransaction{}, want: true},
		{name: "low confidence", draft: model.DraftTransaction{SuggestedCategory: "Sales", Confidence: 0.3}, want: true},
		{name: "confident", draft: model.DraftTransaction{SuggestedCategory: "Sales", Confidence: 0.9}, want: false},
		{name: "reviewed", draft: model.DraftTransaction{FinalCategory: "Sales"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsAttention(&tt.draft))
		})
	}
}

func TestMigrateStatus(t *testing.T) {
	setupApp(t)

	out := mustRun(t, migrateCmd())
	assert.Contains(t, out, "Migrated database from version 0")

	out = mustRun(t, migrateCmd(), "--status")
	assert.Contains(t, out, "schema version")

	out = mustRun(t, migrateCmd())
	assert.Contains(t, out, "already at schema version")
}

func TestCategoryDeactivateHidesFromList(t *testing.T) {
	setupApp(t)

	mustRun(t, clientsCmd(), "add", "Acme Trading")
	mustRun(t, categoriesCmd(), "add", "Sales", "--client", "1", "--type", "Income", "--nature", "Cr")
	mustRun(t, categoriesCmd(), "add", "Old Expenses", "--client", "1")

	out := mustRun(t, categoriesCmd(), "deactivate", "Old Expenses", "--client", "1")
	assert.Contains(t, out, "Deactivated")

	out = mustRun(t, categoriesCmd(), "list", "--client", "1")
	assert.Contains(t, out, "Sales")
	assert.NotContains(t, out, "Old Expenses")

	out = mustRun(t, categoriesCmd(), "list", "--client", "1", "--all")
	assert.Contains(t, out, "Old Expenses")
	assert.Contains(t, out, "inactive")

	_, err := run(t, categoriesCmd(), "", "add", "Bad", "--client", "1", "--type", "Liability")
	assert.Error(t, err)
}

func TestStatementFlow(t *testing.T) {
	dbPath := setupApp(t)

	statement := filepath.Join(t.TempDir(), "october.csv")
	require.NoError(t, os.WriteFile(statement, []byte(octoberCSV), 0o600))

	mustRun(t, clientsCmd(), "add", "Acme Trading", "--country", "ZA")
	mustRun(t, banksCmd(), "add", "FNB Business", "--client", "1", "--type", "Business Current", "--account", "****1234")
	for _, args := range [][]string{
		{"add", "Sales", "--client", "1", "--type", "Income", "--nature", "Cr"},
		{"add", "Bank Charges", "--client", "1", "--type", "Expense", "--nature", "Dr"},
		{"add", "Travel Expenses", "--client", "1", "--type", "Expense", "--nature", "Any"},
	} {
		mustRun(t, categoriesCmd(), args...)
	}

	scope := []string{"--client", "1", "--bank", "1", "--period", "2025-10"}

	out := mustRun(t, importCmd(), append([]string{statement}, scope...)...)
	assert.Contains(t, out, "Imported 3 new lines")

	out = mustRun(t, importCmd(), append([]string{statement}, scope...)...)
	assert.Contains(t, out, "Imported 0 new lines")
	assert.Contains(t, out, "Skipped 3 lines already drafted")

	out = mustRun(t, suggestCmd(), append([]string{"--no-progress"}, scope...)...)
	assert.Contains(t, out, "rule_match")

	out = mustRun(t, reviewCmd(), append([]string{"accept"}, scope...)...)
	assert.Contains(t, out, "Accepted")

	_, err := run(t, reviewCmd(), "", append([]string{"set", "Marketing", "3"}, scope...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an active category")

	mustRun(t, reviewCmd(), append([]string{"set", "Sales", "3", "--vendor", "Acme Holdings"}, scope...)...)

	out = mustRun(t, draftsCmd(), append([]string{"show", "3"}, scope...)...)
	assert.Contains(t, out, "Acme Holdings")

	out = mustRun(t, draftsCmd(), append([]string{"show", "1", "--alternatives", "2"}, scope...)...)
	assert.Contains(t, out, "Rank")
	assert.Contains(t, out, "Travel Expenses")

	out = mustRun(t, draftsCmd(), "periods", "--client", "1", "--bank", "1")
	assert.Contains(t, out, string(model.PeriodReviewed))

	out, err = run(t, commitCmd(), "n\n", scope...)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing committed.")

	out = mustRun(t, commitCmd(), append([]string{"--yes", "--by", "tester"}, scope...)...)
	assert.Contains(t, out, "Committed")

	out = mustRun(t, draftsCmd(), append([]string{"list"}, scope...)...)
	assert.Contains(t, out, "No draft lines")

	out = mustRun(t, commitsCmd(), "list", "--client", "1")
	assert.Contains(t, out, "2025-10")
	assert.Contains(t, out, "tester")

	out = mustRun(t, commitsCmd(), "show", "1")
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "MONTHLY FEE")

	out = mustRun(t, memoryCmd(), "vendors", "--client", "1")
	assert.Contains(t, out, "acme holdings")

	out = mustRun(t, memoryCmd(), "keywords", "--client", "1", "--category", "Sales")
	assert.Contains(t, out, "invoice")

	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	n, err := store.CountCommits(context.Background(), model.PeriodScope{ClientID: 1, BankID: 1, Period: "2025-10"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportRejectsForeignBank(t *testing.T) {
	setupApp(t)

	statement := filepath.Join(t.TempDir(), "october.csv")
	require.NoError(t, os.WriteFile(statement, []byte(octoberCSV), 0o600))

	mustRun(t, clientsCmd(), "add", "Acme Trading")
	mustRun(t, clientsCmd(), "add", "Other Co")
	mustRun(t, banksCmd(), "add", "Other Bank", "--client", "2")

	_, err := run(t, importCmd(), "", statement, "--client", "1", "--bank", "1", "--period", "2025-10")
	assert.ErrorIs(t, err, model.ErrInvalidScope)
}

func TestMemoryTeachAndSeed(t *testing.T) {
	setupApp(t)

	mustRun(t, clientsCmd(), "add", "Acme Trading")
	mustRun(t, categoriesCmd(), "add", "Software Subscriptions", "--client", "1", "--nature", "Dr")

	out := mustRun(t, memoryCmd(), "teach", "GitHub Inc", "Software Subscriptions", "--client", "1", "--confidence", "0.9")
	assert.Contains(t, out, "github inc")

	out = mustRun(t, memoryCmd(), "seed-keyword", "Hosting", "Software Subscriptions", "--client", "1", "--weight", "0.4")
	assert.Contains(t, out, "hosting")

	_, err := run(t, memoryCmd(), "", "teach", "GitHub Inc", "Unknown", "--client", "1")
	assert.Error(t, err)

	_, err = run(t, memoryCmd(), "", "seed-keyword", "ab", "Software Subscriptions", "--client", "1")
	assert.Error(t, err)

	out = mustRun(t, memoryCmd(), "vendors", "--client", "1")
	assert.Contains(t, out, "github inc")
	assert.Contains(t, out, "0.90")
}
