// Package testutil provides database fixtures for tests: an in-memory store
// with a migrated schema, one client, one bank and a category master.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/bankcat/internal/model"
	"github.com/Veraticus/bankcat/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	Categories Categories
	Client     model.Client
	Bank       model.Bank
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	AccountType string
	Categories  []CategorySpec
}

// SetupTestDB creates a migrated in-memory database seeded with a client,
// a current-account bank and the given categories.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.BasicCategories())
//	scope := db.Scope("2025-10")
func SetupTestDB(t *testing.T, cats []CategorySpec) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Categories: cats})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	client := model.Client{Name: "Test Client", Country: "ZA"}
	if err := store.CreateClient(ctx, &client); err != nil {
		t.Fatalf("failed to seed client: %v", err)
	}

	accountType := opts.AccountType
	if accountType == "" {
		accountType = "Business Current"
	}
	bank := model.Bank{ClientID: client.ID, Name: "Test Bank", AccountMasked: "****0001", AccountType: accountType, Currency: "ZAR"}
	if err := store.CreateBank(ctx, &bank); err != nil {
		t.Fatalf("failed to seed bank: %v", err)
	}

	created := make(Categories, 0, len(opts.Categories))
	for _, c := range opts.Categories {
		cat := model.Category{ClientID: client.ID, Name: c.Name.String(), Type: c.Type, Nature: c.Nature}
		if err := store.CreateCategory(ctx, &cat); err != nil {
			t.Fatalf("failed to seed category %q: %v", c.Name, err)
		}
		created = append(created, cat)
	}

	return &TestDB{
		Storage:    store,
		Categories: created,
		Client:     client,
		Bank:       bank,
		t:          t,
	}
}

// Scope returns the period scope of the seeded client and bank.
func (db *TestDB) Scope(period string) model.PeriodScope {
	return model.PeriodScope{ClientID: db.Client.ID, BankID: db.Bank.ID, Period: period}
}

// MustGetCategory returns the category with the given name or fails the test.
func (db *TestDB) MustGetCategory(name CategoryName) model.Category {
	db.t.Helper()
	return db.Categories.MustFind(db.t, name)
}
