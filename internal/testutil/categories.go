package testutil

import (
	"testing"

	"github.com/Veraticus/bankcat/internal/model"
)

// CategoryName represents a strongly-typed category name.
type CategoryName string

// String returns the string representation of the category name.
func (c CategoryName) String() string {
	return string(c)
}

// Category names used across tests.
const (
	CategorySales          CategoryName = "Sales"
	CategoryInterest       CategoryName = "Interest Received"
	CategoryBankCharges    CategoryName = "Bank Charges"
	CategoryCashWithdrawal CategoryName = "Cash Withdrawal"
	CategoryTravel         CategoryName = "Travel Expenses"
	CategorySoftware       CategoryName = "Software Subscriptions"
	CategoryTransfer       CategoryName = "Internal Transfer"
)

// CategorySpec describes a category to seed.
type CategorySpec struct {
	Name   CategoryName
	Type   model.CategoryType
	Nature model.Nature
}

// BasicCategories is a small, realistic category master for one client.
func BasicCategories() []CategorySpec {
	return []CategorySpec{
		{Name: CategorySales, Type: model.CategoryTypeIncome, Nature: model.NatureCredit},
		{Name: CategoryInterest, Type: model.CategoryTypeIncome, Nature: model.NatureCredit},
		{Name: CategoryBankCharges, Type: model.CategoryTypeExpense, Nature: model.NatureDebit},
		{Name: CategoryCashWithdrawal, Type: model.CategoryTypeExpense, Nature: model.NatureDebit},
		{Name: CategoryTravel, Type: model.CategoryTypeExpense, Nature: model.NatureAny},
		{Name: CategorySoftware, Type: model.CategoryTypeExpense, Nature: model.NatureDebit},
		{Name: CategoryTransfer, Type: model.CategoryTypeOther, Nature: model.NatureAny},
	}
}

// Categories represents a collection of created test categories.
type Categories []model.Category

// Find returns the category with the given name, or nil if not found.
func (c Categories) Find(name CategoryName) *model.Category {
	for i := range c {
		if c[i].Name == name.String() {
			return &c[i]
		}
	}
	return nil
}

// MustFind returns the category with the given name, or fails the test if not found.
func (c Categories) MustFind(t *testing.T, name CategoryName) model.Category {
	t.Helper()
	cat := c.Find(name)
	if cat == nil {
		t.Fatalf("category %q not found in test data", name)
	}
	return *cat
}

// Names returns all category names as a slice of strings.
func (c Categories) Names() []string {
	names := make([]string, len(c))
	for i, cat := range c {
		names[i] = cat.Name
	}
	return names
}
