// Package storage provides the SQLite persistence layer for bankcat.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/bankcat/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidID       = errors.New("invalid identifier")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidBank     = errors.New("invalid bank")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s=%d", ErrInvalidID, paramName, id)
	}
	return nil
}

func validateScope(ctx context.Context, scope model.PeriodScope) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return scope.Validate()
}

func validateCategory(cat *model.Category) error {
	if cat == nil {
		return fmt.Errorf("%w: nil category", ErrInvalidCategory)
	}
	if err := validateID(cat.ClientID, "client_id"); err != nil {
		return err
	}
	if strings.TrimSpace(cat.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if _, ok := model.ParseCategoryType(string(cat.Type)); !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCategory, cat.Type)
	}
	switch cat.Nature {
	case model.NatureDebit, model.NatureCredit, model.NatureAny:
	default:
		return fmt.Errorf("%w: unknown nature %q", ErrInvalidCategory, cat.Nature)
	}
	return nil
}

func validateBank(bank *model.Bank) error {
	if bank == nil {
		return fmt.Errorf("%w: nil bank", ErrInvalidBank)
	}
	if err := validateID(bank.ClientID, "client_id"); err != nil {
		return err
	}
	if strings.TrimSpace(bank.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBank)
	}
	return nil
}
