package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxCodeLength   = 64
	MaxNameLength   = 255
	MinNameLength   = 1
	MaxMemoLength   = 1000
	MaxEntryLines   = 500
	MaxImportRows   = 5000
	MaxPageSize     = 1000
	DefaultPageSize = 50
)

// MaxLineAmount bounds a single debit or credit.
var MaxLineAmount = decimal.New(1, 12)

// ValidateName validates a directory display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	}

	return nil
}

// ValidateMemo validates free-text memos.
func ValidateMemo(memo string) error {
	if len(memo) > MaxMemoLength {
		return fmt.Errorf("%w: memo exceeds %d characters", ErrValidation, MaxMemoLength)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}

// NormalizeCode trims a directory code.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}
