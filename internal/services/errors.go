package services

import (
	"errors"
	"fmt"

	"outlay/internal/core"
)

// DeletePolicy decides what happens to expenses when their category is
// deleted.
type DeletePolicy string

const (
	// DeleteBlock refuses to delete a category that still has expenses.
	DeleteBlock DeletePolicy = "block"
	// DeleteCascade deletes the category together with its expenses.
	DeleteCascade DeletePolicy = "cascade"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch DeletePolicy(s) {
	case DeleteBlock, DeleteCascade:
		return DeletePolicy(s), nil
	case "":
		return DeleteBlock, nil
	}
	return "", fmt.Errorf("unknown category delete policy %q", s)
}

// CategoryInUseError is returned when DeleteBlock prevents a deletion.
type CategoryInUseError struct {
	ID    string
	Name  string
	Count int
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("category %q is used by %d expense(s)", e.Name, e.Count)
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrMissingCategory,
	core.ErrEmptyCategoryName,
	core.ErrInvalidColor,
	core.ErrUnknownTheme,
	core.ErrUnknownCurrency,
	core.ErrThemeRequiresPro,
}

// IsValidation reports whether err stems from bad user input rather than a
// storage failure.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
