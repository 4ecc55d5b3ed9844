package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxDescriptionLength bounds the free-text description of an expense.
	MaxDescriptionLength = 200

	secondsPerDay = 24 * 60 * 60

	// DefaultCategoryColor is used when a category is created without one.
	DefaultCategoryColor Color = 0xFF607D8B
)

type (
	// Date is a calendar date without a time component, normalised to UTC midnight.
	Date struct {
		time.Time
	}

	// Money is an amount in cents.
	Money struct {
		Cents int64
	}

	// Color is a packed ARGB value, the way categories have always been stored.
	Color uint32

	Category struct {
		ID    string
		Name  string
		Color Color
	}

	Expense struct {
		ID          int64 // zero until persisted
		Description string
		Amount      Money
		Date        Date
		Category    Category
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrMissingCategory    = errors.New("missing category")
	ErrEmptyCategoryName  = errors.New("empty category name")
	ErrInvalidColor       = errors.New("invalid color")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// DateFromEpochDay is the inverse of Date.EpochDay.
func DateFromEpochDay(day int64) Date {
	return Date{Time: time.Unix(day*secondsPerDay, 0).UTC()}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// EpochDay returns the number of days since 1970-01-01.
func (d Date) EpochDay() int64 {
	return DateOf(d.Time).Unix() / secondsPerDay
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD, the form used by date inputs.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) Before(o Date) bool { return d.EpochDay() < o.EpochDay() }
func (d Date) After(o Date) bool  { return d.EpochDay() > o.EpochDay() }
func (d Date) Equal(o Date) bool  { return d.EpochDay() == o.EpochDay() }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// RGB builds an opaque color.
func RGB(r, g, b uint8) Color {
	return Color(0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// ParseColor accepts #RRGGBB or #AARRGGBB.
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 6:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return 0, ErrInvalidColor
		}
		return Color(0xFF000000 | uint32(v)), nil
	case 8:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return 0, ErrInvalidColor
		}
		return Color(v), nil
	default:
		return 0, ErrInvalidColor
	}
}

// Hex renders the color as #RRGGBB, dropping alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category.ID) == "" {
		return ErrMissingCategory
	}
	return nil
}

// DefaultCategories is the set every new store starts with. IDs are fixed so
// that the SQLite seed migration and the in-memory store agree.
func DefaultCategories() []Category {
	return []Category{
		{ID: "6f1c1d52-52a1-4d8e-9d6b-1a1f6c0b8a01", Name: "Comida", Color: RGB(0xF4, 0x43, 0x36)},
		{ID: "6f1c1d52-52a1-4d8e-9d6b-1a1f6c0b8a02", Name: "Transporte", Color: RGB(0x21, 0x96, 0xF3)},
		{ID: "6f1c1d52-52a1-4d8e-9d6b-1a1f6c0b8a03", Name: "Ocio", Color: RGB(0x9C, 0x27, 0xB0)},
		{ID: "6f1c1d52-52a1-4d8e-9d6b-1a1f6c0b8a04", Name: "Hogar", Color: RGB(0x4C, 0xAF, 0x50)},
		{ID: "6f1c1d52-52a1-4d8e-9d6b-1a1f6c0b8a05", Name: "Salud", Color: RGB(0xFF, 0x98, 0x00)},
	}
}
