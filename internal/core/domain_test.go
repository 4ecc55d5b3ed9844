package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestEpochDayRoundTrip(t *testing.T) {
	d := NewDate(2025, 3, 15)
	day := d.EpochDay()
	if day != 20162 {
		t.Fatalf("epoch day = %d, want 20162", day)
	}
	if got := DateFromEpochDay(day); !got.Equal(d) || got.String() != "2025-03-15" {
		t.Fatalf("round trip got %s", got)
	}
	if NewDate(1970, 1, 1).EpochDay() != 0 {
		t.Fatalf("epoch should be day 0")
	}
}

func TestDateOfIgnoresClock(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	ts := time.Date(2025, 3, 15, 23, 30, 0, 0, loc)
	if got := DateOf(ts).String(); got != "2025-03-15" {
		t.Fatalf("DateOf = %s", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil || d.Day() != 29 || d.Month() != 2 || d.Year() != 2024 {
		t.Fatalf("unexpected %v %v", d, err)
	}
	for _, bad := range []string{"", "2023-02-29", "15/03/2025", "2025-13-01"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestExpenseValidate(t *testing.T) {
	ocio := Category{ID: "ocio", Name: "Ocio"}
	good := Expense{
		Date:        NewDate(2025, 1, 1),
		Description: "Café",
		Amount:      Money{Cents: 350},
		Category:    ocio,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e   Expense
		err error
	}{
		{Expense{Description: "a", Amount: Money{Cents: 1}, Category: ocio}, ErrInvalidDate},
		{Expense{Date: NewDate(2025, 1, 1), Description: "   ", Amount: Money{Cents: 1}, Category: ocio}, ErrEmptyDescription},
		{Expense{Date: NewDate(2025, 1, 1), Description: strings.Repeat("x", MaxDescriptionLength+1), Amount: Money{Cents: 1}, Category: ocio}, ErrDescriptionTooLong},
		{Expense{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Category: ocio}, ErrInvalidAmount},
		{Expense{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}}, ErrMissingCategory},
	}
	for i, tc := range bads {
		if err := tc.e.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestDescriptionLengthCountsRunes(t *testing.T) {
	e := Expense{
		Date:        NewDate(2025, 1, 1),
		Description: strings.Repeat("é", MaxDescriptionLength),
		Amount:      Money{Cents: 1},
		Category:    Category{ID: "x"},
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("expected %d runes to be accepted, got %v", MaxDescriptionLength, err)
	}
}

func TestColor(t *testing.T) {
	c, err := ParseColor("#f44336")
	if err != nil {
		t.Fatal(err)
	}
	if c != RGB(0xF4, 0x43, 0x36) || uint32(c) != 4294198070 {
		t.Fatalf("unexpected color %d", c)
	}
	if c.Hex() != "#F44336" {
		t.Fatalf("hex = %s", c.Hex())
	}
	if c2, err := ParseColor("80112233"); err != nil || uint32(c2) != 0x80112233 {
		t.Fatalf("argb parse failed: %v %x", err, uint32(c2))
	}
	for _, bad := range []string{"", "#123", "#GGGGGG"} {
		if _, err := ParseColor(bad); !errors.Is(err, ErrInvalidColor) {
			t.Fatalf("%q expected ErrInvalidColor", bad)
		}
	}
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories()
	if len(cats) != 5 {
		t.Fatalf("expected 5 seed categories, got %d", len(cats))
	}
	seen := map[string]bool{}
	for _, c := range cats {
		if err := c.Validate(); err != nil {
			t.Fatalf("%s: %v", c.Name, err)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
	}
	if cats[0].Name != "Comida" || cats[1].Name != "Transporte" {
		t.Fatalf("unexpected order: %v", cats)
	}
}
