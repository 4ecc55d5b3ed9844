package core

import (
	"errors"
	"fmt"
	"strings"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Currency is stored by code; the symbol is only used for display.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyMXN Currency = "MXN"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
)

// Edition gates features that are only available to paying users.
type Edition string

const (
	EditionStandard Edition = "standard"
	EditionPro      Edition = "pro"
)

const (
	DefaultTheme    = ThemeLight
	DefaultCurrency = CurrencyUSD
)

var (
	ErrUnknownTheme     = errors.New("unknown theme")
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrThemeRequiresPro = errors.New("dark theme requires the pro edition")
)

// Preferences is the user's settings snapshot.
type Preferences struct {
	Theme        Theme
	Currency     Currency
	MonthlyLimit Money // zero means unset
}

func DefaultPreferences() Preferences {
	return Preferences{Theme: DefaultTheme, Currency: DefaultCurrency}
}

func Themes() []Theme { return []Theme{ThemeLight, ThemeDark, ThemeSystem} }

func Currencies() []Currency {
	return []Currency{CurrencyUSD, CurrencyEUR, CurrencyMXN, CurrencyGBP, CurrencyJPY}
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Themes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
}

func (t Theme) Label() string {
	switch t {
	case ThemeDark:
		return "Dark"
	case ThemeSystem:
		return "System"
	default:
		return "Light"
	}
}

// Allowed reports whether the edition may select t.
func (t Theme) Allowed(ed Edition) bool {
	return t != ThemeDark || ed == EditionPro
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Currencies() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
}

func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR:
		return "€"
	case CurrencyGBP:
		return "£"
	case CurrencyJPY:
		return "¥"
	default:
		return "$"
	}
}

// Label renders e.g. "USD ($)".
func (c Currency) Label() string {
	return fmt.Sprintf("%s (%s)", c, c.Symbol())
}

// FormatMoney prefixes the currency symbol, e.g. "$500.75".
func FormatMoney(m Money, c Currency) string {
	if m.Cents < 0 {
		return "-" + c.Symbol() + Money{Cents: -m.Cents}.String()
	}
	return c.Symbol() + m.String()
}

// LimitDisplay is what the settings screen shows for the monthly limit.
func LimitDisplay(p Preferences) string {
	if p.MonthlyLimit.Cents <= 0 {
		return "not set"
	}
	return FormatMoney(p.MonthlyLimit, p.Currency)
}

func ParseEdition(s string) (Edition, error) {
	switch Edition(strings.ToLower(strings.TrimSpace(s))) {
	case EditionStandard, "":
		return EditionStandard, nil
	case EditionPro:
		return EditionPro, nil
	}
	return "", fmt.Errorf("unknown edition %q", s)
}
