package services

import (
	"context"
	"fmt"
	"log/slog"

	"outlay/internal/amqp"
	"outlay/internal/core"
	"outlay/internal/observe"
	"outlay/internal/preferences"
)

// SettingsService validates and stores user preferences. The edition decides
// which themes may be selected.
type SettingsService struct {
	prefs     preferences.Store
	edition   core.Edition
	publisher amqp.Publisher
}

// ThemeOption is a theme as offered on the settings screen.
type ThemeOption struct {
	Theme   core.Theme
	Allowed bool
}

func NewSettingsService(prefs preferences.Store, edition core.Edition, publisher amqp.Publisher) *SettingsService {
	if edition == "" {
		edition = core.EditionStandard
	}
	return &SettingsService{prefs: prefs, edition: edition, publisher: publisher}
}

func (s *SettingsService) Edition() core.Edition { return s.edition }

func (s *SettingsService) Preferences(ctx context.Context) (core.Preferences, error) {
	p, err := s.prefs.Snapshot(ctx)
	if err != nil {
		return core.Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	return p, nil
}

func (s *SettingsService) Themes() []ThemeOption {
	out := make([]ThemeOption, 0, 3)
	for _, t := range core.Themes() {
		out = append(out, ThemeOption{Theme: t, Allowed: t.Allowed(s.edition)})
	}
	return out
}

func (s *SettingsService) SetTheme(ctx context.Context, raw string) (core.Theme, error) {
	t, err := core.ParseTheme(raw)
	if err != nil {
		return "", err
	}
	if !t.Allowed(s.edition) {
		return "", core.ErrThemeRequiresPro
	}
	if err := s.prefs.SetTheme(ctx, t); err != nil {
		return "", fmt.Errorf("set theme: %w", err)
	}
	s.announce(ctx, "theme")
	return t, nil
}

func (s *SettingsService) SetCurrency(ctx context.Context, raw string) (core.Currency, error) {
	c, err := core.ParseCurrency(raw)
	if err != nil {
		return "", err
	}
	if err := s.prefs.SetCurrency(ctx, c); err != nil {
		return "", fmt.Errorf("set currency: %w", err)
	}
	s.announce(ctx, "currency")
	return c, nil
}

// SetMonthlyLimit parses raw; blank or zero clears the limit.
func (s *SettingsService) SetMonthlyLimit(ctx context.Context, raw string) (core.Money, error) {
	m, err := core.ParseLimit(raw)
	if err != nil {
		return core.Money{}, err
	}
	if err := s.prefs.SetMonthlyLimit(ctx, m); err != nil {
		return core.Money{}, fmt.Errorf("set monthly limit: %w", err)
	}
	s.announce(ctx, "monthly_limit")
	return m, nil
}

func (s *SettingsService) Subscribe(ctx context.Context, fn func(core.Preferences)) (*observe.Subscription, error) {
	return s.prefs.Subscribe(ctx, fn)
}

// Reload re-reads preferences changed by another process.
func (s *SettingsService) Reload(ctx context.Context) error {
	if err := s.prefs.Reload(ctx); err != nil {
		return fmt.Errorf("reload preferences: %w", err)
	}
	return nil
}

func (s *SettingsService) announce(ctx context.Context, key string) {
	if s.publisher == nil {
		return
	}
	e := amqp.NewChangeEvent(amqp.EntityPreferences, amqp.ActionUpdated, key)
	if err := s.publisher.PublishChange(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event", "entity", e.Entity, "id", key, "error", err)
	}
}
