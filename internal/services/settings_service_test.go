package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlay/internal/core"
	"outlay/internal/preferences"
)

func TestSettingsMonthlyLimitDisplay(t *testing.T) {
	ctx := context.Background()
	s := NewSettingsService(preferences.NewMemory(), core.EditionStandard, nil)

	p, err := s.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "not set", core.LimitDisplay(p))

	m, err := s.SetMonthlyLimit(ctx, "500.75")
	require.NoError(t, err)
	assert.Equal(t, "500.75", m.String())

	p, err = s.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "$500.75", core.LimitDisplay(p))

	_, err = s.SetMonthlyLimit(ctx, "")
	require.NoError(t, err)
	p, _ = s.Preferences(ctx)
	assert.Equal(t, "not set", core.LimitDisplay(p))

	_, err = s.SetMonthlyLimit(ctx, "-4")
	assert.True(t, IsValidation(err))
}

func TestSettingsThemeEditionGate(t *testing.T) {
	ctx := context.Background()

	standard := NewSettingsService(preferences.NewMemory(), "", nil)
	_, err := standard.SetTheme(ctx, "dark")
	require.ErrorIs(t, err, core.ErrThemeRequiresPro)
	_, err = standard.SetTheme(ctx, "system")
	require.NoError(t, err)
	_, err = standard.SetTheme(ctx, "sepia")
	assert.True(t, IsValidation(err))

	allowed := map[core.Theme]bool{}
	for _, o := range standard.Themes() {
		allowed[o.Theme] = o.Allowed
	}
	assert.Equal(t, map[core.Theme]bool{core.ThemeLight: true, core.ThemeDark: false, core.ThemeSystem: true}, allowed)

	pub := &recordingPublisher{}
	pro := NewSettingsService(preferences.NewMemory(), core.EditionPro, pub)
	theme, err := pro.SetTheme(ctx, "Dark")
	require.NoError(t, err)
	assert.Equal(t, core.ThemeDark, theme)
	assert.Equal(t, []string{"preferences.updated"}, pub.keys())
}

func TestSettingsCurrency(t *testing.T) {
	ctx := context.Background()
	s := NewSettingsService(preferences.NewMemory(), core.EditionStandard, nil)

	var seen []core.Currency
	sub, err := s.Subscribe(ctx, func(p core.Preferences) { seen = append(seen, p.Currency) })
	require.NoError(t, err)
	defer sub.Cancel()

	_, err = s.SetCurrency(ctx, "jpy")
	require.NoError(t, err)
	_, err = s.SetCurrency(ctx, "XYZ")
	assert.True(t, IsValidation(err))
	assert.Equal(t, []core.Currency{core.CurrencyUSD, core.CurrencyJPY}, seen)
}

func TestParseDeletePolicy(t *testing.T) {
	p, err := ParseDeletePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DeleteBlock, p)
	p, err = ParseDeletePolicy("cascade")
	require.NoError(t, err)
	assert.Equal(t, DeleteCascade, p)
	_, err = ParseDeletePolicy("nuke")
	assert.Error(t, err)
}
