package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlay/internal/config"
	"outlay/internal/core"
	"outlay/internal/services"
)

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Nil(t, res.AMQP)
	assert.Nil(t, res.Ready)
	assert.Equal(t, core.EditionStandard, res.Settings.Edition())
	assert.Equal(t, services.DeleteBlock, res.Expenses.DeletePolicy())

	cats, err := res.Expenses.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(core.DefaultCategories()))
}

func TestCreateSQLiteBackendWithFilePreferences(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(dir, "outlay.db"),
		Prefs:        FilePrefs,
		PrefsFile:    filepath.Join(dir, "preferences.yaml"),
		Edition:      core.EditionPro,
		DeletePolicy: services.DeleteCascade,
	}

	res, err := NewFactory(nil).CreateBackend(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Ready)
	require.NoError(t, res.Ready(ctx))

	cats, err := res.Expenses.ListCategories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cats)

	_, err = res.Expenses.SaveExpense(ctx, services.ExpenseInput{
		Description: "Café", Amount: core.Money{Cents: 350}, Date: core.NewDate(2025, 3, 15), CategoryID: cats[0].ID,
	})
	require.NoError(t, err)
	_, err = res.Settings.SetMonthlyLimit(ctx, "500.75")
	require.NoError(t, err)
	require.NoError(t, res.Cleanup())

	// Everything survives a restart.
	res, err = NewFactory(nil).CreateBackend(ctx, cfg)
	require.NoError(t, err)
	defer res.Cleanup()

	items, err := res.Expenses.ListExpenses(ctx, "café")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	prefs, err := res.Settings.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50075), prefs.MonthlyLimit.Cents)
	assert.Equal(t, services.DeleteCascade, res.Expenses.DeletePolicy())
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "postgres"})
	assert.Error(t, err)

	_, err = NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)

	_, err = NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, Prefs: FilePrefs})
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	app, err := config.LoadFrom(map[string]string{
		"DATA_BACKEND":           "sqlite",
		"SQLITE_DB_PATH":         "/tmp/outlay.db",
		"PREFS_BACKEND":          "file",
		"EDITION":                "pro",
		"CATEGORY_DELETE_POLICY": "cascade",
	})
	require.NoError(t, err)

	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, FilePrefs, cfg.Prefs)
	assert.Equal(t, core.EditionPro, cfg.Edition)
	assert.Equal(t, services.DeleteCascade, cfg.DeletePolicy)
	assert.Equal(t, "/tmp/outlay.db", cfg.SQLiteDBPath)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)

	app.Edition = "gold"
	_, err = FromAppConfig(app)
	assert.Error(t, err)
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}
