package preferences

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"outlay/internal/core"
	"outlay/internal/observe"
)

const (
	keyTheme        = "theme"
	keyCurrency     = "currency"
	keyMonthlyLimit = "monthly_limit"
)

// File stores preferences in a YAML file. The file is rewritten on every
// change; a missing file means every preference is at its default.
type File struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
	feed *observe.Feed[core.Preferences]
}

var _ Store = (*File)(nil)

// OpenFile loads path if it exists. Unknown or malformed values fall back to
// their defaults and are logged.
func OpenFile(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(keyTheme, string(core.DefaultTheme))
	v.SetDefault(keyCurrency, string(core.DefaultCurrency))
	v.SetDefault(keyMonthlyLimit, "0")

	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("read preferences file: %w", err)
	}

	f := &File{path: path, v: v}
	f.feed = observe.New(f.decode())
	return f, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Snapshot(context.Context) (core.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decode(), nil
}

func (f *File) SetTheme(ctx context.Context, t core.Theme) error {
	return f.set(ctx, keyTheme, string(t))
}

func (f *File) SetCurrency(ctx context.Context, c core.Currency) error {
	return f.set(ctx, keyCurrency, string(c))
}

func (f *File) SetMonthlyLimit(ctx context.Context, m core.Money) error {
	if m.Cents < 0 {
		return core.ErrInvalidAmount
	}
	return f.set(ctx, keyMonthlyLimit, m.Decimal())
}

func (f *File) Subscribe(ctx context.Context, fn func(core.Preferences)) (*observe.Subscription, error) {
	return f.feed.Subscribe(ctx, fn)
}

// Reload re-reads the file, picking up changes written by other processes,
// and notifies subscribers. A missing file keeps the current values.
func (f *File) Reload(ctx context.Context) error {
	f.mu.Lock()
	if err := f.v.ReadInConfig(); err != nil && !isNotFound(err) {
		f.mu.Unlock()
		return fmt.Errorf("reload preferences file: %w", err)
	}
	p := f.decode()
	f.mu.Unlock()

	slog.DebugContext(ctx, "Preferences reloaded", "path", f.path)
	f.feed.Publish(p)
	return nil
}

// set writes the file first and only then adopts it, so a failed write
// leaves the current preferences untouched.
func (f *File) set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	next := viper.New()
	next.SetConfigType("yaml")
	for _, k := range []string{keyTheme, keyCurrency, keyMonthlyLimit} {
		next.Set(k, f.v.GetString(k))
	}
	next.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("create preferences directory: %w", err)
	}
	if err := next.WriteConfigAs(f.path); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("write preferences file: %w", err)
	}
	if err := f.v.ReadInConfig(); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("read back preferences file: %w", err)
	}
	p := f.decode()
	f.mu.Unlock()

	slog.InfoContext(ctx, "Preference updated", "key", key, "value", value)
	f.feed.Publish(p)
	return nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// decode must be called with f.mu held, or before f is shared.
func (f *File) decode() core.Preferences {
	p := core.DefaultPreferences()
	if t, err := core.ParseTheme(f.v.GetString(keyTheme)); err == nil {
		p.Theme = t
	} else {
		slog.Warn("Ignoring stored theme", "error", err)
	}
	if c, err := core.ParseCurrency(f.v.GetString(keyCurrency)); err == nil {
		p.Currency = c
	} else {
		slog.Warn("Ignoring stored currency", "error", err)
	}
	if m, err := core.ParseLimit(f.v.GetString(keyMonthlyLimit)); err == nil {
		p.MonthlyLimit = m
	} else {
		slog.Warn("Ignoring stored monthly limit", "error", err)
	}
	return p
}
