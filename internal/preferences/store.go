// Package preferences persists the user's theme, currency and monthly limit.
// Each value has a default that applies until it is first set.
package preferences

import (
	"context"
	"sync"

	"outlay/internal/core"
	"outlay/internal/observe"
)

// Store is the preference contract shared by the memory and file variants.
type Store interface {
	Snapshot(ctx context.Context) (core.Preferences, error)
	SetTheme(ctx context.Context, t core.Theme) error
	SetCurrency(ctx context.Context, c core.Currency) error
	SetMonthlyLimit(ctx context.Context, m core.Money) error
	// Reload picks up changes made outside this process.
	Reload(ctx context.Context) error
	// Subscribe delivers the current preferences immediately and after
	// every change.
	Subscribe(ctx context.Context, fn func(core.Preferences)) (*observe.Subscription, error)
}

// Memory keeps preferences in process.
type Memory struct {
	mu    sync.Mutex
	prefs core.Preferences
	feed  *observe.Feed[core.Preferences]
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	p := core.DefaultPreferences()
	return &Memory{prefs: p, feed: observe.New(p)}
}

func (m *Memory) Snapshot(context.Context) (core.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs, nil
}

func (m *Memory) SetTheme(_ context.Context, t core.Theme) error {
	return m.update(func(p *core.Preferences) { p.Theme = t })
}

func (m *Memory) SetCurrency(_ context.Context, c core.Currency) error {
	return m.update(func(p *core.Preferences) { p.Currency = c })
}

func (m *Memory) SetMonthlyLimit(_ context.Context, limit core.Money) error {
	if limit.Cents < 0 {
		return core.ErrInvalidAmount
	}
	return m.update(func(p *core.Preferences) { p.MonthlyLimit = limit })
}

// Reload is a no-op: nothing outside the process can change m.
func (m *Memory) Reload(context.Context) error { return nil }

func (m *Memory) Subscribe(ctx context.Context, fn func(core.Preferences)) (*observe.Subscription, error) {
	return m.feed.Subscribe(ctx, fn)
}

func (m *Memory) update(fn func(*core.Preferences)) error {
	m.mu.Lock()
	fn(&m.prefs)
	p := m.prefs
	m.mu.Unlock()
	m.feed.Publish(p)
	return nil
}
