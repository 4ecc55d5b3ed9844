// Package observe provides a small subscription primitive: a Feed holds the
// latest snapshot of some value and notifies subscribers whenever it changes.
package observe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Feed broadcasts snapshots of T. Subscribers are called with the current
// snapshot as soon as they subscribe and again after every Publish.
// Callbacks run synchronously on the publishing goroutine and must not call
// Publish, Refresh or Subscribe on the same feed.
type Feed[T any] struct {
	// refresh is held from a load until its result is stored, so an older
	// load can never overwrite a newer one.
	refresh sync.Mutex
	deliver sync.Mutex // serialises delivery so callbacks see snapshots in order

	mu      sync.Mutex
	current T
	loaded  bool
	nextID  uint64
	subs    map[uint64]*Subscription
	fns     map[uint64]func(T)
	load    func(context.Context) (T, error)
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	cancelled atomic.Bool
	cancel    func()
}

// New returns a feed seeded with initial.
func New[T any](initial T) *Feed[T] {
	return &Feed[T]{
		current: initial,
		loaded:  true,
		subs:    make(map[uint64]*Subscription),
		fns:     make(map[uint64]func(T)),
	}
}

// NewLoaded returns a feed whose snapshot is derived from load. The first
// subscriber triggers the initial load; Refresh reloads and republishes.
func NewLoaded[T any](load func(context.Context) (T, error)) *Feed[T] {
	var zero T
	f := New(zero)
	f.loaded = false
	f.load = load
	return f
}

// Subscribe registers fn and immediately invokes it with the current
// snapshot.
func (f *Feed[T]) Subscribe(ctx context.Context, fn func(T)) (*Subscription, error) {
	f.refresh.Lock()
	defer f.refresh.Unlock()
	if err := f.loadIfStale(ctx); err != nil {
		return nil, err
	}

	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	sub := &Subscription{}
	sub.cancel = func() {
		f.mu.Lock()
		delete(f.subs, id)
		delete(f.fns, id)
		f.mu.Unlock()
	}
	f.subs[id] = sub
	f.fns[id] = fn
	snapshot := f.current
	f.mu.Unlock()

	fn(snapshot)
	return sub, nil
}

// Publish replaces the snapshot and notifies every live subscriber.
func (f *Feed[T]) Publish(v T) {
	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	f.current = v
	f.loaded = true
	type target struct {
		sub *Subscription
		fn  func(T)
	}
	targets := make([]target, 0, len(f.subs))
	for id, sub := range f.subs {
		targets = append(targets, target{sub: sub, fn: f.fns[id]})
	}
	f.mu.Unlock()

	for _, t := range targets {
		if t.sub.cancelled.Load() {
			continue
		}
		t.fn(v)
	}
}

// Refresh re-runs the loader, if any, and publishes the result. A feed
// without subscribers only marks itself stale so the next Subscribe reloads.
func (f *Feed[T]) Refresh(ctx context.Context) error {
	if f.load == nil {
		return nil
	}
	f.refresh.Lock()
	defer f.refresh.Unlock()
	if f.Subscribers() == 0 {
		f.mu.Lock()
		f.loaded = false
		f.mu.Unlock()
		return nil
	}
	v, err := f.load(ctx)
	if err != nil {
		return fmt.Errorf("refresh feed: %w", err)
	}
	f.Publish(v)
	return nil
}

// Current returns the latest snapshot, loading it first if needed.
func (f *Feed[T]) Current(ctx context.Context) (T, error) {
	f.refresh.Lock()
	err := f.loadIfStale(ctx)
	f.refresh.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

// Subscribers reports the number of live subscriptions.
func (f *Feed[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// loadIfStale must be called with f.refresh held.
func (f *Feed[T]) loadIfStale(ctx context.Context) error {
	f.mu.Lock()
	needs := !f.loaded && f.load != nil
	f.mu.Unlock()
	if !needs {
		return nil
	}
	v, err := f.load(ctx)
	if err != nil {
		return fmt.Errorf("load feed: %w", err)
	}
	f.mu.Lock()
	f.current = v
	f.loaded = true
	f.mu.Unlock()
	return nil
}

// Cancel stops further deliveries. It is safe to call more than once and
// from inside the callback itself.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	if s.cancelled.Swap(true) {
		return
	}
	s.cancel()
}

// Cancelled reports whether Cancel has been called.
func (s *Subscription) Cancelled() bool {
	return s != nil && s.cancelled.Load()
}

// Stream adapts a feed to a channel for the lifetime of ctx. Snapshots that
// arrive while the receiver is busy replace the pending one, so the channel
// always yields the most recent state.
func Stream[T any](ctx context.Context, f *Feed[T]) (<-chan T, error) {
	out := make(chan T, 1)
	sub, err := f.Subscribe(ctx, func(v T) {
		select {
		case out <- v:
		default:
			select {
			case <-out:
			default:
			}
			select {
			case out <- v:
			default:
			}
		}
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()
	return out, nil
}
