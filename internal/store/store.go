// internal/store/store.go
//
// Observable value containers.
//
// Context
// -------
// Every piece of form state (values, errors, and the two lifecycle flags)
// lives in a Writable.  A Writable holds one value of type T and a list of
// subscribers.  Subscribing replays the current value immediately, then
// every later Set or Update notifies all subscribers synchronously, before
// the mutator returns.  There is no batching and no deferred delivery, so a
// caller that reads after a mutation always sees the new value.
//
// Notes
// -----
//   - Two locks.  `mu` guards the value and the subscriber list and is never
//     held while a subscriber runs.  `emitMu` serialises write-and-notify so
//     subscribers observe mutations in completion order.
//   - A subscriber must not synchronously mutate the store it observes.
//     Reading (Get) from inside a subscriber is fine.
//   - Two spaces after periods, Oxford commas.
package store

import (
	"slices"
	"sync"
)

// Readable is the read side of a store: current value plus replay-one
// subscription.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (unsubscribe func())
}

// Writable is a mutex-guarded observable value.  The zero value is not
// usable; construct with New.
type Writable[T any] struct {
	emitMu sync.Mutex

	mu     sync.Mutex
	value  T
	nextID uint64
	subs   map[uint64]func(T)
}

// Compile-time check that Writable satisfies Readable.
var _ Readable[int] = (*Writable[int])(nil)

// New returns a Writable seeded with initial.
func New[T any](initial T) *Writable[T] {
	return &Writable[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies every subscriber.
func (w *Writable[T]) Set(v T) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	w.value = v
	subs := w.snapshotSubs()
	w.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update derives the next value from the current one.  fn runs under the
// emit lock, so concurrent Updates never lose a write.
func (w *Writable[T]) Update(fn func(T) T) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	next := fn(w.value)
	w.value = next
	subs := w.snapshotSubs()
	w.mu.Unlock()

	for _, s := range subs {
		s(next)
	}
}

// Subscribe registers fn, calls it with the current value, and returns a
// function that removes the subscription.  Calling unsubscribe more than once
// is harmless.
func (w *Writable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	current := w.value
	w.mu.Unlock()

	fn(current)

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Len reports the number of live subscribers.
func (w *Writable[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// ReadOnly hides the mutators of w behind the Readable interface.
func ReadOnly[T any](w *Writable[T]) Readable[T] { return readOnly[T]{w} }

type readOnly[T any] struct{ w *Writable[T] }

func (r readOnly[T]) Get() T { return r.w.Get() }

func (r readOnly[T]) Subscribe(fn func(T)) func() { return r.w.Subscribe(fn) }

// snapshotSubs copies the subscriber list in registration order.  Caller
// holds w.mu.
func (w *Writable[T]) snapshotSubs() []func(T) {
	if len(w.subs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(w.subs))
	for id := range w.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, w.subs[id])
	}
	return out
}
