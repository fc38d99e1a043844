// Package observe provides a framework-neutral publisher/subscriber
// abstraction: Subscribe registers a callback and returns the function that
// removes it.
package observe

import (
	"slices"
	"sync"
)

// Subscribable is anything that can deliver values of type T to callbacks.
type Subscribable[T any] interface {
	Subscribe(fn func(T)) (unsubscribe func())
}

// Observable is a Subscribable that also exposes its current value.
type Observable[T any] interface {
	Get() T
	Subscribable[T]
}

// Publisher fans a value out to every current subscriber. The zero value is
// ready to use.
type Publisher[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

// Subscribe registers fn. The returned function is idempotent.
func (p *Publisher[T]) Subscribe(fn func(T)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs == nil {
		p.subs = make(map[int]func(T))
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Publish delivers v to every subscriber in registration order. Callbacks
// run outside the lock, so a callback may unsubscribe itself.
func (p *Publisher[T]) Publish(v T) {
	p.mu.Lock()
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	fns := make([]func(T), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, p.subs[id])
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of live subscriptions.
func (p *Publisher[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Value is a Publisher that also remembers the last published value.
// Concurrent Sets are delivered in the order they are stored, so the last
// value a subscriber sees is the current one. Callbacks must not Set the
// Value that invoked them.
type Value[T comparable] struct {
	Publisher[T]
	order sync.Mutex
	mu    sync.RWMutex
	cur   T
}

// NewValue returns a Value holding v.
func NewValue[T comparable](v T) *Value[T] {
	return &Value[T]{cur: v}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set stores x and notifies subscribers when it differs from the current
// value.
func (v *Value[T]) Set(x T) {
	v.order.Lock()
	defer v.order.Unlock()
	v.mu.Lock()
	if v.cur == x {
		v.mu.Unlock()
		return
	}
	v.cur = x
	v.mu.Unlock()
	v.Publish(x)
}
