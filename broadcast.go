package cache

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Subscription identifies one registered listener so it can be removed later.
type Subscription uint64

// Broadcaster fans update-record batches out to every registered listener.
// Publish is fire-and-forget: listeners run synchronously in registration
// order, and a panicking listener is logged and skipped without affecting the
// others or the store mutation that preceded the publish.
type Broadcaster[K comparable] struct {
	mu        sync.RWMutex
	next      Subscription
	order     []Subscription
	listeners map[Subscription]ListenerFn[K]
}

func NewBroadcaster[K comparable]() *Broadcaster[K] {
	return &Broadcaster[K]{
		listeners: map[Subscription]ListenerFn[K]{},
	}
}

// Subscribe registers a listener and returns its handle.
func (b *Broadcaster[K]) Subscribe(fn ListenerFn[K]) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	sub := b.next

	b.order = append(b.order, sub)
	b.listeners[sub] = fn

	return sub
}

// Unsubscribe removes the listener registered under sub. Unknown handles are
// ignored.
func (b *Broadcaster[K]) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.listeners[sub]; !ok {
		return
	}

	delete(b.listeners, sub)

	for i, s := range b.order {
		if s == sub {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers updates to every currently registered listener, in
// registration order, without alteration. An empty batch is not delivered.
func (b *Broadcaster[K]) Publish(updates []UpdateRecord[K]) {
	if len(updates) == 0 {
		return
	}

	b.mu.RLock()
	fns := make([]ListenerFn[K], 0, len(b.order))
	for _, sub := range b.order {
		fns = append(fns, b.listeners[sub])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		b.deliver(fn, updates)
	}
}

func (b *Broadcaster[K]) deliver(fn ListenerFn[K], updates []UpdateRecord[K]) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Error().Interface("panic", r).Msg("listener panicked during publish")
		}
	}()

	fn(updates)
}

// Notify publishes one update record per identifier, all sharing kind.
func (b *Broadcaster[K]) Notify(kind ChangeKind, ids ...K) {
	if len(ids) == 0 {
		return
	}

	updates := make([]UpdateRecord[K], 0, len(ids))
	for _, id := range ids {
		updates = append(updates, UpdateRecord[K]{
			ID:   id,
			Kind: kind,
		})
	}

	b.Publish(updates)
}

// NotifyMixed pairs each identifier positionally with its own change kind.
// The two slices must be the same length.
func (b *Broadcaster[K]) NotifyMixed(kinds []ChangeKind, ids []K) error {
	if len(kinds) != len(ids) {
		return errors.Errorf("kinds and ids length mismatch: %d != %d", len(kinds), len(ids))
	}

	updates := make([]UpdateRecord[K], 0, len(ids))
	for i, id := range ids {
		updates = append(updates, UpdateRecord[K]{
			ID:   id,
			Kind: kinds[i],
		})
	}

	b.Publish(updates)

	return nil
}
