package feeds

import (
	"sort"
	"sync"
)

// Broadcaster fans snapshots out to subscribers. Late subscribers immediately
// receive the latest snapshot. Publishes are delivered one at a time, in order.
//
// The zero value is ready to use.
type Broadcaster[T any] struct {
	pubMu sync.Mutex // serializes Publish, Fail and the replay in Subscribe

	mu      sync.Mutex
	subs    map[uint64]*subscriber[T]
	nextID  uint64
	last    T
	hasLast bool
}

type subscriber[T any] struct {
	mu         sync.Mutex
	closed     bool
	onSnapshot func(T)
	onError    func(error)
}

func (s *subscriber[T]) deliver(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onSnapshot(v)
}

func (s *subscriber[T]) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.onError == nil {
		return
	}
	s.onError(err)
}

// close waits for an in-flight delivery to finish
func (s *subscriber[T]) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Subscribe implements Subscribable
func (b *Broadcaster[T]) Subscribe(onSnapshot func(T), opts ...SubscribeOption) Unsubscribe {
	cfg := newSubscribeConfig(opts)
	sub := &subscriber[T]{onSnapshot: onSnapshot, onError: cfg.onError}

	b.pubMu.Lock()
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[uint64]*subscriber[T])
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	last, hasLast := b.last, b.hasLast
	b.mu.Unlock()

	if hasLast {
		sub.deliver(last)
	}
	b.pubMu.Unlock()

	return Once(func() {
		sub.close()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	})
}

// Publish records v as the latest snapshot and delivers it to every subscriber
func (b *Broadcaster[T]) Publish(v T) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	b.last = v
	b.hasLast = true
	subs := b.snapshotSubscribers()
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(v)
	}
}

// Fail reports err to every subscriber that registered an error handler
func (b *Broadcaster[T]) Fail(err error) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	subs := b.snapshotSubscribers()
	b.mu.Unlock()

	for _, sub := range subs {
		sub.fail(err)
	}
}

// Latest returns the last published snapshot
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.hasLast
}

// Subscribers returns the number of active subscriptions
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// snapshotSubscribers must be called with b.mu held
func (b *Broadcaster[T]) snapshotSubscribers() []*subscriber[T] {
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	subs := make([]*subscriber[T], len(ids))
	for i, id := range ids {
		subs[i] = b.subs[id]
	}
	return subs
}
