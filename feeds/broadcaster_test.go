package feeds

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder[T any] struct {
	mu     sync.Mutex
	values []T
	errs   []error
}

func (r *recorder[T]) onSnapshot(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder[T]) got() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

func (r *recorder[T]) gotErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

func TestBroadcasterDeliversInOrder(t *testing.T) {
	var b Broadcaster[int]
	var rec recorder[int]

	unsubscribe := b.Subscribe(rec.onSnapshot)
	defer unsubscribe()

	for i := 1; i <= 5; i++ {
		b.Publish(i)
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, rec.got())
}

func TestBroadcasterReplaysLatest(t *testing.T) {
	var b Broadcaster[string]
	b.Publish("first")
	b.Publish("second")

	var rec recorder[string]
	unsubscribe := b.Subscribe(rec.onSnapshot)
	defer unsubscribe()

	assert.Equal(t, []string{"second"}, rec.got(), "A late subscriber receives only the latest snapshot")

	latest, ok := b.Latest()
	assert.True(t, ok)
	assert.Equal(t, "second", latest)
}

func TestBroadcasterNoReplayBeforeFirstPublish(t *testing.T) {
	var b Broadcaster[string]
	var rec recorder[string]

	unsubscribe := b.Subscribe(rec.onSnapshot)
	defer unsubscribe()

	assert.Empty(t, rec.got())
	_, ok := b.Latest()
	assert.False(t, ok)
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	var b Broadcaster[int]
	var kept, dropped recorder[int]

	keep := b.Subscribe(kept.onSnapshot)
	defer keep()
	drop := b.Subscribe(dropped.onSnapshot, WithErrorHandler(dropped.onError))
	assert.Equal(t, 2, b.Subscribers())

	b.Publish(1)
	drop()
	drop()
	assert.Equal(t, 1, b.Subscribers(), "Unsubscribe is idempotent")

	b.Publish(2)
	b.Fail(errors.New("boom"))

	assert.Equal(t, []int{1, 2}, kept.got())
	assert.Equal(t, []int{1}, dropped.got(), "No snapshot arrives after unsubscribe")
	assert.Empty(t, dropped.gotErrors(), "No error arrives after unsubscribe")
}

func TestBroadcasterFail(t *testing.T) {
	var b Broadcaster[int]
	var withHandler, withoutHandler recorder[int]

	u1 := b.Subscribe(withHandler.onSnapshot, WithErrorHandler(withHandler.onError))
	defer u1()
	u2 := b.Subscribe(withoutHandler.onSnapshot)
	defer u2()

	failure := errors.New("permission denied")
	b.Fail(failure)

	require.Len(t, withHandler.gotErrors(), 1)
	assert.ErrorIs(t, withHandler.gotErrors()[0], failure)
	assert.Empty(t, withHandler.got())
}

func TestBroadcasterUnsubscribeDuringPublish(t *testing.T) {
	var b Broadcaster[int]

	var mu sync.Mutex
	afterUnsubscribe := false
	var violations int

	unsubscribe := b.Subscribe(func(int) {
		mu.Lock()
		defer mu.Unlock()
		if afterUnsubscribe {
			violations++
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Publish(i)
		}
	}()

	unsubscribe()
	mu.Lock()
	afterUnsubscribe = true
	mu.Unlock()

	wg.Wait()
	assert.Zero(t, violations)
}

func TestOnce(t *testing.T) {
	calls := 0
	u := Once(func() { calls++ })
	u()
	u()
	assert.Equal(t, 1, calls)
}
