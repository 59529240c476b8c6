// Package feeds implements the live subscriptions behind the application state.
//
// A feed pushes the complete current snapshot of its source to every subscriber
// whenever the source changes. Snapshots of one feed are delivered in order; there
// is no ordering between different feeds.
package feeds

import "sync"

// Subscribable is a source of full snapshots
type Subscribable[T any] interface {
	// Subscribe registers onSnapshot and returns the handle that stops it.
	// onSnapshot must not call the returned Unsubscribe itself.
	Subscribe(onSnapshot func(T), opts ...SubscribeOption) Unsubscribe
}

// Unsubscribe stops a subscription. It is idempotent, and once it returns the
// subscription's callbacks are never invoked again.
type Unsubscribe func()

type subscribeConfig struct {
	onError func(error)
}

// SubscribeOption configures a single subscription
type SubscribeOption func(*subscribeConfig)

// WithErrorHandler receives failures of the feed after it was established
func WithErrorHandler(fn func(error)) SubscribeOption {
	return func(c *subscribeConfig) { c.onError = fn }
}

func newSubscribeConfig(opts []SubscribeOption) subscribeConfig {
	var cfg subscribeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Once wraps fn so that only the first call runs it
func Once(fn func()) Unsubscribe {
	var once sync.Once
	return func() { once.Do(fn) }
}
