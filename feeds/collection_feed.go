package feeds

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/kendall-kelly/nafs-essence-api/logging"
)

// Loader reads the complete current contents of a collection
type Loader[T any] func(ctx context.Context) (T, error)

type feedConfig struct {
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// FeedOption configures a CollectionFeed
type FeedOption func(*feedConfig)

// WithLogger sets the logger for load failures
func WithLogger(l *slog.Logger) FeedOption {
	return func(c *feedConfig) { c.logger = l }
}

// WithBackOff sets the retry policy used after a failed load
func WithBackOff(newBackOff func() backoff.BackOff) FeedOption {
	return func(c *feedConfig) { c.newBackOff = newBackOff }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}

// CollectionFeed keeps one collection's snapshot flowing to subscribers.
//
// In push mode the feed reloads whenever Invalidate is called. In polling mode it
// also reloads on a ticker and publishes only snapshots that differ from the last
// one. Failed loads are reported to subscribers' error handlers and retried with
// backoff until a load succeeds.
type CollectionFeed[T any] struct {
	name     string
	load     Loader[T]
	interval time.Duration
	cfg      feedConfig

	bc      Broadcaster[T]
	trigger chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPushFeed returns a feed that reloads on Invalidate
func NewPushFeed[T any](name string, load Loader[T], opts ...FeedOption) *CollectionFeed[T] {
	return newCollectionFeed(name, load, 0, opts)
}

// NewPollingFeed returns a feed that reloads every interval and on Invalidate
func NewPollingFeed[T any](name string, load Loader[T], interval time.Duration, opts ...FeedOption) *CollectionFeed[T] {
	return newCollectionFeed(name, load, interval, opts)
}

func newCollectionFeed[T any](name string, load Loader[T], interval time.Duration, opts []FeedOption) *CollectionFeed[T] {
	cfg := feedConfig{logger: logging.Discard(), newBackOff: defaultBackOff}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CollectionFeed[T]{
		name:     name,
		load:     load,
		interval: interval,
		cfg:      cfg,
		trigger:  make(chan struct{}, 1),
	}
}

// Name returns the feed name used in logs
func (f *CollectionFeed[T]) Name() string {
	return f.name
}

// Subscribe implements Subscribable. The first subscription starts the feed.
func (f *CollectionFeed[T]) Subscribe(onSnapshot func(T), opts ...SubscribeOption) Unsubscribe {
	unsubscribe := f.bc.Subscribe(onSnapshot, opts...)
	f.start()
	return unsubscribe
}

// Invalidate asks the feed to reload. Calls made while a reload is pending are coalesced.
func (f *CollectionFeed[T]) Invalidate() {
	select {
	case f.trigger <- struct{}{}:
	default:
	}
}

// Close stops the feed. Existing subscriptions receive nothing further.
func (f *CollectionFeed[T]) Close() {
	f.mu.Lock()
	f.closed = true
	cancel, done := f.cancel, f.done
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (f *CollectionFeed[T]) start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started || f.closed {
		return
	}
	f.started = true

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(ctx)
}

func (f *CollectionFeed[T]) run(ctx context.Context) {
	defer close(f.done)

	bo := f.cfg.newBackOff()

	var tick <-chan time.Time
	if f.interval > 0 {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var retryTimer *time.Timer
	var retry <-chan time.Time
	stopRetry := func() {
		if retryTimer != nil {
			retryTimer.Stop()
		}
		retryTimer, retry = nil, nil
	}
	defer stopRetry()

	for {
		if f.reload(ctx) {
			bo.Reset()
			stopRetry()
		} else if retry == nil && ctx.Err() == nil {
			delay := bo.NextBackOff()
			f.cfg.logger.Warn("feed reload failed, retrying", "feed", f.name, "retry_in", delay)
			retryTimer = backoffTimer(delay)
			retry = retryTimer.C
		}

		select {
		case <-ctx.Done():
			return
		case <-f.trigger:
		case <-tick:
		case <-retry:
			retryTimer, retry = nil, nil
		}
	}
}

// reload loads and publishes one snapshot; it reports whether the load succeeded
func (f *CollectionFeed[T]) reload(ctx context.Context) bool {
	snapshot, err := f.load(ctx)
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		f.cfg.logger.Error("feed load failed", "feed", f.name, "error", err)
		f.bc.Fail(err)
		return false
	}

	if f.interval > 0 {
		if last, ok := f.bc.Latest(); ok && reflect.DeepEqual(last, snapshot) {
			return true
		}
	}

	f.bc.Publish(snapshot)
	return true
}

// Subscribers returns the number of active subscriptions
func (f *CollectionFeed[T]) Subscribers() int {
	return f.bc.Subscribers()
}
