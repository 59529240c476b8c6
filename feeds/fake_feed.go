package feeds

// FakeFeed is a manually driven feed for tests
type FakeFeed[T any] struct {
	Broadcaster[T]
}

// NewFakeFeed creates a fake feed with no snapshot yet
func NewFakeFeed[T any]() *FakeFeed[T] {
	return &FakeFeed[T]{}
}

// Emit publishes v to the subscribers
func (f *FakeFeed[T]) Emit(v T) {
	f.Publish(v)
}

// EmitError reports err to the subscribers' error handlers
func (f *FakeFeed[T]) EmitError(err error) {
	f.Fail(err)
}
