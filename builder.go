package cache

func NewCacheBuilder[T Model[K], K comparable](
	source Source[K],
	materialize MaterializeFn[T, K],
) *Builder[T, K] {
	return &Builder[T, K]{
		source:      source,
		materialize: materialize,
	}
}

// WithStore makes the cache reuse an existing store instead of starting
// empty, so several caches over the same model type can share cached truth.
func (b *Builder[T, K]) WithStore(store *Store[T, K]) *Builder[T, K] {
	b.store = store

	return b
}

func (b *Builder[T, K]) Build() *Cache[T, K] {
	store := b.store
	if store == nil {
		store = NewStore[T, K]()
	}

	return &Cache[T, K]{
		Broadcaster: NewBroadcaster[K](),
		store:       store,
		source:      b.source,
		materialize: b.materialize,
	}
}
