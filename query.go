package cache

// Query describes one remote read: either a single-identifier equality match
// or an "identifier is one of" list match. Values are built through QueryByID
// and QueryByIDs and are immutable afterwards.
type Query[K comparable] struct {
	ids    []K
	single bool
}

// QueryByID builds an equality query for one identifier.
func QueryByID[K comparable](id K) Query[K] {
	return Query[K]{
		ids:    []K{id},
		single: true,
	}
}

// QueryByIDs builds an in-list query. The caller is responsible for keeping
// the list within the source's fan-out limit; sources reject oversized lists.
func QueryByIDs[K comparable](ids []K) Query[K] {
	return Query[K]{
		ids: ids,
	}
}

// IDs returns the identifiers the query matches against.
func (q Query[K]) IDs() []K {
	return q.ids
}

// Single reports whether the query is a single-identifier equality match.
func (q Query[K]) Single() bool {
	return q.single
}
