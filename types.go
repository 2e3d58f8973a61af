package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Model is any entity carrying a stable identifier. The identifier type K
// only needs to be comparable; string is the common case.
type Model[K comparable] interface {
	ModelID() K
}

// RawDocument is one opaque document payload as returned by a remote source.
// The cache never interprets it; a MaterializeFn does.
type RawDocument []byte

// MaterializeFn converts one raw payload into a typed model. It is expected
// to be pure; a failure is treated as a hard error by the cache.
type MaterializeFn[T Model[K], K comparable] func(doc RawDocument) (*T, error)

// Source is the remote document database boundary. Run executes one query and
// returns the matching payloads; an error result means the source is
// unavailable for that query. FanOutLimit reports the maximum identifier
// count the source accepts in a single in-list query; the cache splits larger
// requests into chunks of at most that size.
type Source[K comparable] interface {
	Run(ctx context.Context, query Query[K], preferCache bool) ([]RawDocument, error)
	FanOutLimit() int
}

// ChangeKind classifies one store change for notification purposes.
type ChangeKind uint8

const (
	ChangeFetched ChangeKind = iota
	ChangeCreated
	ChangeUpdated
	ChangeDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeFetched:
		return "fetched"
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// UpdateRecord is the unit of notification: one identifier plus what happened
// to it. Records are values and never retained by the cache after publish.
type UpdateRecord[K comparable] struct {
	ID   K
	Kind ChangeKind
}

// ListenerFn receives every published batch of update records.
type ListenerFn[K comparable] func(updates []UpdateRecord[K])

// GetOptions carries the per-call read flags.
//
// PreferCache is forwarded to the source as a hint that a cached answer is
// acceptable. ForceRefresh bypasses the local store and overwrites it with
// whatever the source returns. Notify publishes a "fetched" batch for every
// identifier that had to be fetched.
type GetOptions struct {
	PreferCache  bool
	ForceRefresh bool
	Notify       bool
}

type Builder[T Model[K], K comparable] struct {
	source      Source[K]
	materialize MaterializeFn[T, K]
	store       *Store[T, K]
}

type Cache[T Model[K], K comparable] struct {
	*Broadcaster[K]

	store       *Store[T, K]
	source      Source[K]
	materialize MaterializeFn[T, K]
	flight      singleflight.Group
}
