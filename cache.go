package cache

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// GetByID returns the model for one identifier. Unless opts.ForceRefresh is
// set, a store hit is returned as-is with no remote round trip and no
// notification. On a miss the source is queried, the result inserted into the
// store and, when opts.Notify is set, one "fetched" record is published.
//
// A nil model with a nil error means not found; an unavailable source is
// treated the same way. Concurrent misses on the same identifier share one
// remote query.
func (c *Cache[T, K]) GetByID(ctx context.Context, id K, opts GetOptions) (*T, error) {
	if !opts.ForceRefresh {
		if m := c.store.Get(id); m != nil {
			return m, nil
		}
	}

	v, err, _ := c.flight.Do(fmt.Sprintf("%v", id), func() (interface{}, error) {
		return c.fetchOne(ctx, id, opts)
	})

	if err != nil {
		return nil, err
	}

	return v.(*T), nil
}

func (c *Cache[T, K]) fetchOne(ctx context.Context, id K, opts GetOptions) (*T, error) {
	if c.materialize == nil {
		return (*T)(nil), errors.New("materializer is not defined")
	}

	docs, err := c.source.Run(ctx, QueryByID(id), opts.PreferCache)

	if err != nil { // unavailable collapses into not found
		zerolog.Ctx(ctx).Err(err).Msg("single document query unavailable")
		return (*T)(nil), nil
	}

	if len(docs) == 0 {
		return (*T)(nil), nil
	}

	m, err := c.materialize(docs[0])

	if err != nil {
		return (*T)(nil), errors.Wrap(err, "can not materialize document")
	}

	c.store.Put([]*T{m})

	if opts.Notify {
		c.Notify(ChangeFetched, id)
	}

	return m, nil
}

// GetByIDs returns the models for a list of identifiers. Identifiers already
// in the store are served from it (unless opts.ForceRefresh is set); the rest
// are fetched in consecutive chunks of at most the source's fan-out limit,
// one sequential remote query per chunk. All fetched models are inserted into
// the store in one batch and, when opts.Notify is set, one "fetched" record
// per missing identifier is published as a single batch.
//
// The result is ordered store hits first, then fetched models; callers must
// not rely on input order. A chunk whose query is unavailable contributes
// zero models, so the result can be shorter than the input.
func (c *Cache[T, K]) GetByIDs(ctx context.Context, ids []K, opts GetOptions) ([]*T, error) {
	var hits []*T
	var toFetch []K

	if opts.ForceRefresh {
		toFetch = ids
	} else {
		for _, id := range ids {
			if m := c.store.Get(id); m != nil {
				hits = append(hits, m)
				continue
			}

			toFetch = append(toFetch, id)
		}
	}

	if len(toFetch) == 0 {
		return hits, nil
	}

	if c.materialize == nil {
		return nil, errors.New("materializer is not defined")
	}

	limit := c.source.FanOutLimit()
	if limit <= 0 {
		limit = DefaultFanOutLimit
	}

	var fetched []*T

	for _, chunk := range chunkBy(toFetch, limit) {
		docs, err := c.source.Run(ctx, QueryByIDs(chunk), opts.PreferCache)

		if err != nil { // tolerated, chunk yields zero documents
			zerolog.Ctx(ctx).Err(err).Int("ids", len(chunk)).Msg("chunk query unavailable")
			continue
		}

		for _, doc := range docs {
			m, err := c.materialize(doc)

			if err != nil {
				return nil, errors.Wrap(err, "can not materialize document")
			}

			fetched = append(fetched, m)
		}
	}

	c.store.Put(fetched)

	if opts.Notify {
		c.Notify(ChangeFetched, toFetch...)
	}

	return append(hits, fetched...), nil
}

// RecordInserted puts models written through a separate path into the store.
// Observers are not informed; pair with Notify or NotifyMixed when they
// should be.
func (c *Cache[T, K]) RecordInserted(models []*T) {
	c.store.Put(models)
}

// RecordDeleted drops identifiers deleted through a separate path from the
// store, so later reads fall through to the source. Observers are not
// informed; pair with Notify when they should be.
func (c *Cache[T, K]) RecordDeleted(ids []K) {
	c.store.Remove(ids)
}

// NotifyModels publishes one update record per model, all sharing kind.
func (c *Cache[T, K]) NotifyModels(kind ChangeKind, models []*T) {
	ids := make([]K, 0, len(models))
	for _, m := range models {
		ids = append(ids, (*m).ModelID())
	}

	c.Notify(kind, ids...)
}

// Store exposes the identifier to model store backing this cache.
func (c *Cache[T, K]) Store() *Store[T, K] {
	return c.store
}

func chunkBy[K any](items []K, chunkSize int) (chunks [][]K) {
	for chunkSize < len(items) {
		items, chunks = items[chunkSize:], append(chunks, items[0:chunkSize:chunkSize])
	}
	return append(chunks, items)
}
