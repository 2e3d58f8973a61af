package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// DefaultFanOutLimit is the default maximum identifier count for one
	// in-list query.
	DefaultFanOutLimit = 100
	// DefaultKeyPrefix namespaces document keys inside redis.
	DefaultKeyPrefix = "doc:"
	// DefaultHotCacheSize is the default size of the preferCache hot layer.
	DefaultHotCacheSize = 10000
	// DefaultHotCacheTTL bounds how long the hot layer may answer for a
	// document before redis is consulted again.
	DefaultHotCacheTTL = 1 * time.Minute
)

// RedisSource serves documents stored as msgpack blobs under a key prefix.
// Single-identifier queries map to GET, in-list queries to MGET. When a query
// arrives with preferCache set, an in-process hot layer may answer without
// touching redis; fresh reads refill the hot layer.
type RedisSource[K comparable] struct {
	client      redis.Cmdable
	keyPrefix   string
	fanOutLimit int
	hot         *expirable.LRU[string, RawDocument]
}

func NewRedisSource[K comparable](client redis.Cmdable) *RedisSource[K] {
	return &RedisSource[K]{
		client:      client,
		keyPrefix:   DefaultKeyPrefix,
		fanOutLimit: DefaultFanOutLimit,
		hot:         expirable.NewLRU[string, RawDocument](DefaultHotCacheSize, nil, DefaultHotCacheTTL),
	}
}

func (s *RedisSource[K]) WithKeyPrefix(prefix string) *RedisSource[K] {
	s.keyPrefix = prefix

	return s
}

func (s *RedisSource[K]) WithFanOutLimit(limit int) *RedisSource[K] {
	if limit > 0 {
		s.fanOutLimit = limit
	}

	return s
}

// FanOutLimit implements Source.
func (s *RedisSource[K]) FanOutLimit() int {
	return s.fanOutLimit
}

func (s *RedisSource[K]) keyFor(id K) string {
	return fmt.Sprintf("%s%v", s.keyPrefix, id)
}

// Run implements Source.
func (s *RedisSource[K]) Run(ctx context.Context, query Query[K], preferCache bool) ([]RawDocument, error) {
	ids := query.IDs()

	if len(ids) == 0 {
		return nil, nil
	}

	if len(ids) > s.fanOutLimit {
		return nil, errors.Errorf("query fans out to %d identifiers, limit is %d", len(ids), s.fanOutLimit)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.keyFor(id))
	}

	var docs []RawDocument
	toRead := keys

	if preferCache {
		toRead = nil

		for _, key := range keys {
			if doc, ok := s.hot.Get(key); ok {
				docs = append(docs, doc)
				continue
			}

			toRead = append(toRead, key)
		}
	}

	if len(toRead) == 0 {
		return docs, nil
	}

	if query.Single() {
		cmd := s.client.Get(ctx, toRead[0])

		if cmd.Err() != nil {
			if errors.Is(cmd.Err(), redis.Nil) {
				return docs, nil
			}
			return nil, errors.WithStack(cmd.Err())
		}

		bts, err := cmd.Bytes()
		if err != nil {
			return nil, errors.WithStack(err)
		}

		s.hot.Add(toRead[0], bts)

		return append(docs, bts), nil
	}

	cmd := s.client.MGet(ctx, toRead...)

	if cmd.Err() != nil {
		return nil, errors.WithStack(cmd.Err())
	}

	for i, v := range cmd.Val() {
		if v == nil {
			continue
		}

		var payload []byte

		switch val := v.(type) {
		case []byte:
			payload = val
		case string:
			payload = []byte(val)
		default:
			zerolog.Ctx(ctx).Warn().Str("key", toRead[i]).Msg("unexpected payload type")
			continue
		}

		s.hot.Add(toRead[i], payload)
		docs = append(docs, payload)
	}

	return docs, nil
}

// Insert writes documents as msgpack blobs, one SET per document inside a
// transactional pipeline. Documents that fail to marshal are skipped and
// reported together after the rest have been written.
func (s *RedisSource[K]) Insert(ctx context.Context, docs map[K]interface{}) error {
	var marshalErr error

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, v := range docs {
			b, err := msgpack.Marshal(v)

			if err != nil {
				marshalErr = multierror.Append(marshalErr, errors.WithStack(err))
				continue
			}

			key := s.keyFor(id)
			s.hot.Remove(key)
			pipe.Set(ctx, key, b, 0)
		}

		return nil
	})

	if err != nil {
		return errors.WithStack(err)
	}

	return marshalErr
}

// Delete removes the documents for the given identifiers.
func (s *RedisSource[K]) Delete(ctx context.Context, ids ...K) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		key := s.keyFor(id)
		s.hot.Remove(key)
		keys = append(keys, key)
	}

	return errors.WithStack(s.client.Del(ctx, keys...).Err())
}
