package cache

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackMaterializer returns a MaterializeFn that decodes msgpack payloads,
// the codec the shipped sources write. Callers with another payload format
// supply their own MaterializeFn instead.
func MsgpackMaterializer[T Model[K], K comparable]() MaterializeFn[T, K] {
	return func(doc RawDocument) (*T, error) {
		var item T

		if err := msgpack.Unmarshal(doc, &item); err != nil {
			return nil, errors.WithStack(err)
		}

		return &item, nil
	}
}
