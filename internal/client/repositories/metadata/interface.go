// Package metadata is the page-scoped key/value store of the client: the
// backend only client code reads. Values are opaque bytes.
//
// Get returns (nil, nil) for a missing key. The *Many operations are
// all-or-nothing: either every key is written/removed or none is.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMany(ctx context.Context, values map[string][]byte) error
	DeleteMany(ctx context.Context, keys []string) error
}
