// Package kv provides the durable key-value storage used for client-side
// caches (lead rows, sessions, roles). Values are opaque serialized records.
// This is part of the platform layer and contains no business logic.
package kv

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a byte-oriented key-value store. Every write is a self-contained
// replacement of a single key; there are no cross-key transactions.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Namespaced scopes a store under a fixed key prefix so several owners can
// share one backend without seeing each other's keys.
type Namespaced struct {
	inner  Store
	prefix string
}

// WithNamespace returns a view of store whose keys are prefixed with ns.
func WithNamespace(store Store, ns string) *Namespaced {
	return &Namespaced{inner: store, prefix: ns}
}

func (n *Namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *Namespaced) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = n.prefix + k
	}
	return n.inner.Delete(ctx, full...)
}

func (n *Namespaced) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := n.inner.Keys(ctx, n.prefix+prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, n.prefix))
	}
	return out, nil
}

var _ Store = (*Namespaced)(nil)
