// Package ledger persists the cumulative work each peer has completed.
//
// A ledger is a durable key-value store keyed by peer. The allocation engine
// reads a peer's record, merges newly finished work into it and writes it back.
// Store is the only contract the engine depends on, so any implementation,
// including an in-memory one for tests, can back it.
package ledger

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/Kubuxu/go-broadcast"
	"github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("workalloc/ledger")

var (
	// ErrNotFound signals that there is no ledger entry for a key. It is the
	// go-datastore sentinel, whichever backend the ledger runs on.
	ErrNotFound = datastore.ErrNotFound
	// ErrEmptyKey signals an attempt to address the ledger with an empty key.
	ErrEmptyKey = errors.New("ledger key cannot be empty")
)

// DefaultNamespace is the key prefix under which ledger entries are stored.
const DefaultNamespace = "/workalloc/finished"

// Key identifies a ledger entry. Its string form is what gets persisted.
type Key interface {
	comparable
	String() string
}

// Store is the get/put/delete contract over peer -> completed work.
type Store[K Key, V any] interface {
	// Get returns the value stored for k, or the zero V if there is none. An
	// error is returned only when the storage layer fails.
	Get(ctx context.Context, k K) (V, error)
	// Put writes v for k, overwriting any previous value.
	Put(ctx context.Context, k K, v V) error
	// Delete removes k and returns the value it held. Deleting an absent key
	// returns an error wrapping ErrNotFound.
	Delete(ctx context.Context, k K) (V, error)
	Close() error
}

// Lister is implemented by ledgers that can enumerate their entries.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// StringKey addresses ledger entries by plain string.
type StringKey string

func (k StringKey) String() string { return string(k) }

// Codec converts ledger values to and from bytes.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Update is published to subscribers whenever a ledger entry is written or
// removed. Deleted is set when the entry was removed, in which case Value holds
// the value it last had.
type Update[K Key, V any] struct {
	Key     K
	Value   V
	Deleted bool
}

// updates relays ledger writes to subscribers.
type updates[K Key, V any] struct {
	bus broadcast.Channel[*Update[K, V]]
}

func (u *updates[K, V]) publish(k K, v V, deleted bool) {
	u.bus.Publish(&Update[K, V]{Key: k, Value: v, Deleted: deleted})
}

// SubscribeForUpdates subscribes ch to ledger writes and returns the latest
// update seen so far, if any.
//
// If the passed channel is full at any point, it will be dropped from
// subscription and closed. To stop subscribing, either the closer function can
// be used or the channel can be abandoned.
func (u *updates[K, V]) SubscribeForUpdates(ch chan<- *Update[K, V]) (last *Update[K, V], closer func()) {
	return u.bus.Subscribe(ch)
}

// escapeKey makes the string form of a key safe to use as a single path
// segment, so that peer identifiers never nest or traverse namespaces.
func escapeKey(s string) (string, error) {
	if s == "" {
		return "", ErrEmptyKey
	}
	return strings.ReplaceAll(url.PathEscape(s), ".", "%2E"), nil
}

func unescapeKey(s string) (string, error) {
	return url.PathUnescape(strings.TrimPrefix(s, "/"))
}
