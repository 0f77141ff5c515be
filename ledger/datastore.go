package ledger

import (
	"context"
	"errors"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	"github.com/ipfs/go-datastore/query"
	ds_sync "github.com/ipfs/go-datastore/sync"
	leveldb "github.com/ipfs/go-ds-leveldb"
	"github.com/poolcoord/go-workalloc/workload"
	"golang.org/x/xerrors"
)

var _ Store[StringKey, workload.Units] = (*Datastore[StringKey, workload.Units])(nil)

// Datastore is a ledger backed by a go-datastore implementation.
type Datastore[K Key, V any] struct {
	updates[K, V]

	ds    datastore.Datastore
	codec Codec[V]
	// backing is closed along with the ledger when the ledger opened it.
	backing datastore.Datastore
}

// Open opens, or creates, a LevelDB backed workload ledger at location.
func Open[K Key](location string, o ...Option) (*Datastore[K, workload.Units], error) {
	opts, err := newOptions(o...)
	if err != nil {
		return nil, err
	}
	codec, err := opts.workloadCodec()
	if err != nil {
		return nil, xerrors.Errorf("creating ledger codec: %w", err)
	}
	ds, err := leveldb.NewDatastore(location, nil)
	if err != nil {
		return nil, xerrors.Errorf("opening ledger at %s: %w", location, err)
	}
	log.Debugw("opened leveldb ledger", "location", location, "namespace", opts.namespace, "compress", opts.compress)
	l := newDatastore[K](ds, codec, opts)
	l.backing = ds
	return l, nil
}

// NewInMemory creates a workload ledger that lives in memory only. It is safe
// for concurrent use.
func NewInMemory[K Key](o ...Option) (*Datastore[K, workload.Units], error) {
	opts, err := newOptions(o...)
	if err != nil {
		return nil, err
	}
	codec, err := opts.workloadCodec()
	if err != nil {
		return nil, xerrors.Errorf("creating ledger codec: %w", err)
	}
	ds := ds_sync.MutexWrap(datastore.NewMapDatastore())
	l := newDatastore[K](ds, codec, opts)
	l.backing = ds
	return l, nil
}

// NewDatastore creates a ledger on top of an existing datastore, storing
// values encoded with codec. The passed datastore has to be thread safe and is
// not closed by Close.
func NewDatastore[K Key, V any](ds datastore.Datastore, codec Codec[V], o ...Option) (*Datastore[K, V], error) {
	opts, err := newOptions(o...)
	if err != nil {
		return nil, err
	}
	return newDatastore[K](ds, codec, opts), nil
}

func newDatastore[K Key, V any](ds datastore.Datastore, codec Codec[V], opts *options) *Datastore[K, V] {
	return &Datastore[K, V]{
		ds:    namespace.Wrap(ds, datastore.NewKey(opts.namespace)),
		codec: codec,
	}
}

func (l *Datastore[K, V]) keyFor(k K) (datastore.Key, error) {
	escaped, err := escapeKey(k.String())
	if err != nil {
		return datastore.Key{}, err
	}
	return datastore.NewKey(escaped), nil
}

func (l *Datastore[K, V]) Get(ctx context.Context, k K) (V, error) {
	var zero V
	key, err := l.keyFor(k)
	if err != nil {
		return zero, err
	}
	b, err := l.ds.Get(ctx, key)
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		return zero, nil
	case err != nil:
		return zero, xerrors.Errorf("getting ledger entry for %s: %w", k, err)
	}
	v, err := l.codec.Decode(b)
	if err != nil {
		return zero, xerrors.Errorf("decoding ledger entry for %s: %w", k, err)
	}
	return v, nil
}

func (l *Datastore[K, V]) Put(ctx context.Context, k K, v V) error {
	key, err := l.keyFor(k)
	if err != nil {
		return err
	}
	b, err := l.codec.Encode(v)
	if err != nil {
		return xerrors.Errorf("encoding ledger entry for %s: %w", k, err)
	}
	if err := l.ds.Put(ctx, key, b); err != nil {
		return xerrors.Errorf("putting ledger entry for %s: %w", k, err)
	}
	l.publish(k, v, false)
	return nil
}

func (l *Datastore[K, V]) Delete(ctx context.Context, k K) (V, error) {
	var zero V
	key, err := l.keyFor(k)
	if err != nil {
		return zero, err
	}
	b, err := l.ds.Get(ctx, key)
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		return zero, xerrors.Errorf("deleting ledger entry for %s: %w", k, ErrNotFound)
	case err != nil:
		return zero, xerrors.Errorf("getting ledger entry for %s: %w", k, err)
	}
	prior, err := l.codec.Decode(b)
	if err != nil {
		return zero, xerrors.Errorf("decoding ledger entry for %s: %w", k, err)
	}
	if err := l.ds.Delete(ctx, key); err != nil {
		return zero, xerrors.Errorf("deleting ledger entry for %s: %w", k, err)
	}
	l.publish(k, prior, true)
	return prior, nil
}

// Keys lists the string form of every key that has a ledger entry.
func (l *Datastore[K, V]) Keys(ctx context.Context) ([]string, error) {
	res, err := l.ds.Query(ctx, query.Query{KeysOnly: true})
	if err != nil {
		return nil, xerrors.Errorf("querying ledger keys: %w", err)
	}
	defer res.Close()

	var keys []string
	for r, ok := res.NextSync(); ok; r, ok = res.NextSync() {
		if r.Error != nil {
			return nil, xerrors.Errorf("iterating ledger keys: %w", r.Error)
		}
		k, err := unescapeKey(r.Key)
		if err != nil {
			log.Warnw("skipping malformed ledger key", "key", r.Key, "error", err)
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (l *Datastore[K, V]) Close() error {
	if l.backing == nil {
		return nil
	}
	return l.backing.Close()
}
