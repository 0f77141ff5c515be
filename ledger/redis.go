package ledger

import (
	"context"
	"errors"

	"github.com/poolcoord/go-workalloc/workload"
	"github.com/redis/go-redis/v9"
	"golang.org/x/xerrors"
)

var _ Store[StringKey, workload.Units] = (*Redis[StringKey, workload.Units])(nil)

// Redis is a ledger backed by a Redis server. Entries live under keys of the
// form "<namespace>/<escaped key>".
type Redis[K Key, V any] struct {
	updates[K, V]

	client *redis.Client
	prefix string
	codec  Codec[V]
}

// DialRedis connects to the Redis server at addr, selecting database db, and
// returns a workload ledger on top of it.
func DialRedis[K Key](ctx context.Context, addr, password string, db int, o ...Option) (*Redis[K, workload.Units], error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Errorf("connecting to redis at %s: %w", addr, err)
	}
	log.Debugw("connected to redis ledger", "addr", addr, "db", db)
	return NewRedis[K](client, o...)
}

// NewRedis creates a workload ledger using an existing client. The client is
// closed by Close.
func NewRedis[K Key](client *redis.Client, o ...Option) (*Redis[K, workload.Units], error) {
	opts, err := newOptions(o...)
	if err != nil {
		return nil, err
	}
	codec, err := opts.workloadCodec()
	if err != nil {
		return nil, xerrors.Errorf("creating ledger codec: %w", err)
	}
	return &Redis[K, workload.Units]{
		client: client,
		prefix: opts.namespace + "/",
		codec:  codec,
	}, nil
}

func (l *Redis[K, V]) keyFor(k K) (string, error) {
	escaped, err := escapeKey(k.String())
	if err != nil {
		return "", err
	}
	return l.prefix + escaped, nil
}

func (l *Redis[K, V]) Get(ctx context.Context, k K) (V, error) {
	var zero V
	key, err := l.keyFor(k)
	if err != nil {
		return zero, err
	}
	b, err := l.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
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

func (l *Redis[K, V]) Put(ctx context.Context, k K, v V) error {
	key, err := l.keyFor(k)
	if err != nil {
		return err
	}
	b, err := l.codec.Encode(v)
	if err != nil {
		return xerrors.Errorf("encoding ledger entry for %s: %w", k, err)
	}
	if err := l.client.Set(ctx, key, b, 0).Err(); err != nil {
		return xerrors.Errorf("putting ledger entry for %s: %w", k, err)
	}
	l.publish(k, v, false)
	return nil
}

func (l *Redis[K, V]) Delete(ctx context.Context, k K) (V, error) {
	var zero V
	key, err := l.keyFor(k)
	if err != nil {
		return zero, err
	}
	b, err := l.client.GetDel(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return zero, xerrors.Errorf("deleting ledger entry for %s: %w", k, ErrNotFound)
	case err != nil:
		return zero, xerrors.Errorf("deleting ledger entry for %s: %w", k, err)
	}
	prior, err := l.codec.Decode(b)
	if err != nil {
		return zero, xerrors.Errorf("decoding deleted ledger entry for %s: %w", k, err)
	}
	l.publish(k, prior, true)
	return prior, nil
}

// Keys lists the string form of every key that has a ledger entry.
func (l *Redis[K, V]) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := l.client.Scan(ctx, 0, l.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		k, err := unescapeKey(iter.Val()[len(l.prefix):])
		if err != nil {
			log.Warnw("skipping malformed ledger key", "key", iter.Val(), "error", err)
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, xerrors.Errorf("scanning ledger keys: %w", err)
	}
	return keys, nil
}

func (l *Redis[K, V]) Close() error {
	return l.client.Close()
}
