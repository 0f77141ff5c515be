package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/poolcoord/go-workalloc/internal/circuitbreaker"
)

// ErrUnavailable signals that the ledger was not accessed because recent
// attempts kept failing. See NewGuarded.
var ErrUnavailable = circuitbreaker.ErrOpen

var _ Store[StringKey, struct{}] = (*Guarded[StringKey, struct{}])(nil)

// Guarded wraps a ledger with a circuit breaker. After maxFailures consecutive
// storage failures every call fails fast with ErrUnavailable until
// resetTimeout has passed, at which point a single call is let through to probe
// the storage again.
//
// Absent keys and cancelled contexts do not count as failures.
type Guarded[K Key, V any] struct {
	delegate Store[K, V]
	breaker  *circuitbreaker.CircuitBreaker
}

func NewGuarded[K Key, V any](delegate Store[K, V], maxFailures int, resetTimeout time.Duration, clk clock.Clock) *Guarded[K, V] {
	if clk == nil {
		clk = clock.New()
	}
	return &Guarded[K, V]{
		delegate: delegate,
		breaker: circuitbreaker.New(maxFailures, resetTimeout,
			circuitbreaker.WithClock(clk),
			circuitbreaker.WithIgnoredErrors(func(err error) bool {
				return errors.Is(err, ErrNotFound) ||
					errors.Is(err, ErrEmptyKey) ||
					errors.Is(err, context.Canceled) ||
					errors.Is(err, context.DeadlineExceeded)
			})),
	}
}

// Unwrap returns the wrapped ledger.
func (g *Guarded[K, V]) Unwrap() Store[K, V] {
	return g.delegate
}

// Available reports whether calls currently reach the wrapped ledger.
func (g *Guarded[K, V]) Available() bool {
	return g.breaker.GetStatus() != circuitbreaker.Open
}

func (g *Guarded[K, V]) Get(ctx context.Context, k K) (v V, err error) {
	err = g.breaker.Run(func() (err error) {
		v, err = g.delegate.Get(ctx, k)
		return err
	})
	return v, err
}

func (g *Guarded[K, V]) Put(ctx context.Context, k K, v V) error {
	return g.breaker.Run(func() error {
		return g.delegate.Put(ctx, k, v)
	})
}

func (g *Guarded[K, V]) Delete(ctx context.Context, k K) (v V, err error) {
	err = g.breaker.Run(func() (err error) {
		v, err = g.delegate.Delete(ctx, k)
		return err
	})
	return v, err
}

func (g *Guarded[K, V]) Close() error {
	return g.delegate.Close()
}
