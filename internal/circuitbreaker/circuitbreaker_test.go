package circuitbreaker_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/poolcoord/go-workalloc/internal/circuitbreaker"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	const (
		maxFailures = 3
		restTimeout = 10 * time.Second
	)

	var (
		failure = errors.New("fish out of water")
		benign  = errors.New("nothing to see")

		succeed = func() error { return nil }
		fail    = func() error { return failure }
		trip    = func(t *testing.T, subject *circuitbreaker.CircuitBreaker) {
			for range maxFailures {
				require.ErrorContains(t, subject.Run(fail), "fish")
			}
			require.Equal(t, circuitbreaker.Open, subject.GetStatus())
		}
		newSubject = func() (*circuitbreaker.CircuitBreaker, *clock.Mock) {
			clk := clock.NewMock()
			return circuitbreaker.New(maxFailures, restTimeout,
				circuitbreaker.WithClock(clk),
				circuitbreaker.WithIgnoredErrors(func(err error) bool { return errors.Is(err, benign) }),
			), clk
		}
	)

	t.Run("closed on no error", func(t *testing.T) {
		t.Parallel()
		subject, _ := newSubject()
		require.NoError(t, subject.Run(succeed))
		require.Equal(t, circuitbreaker.Closed, subject.GetStatus())
	})

	t.Run("opens after max failures and stays open", func(t *testing.T) {
		subject, clk := newSubject()
		trip(t, subject)

		clk.Add(restTimeout - time.Millisecond)
		err := subject.Run(succeed)
		require.ErrorIs(t, err, circuitbreaker.ErrOpen)
		require.Equal(t, circuitbreaker.Open, subject.GetStatus())
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		subject, _ := newSubject()
		for range maxFailures - 1 {
			require.Error(t, subject.Run(fail))
		}
		require.NoError(t, subject.Run(succeed))
		require.Error(t, subject.Run(fail))
		require.Equal(t, circuitbreaker.Closed, subject.GetStatus())
	})

	t.Run("ignored errors do not trip", func(t *testing.T) {
		subject, _ := newSubject()
		for range maxFailures * 2 {
			require.ErrorIs(t, subject.Run(func() error { return benign }), benign)
		}
		require.Equal(t, circuitbreaker.Closed, subject.GetStatus())
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		subject, clk := newSubject()
		trip(t, subject)
		require.ErrorIs(t, subject.Run(fail), circuitbreaker.ErrOpen)

		clk.Add(restTimeout)
		require.ErrorIs(t, subject.Run(fail), failure)
		require.Equal(t, circuitbreaker.Open, subject.GetStatus())
		require.ErrorIs(t, subject.Run(succeed), circuitbreaker.ErrOpen)
	})

	t.Run("closes after rest timeout and success", func(t *testing.T) {
		subject, clk := newSubject()
		trip(t, subject)

		clk.Add(restTimeout)
		require.NoError(t, subject.Run(succeed))
		require.Equal(t, circuitbreaker.Closed, subject.GetStatus())
		require.Equal(t, "closed", subject.GetStatus().String())
	})

	t.Run("usable concurrently", func(t *testing.T) {
		subject, _ := newSubject()
		const (
			wantSuccesses = 7
			totalAttempts = 1_000
		)
		var (
			successes, failures int
			wg                  sync.WaitGroup
		)
		for range totalAttempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = subject.Run(func() error {
					// Unsafely increment counters so that the test races if Run is not
					// synchronised.
					if successes < wantSuccesses {
						successes++
						return nil
					}
					failures++
					return errors.New("error")
				})
			}()
		}
		wg.Wait()
		require.Equal(t, wantSuccesses, successes)
		require.Equal(t, maxFailures, failures)
	})
}
