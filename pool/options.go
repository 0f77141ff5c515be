package pool

import (
	"errors"

	"github.com/benbjohnson/clock"
)

// Option represents a configurable parameter of the engine.
type Option func(*options) error

type options struct {
	method    DistributeMethod
	observers []Observer
	clock     clock.Clock
}

func newOptions(o ...Option) (*options, error) {
	opts := &options{
		method: Proportional,
		clock:  clock.New(),
	}
	for _, apply := range o {
		if err := apply(opts); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// WithDistributeMethod sets how Plan divides new work. Defaults to
// Proportional.
func WithDistributeMethod(m DistributeMethod) Option {
	return func(o *options) error {
		if !m.valid() {
			return errors.New("unknown distribution method")
		}
		o.method = m
		return nil
	}
}

// WithObserver adds an observer notified of every state change. It may be
// given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) error {
		if obs == nil {
			return errors.New("observer cannot be nil")
		}
		o.observers = append(o.observers, obs)
		return nil
	}
}

// WithClock sets the clock used to timestamp events. Defaults to the wall
// clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		o.clock = c
		return nil
	}
}
