package pool

import (
	"errors"
	"fmt"
)

var (
	_ error = (*LedgerError)(nil)
	_ error = (*InvariantError)(nil)

	// ErrLedger signals that reading or writing the ledger of finished work
	// failed. Errors returned by ReportCompletion for that reason match it with
	// errors.Is; the underlying storage error is available via errors.Unwrap.
	ErrLedger = errors.New("ledger access failed")
	// ErrNoPeers signals that work cannot be planned because no peer is in the
	// pool.
	ErrNoPeers = errors.New("no peers in pool")
	// ErrNoPower signals that work cannot be planned because no peer has a
	// measurable capacity.
	ErrNoPower = errors.New("pool has no measurable power")
	// ErrMethodNotImplemented signals a distribution method that is named but has
	// no planning algorithm.
	ErrMethodNotImplemented = errors.New("distribution method not implemented")
	// ErrNotSplittable signals that a workload cannot be divided among peers
	// because it does not implement Splitter.
	ErrNotSplittable = errors.New("workload cannot be split")
)

// LedgerError describes a failed ledger operation for a peer.
type LedgerError struct {
	Peer string
	Op   string
	Err  error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s finished work of peer %s: %v", e.Op, e.Peer, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

func (e *LedgerError) Is(target error) bool { return target == ErrLedger }

// InvariantError is the panic value raised when the registry and distribution
// disagree in a way correct use of the engine can never produce.
type InvariantError struct {
	Registered int
	Busy       int
	Reason     string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("pool invariant violated: %s (registered peers: %d, busy peers: %d)", e.Reason, e.Registered, e.Busy)
}
