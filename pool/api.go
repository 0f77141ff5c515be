// Package pool implements the workload allocation engine of a mining pool
// coordinator.
//
// The engine tracks which peers are in the pool and how much power each has
// (the registry), which work is currently assigned to which peer and not yet
// finished (the distribution), and records the work every peer completes in a
// durable ledger. It never decides on its own whom to give work to: callers
// query it with SelectIdleHighest, SelectBusiestRelative or Plan and then tell
// it what they assigned.
package pool

import (
	"context"

	"github.com/poolcoord/go-workalloc/ledger"
)

// Peer identifies a member of the pool. Equality defines identity, and the
// string form is used as the peer's ledger key.
type Peer interface {
	ledger.Key
}

// PeerID is the plain string Peer used by the coordinator.
type PeerID string

func (p PeerID) String() string { return string(p) }

// Capacity is a peer's measured ability to process work. The zero value of C
// must be a valid, empty capacity.
type Capacity[C any] interface {
	// Add returns the receiver increased by c.
	Add(c C) C
	// Sub returns the receiver decreased by c.
	Sub(c C) C
	// Measure returns the capacity as an unsigned count used for ratios.
	Measure() uint64
}

// Workload is a countable collection of work units that can be merged with and
// reduced by another collection of the same kind. The zero value of W must be a
// valid, empty workload.
type Workload[W any] interface {
	// Add returns the receiver with every unit of w appended.
	Add(w W) W
	// Sub returns the receiver without any unit equal to a unit of w.
	Sub(w W) W
	// Len returns the number of units.
	Len() int
}

// Splitter is implemented by workloads that can be cut in two. It is required
// by Plan.
type Splitter[W any] interface {
	// Split returns the first n units and the remaining ones.
	Split(n int) (W, W)
}

// Prober discovers a peer and measures its capacity. Probing happens outside
// the engine; see Engine.JoinProbed.
type Prober[P Peer, C any] interface {
	Probe(ctx context.Context) (P, C, error)
}
