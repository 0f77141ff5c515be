package pool

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/poolcoord/go-workalloc/ledger"
)

// Engine is the workload allocation engine. P identifies peers, C measures
// their power and W is the unit of assignable work.
//
// All methods are safe for concurrent use: every call holds the engine lock
// for its whole duration, ledger access included, so completions reported for
// the same peer reach the ledger in the order they were reported.
type Engine[P Peer, C Capacity[C], W Workload[W]] struct {
	opts *options

	mu sync.Mutex
	// peers maps every joined peer to its power.
	peers map[P]C
	// distribution maps every busy peer to the work assigned to it and not yet
	// reported finished.
	distribution map[P]W
	// totalPower is the sum of the values of peers.
	totalPower C
	// totalWorkload is the sum of Len of the values of distribution.
	totalWorkload int
	// finished holds the cumulative work completed by each peer.
	finished ledger.Store[P, W]
}

// New creates an engine recording finished work in the given ledger. The
// engine takes ownership of the ledger and closes it on Close.
func New[P Peer, C Capacity[C], W Workload[W]](finished ledger.Store[P, W], o ...Option) (*Engine[P, C, W], error) {
	if finished == nil {
		return nil, errors.New("ledger cannot be nil")
	}
	opts, err := newOptions(o...)
	if err != nil {
		return nil, err
	}
	return &Engine[P, C, W]{
		opts:         opts,
		peers:        make(map[P]C),
		distribution: make(map[P]W),
		finished:     finished,
	}, nil
}

// PeerJoin registers peer with the given power. Joining again replaces the
// previously registered power.
func (e *Engine[P, C, W]) PeerJoin(peer P, power C) {
	e.mu.Lock()
	if prior, found := e.peers[peer]; found {
		e.totalPower = e.totalPower.Sub(prior)
	}
	e.peers[peer] = power
	e.totalPower = e.totalPower.Add(power)
	ev := e.eventLocked(EventPeerJoined, peer)
	ev.Power = power.Measure()
	e.mu.Unlock()

	e.emit(ev)
}

// JoinProbed asks prober for a peer and its power and registers it.
func (e *Engine[P, C, W]) JoinProbed(ctx context.Context, prober Prober[P, C]) (P, error) {
	peer, power, err := prober.Probe(ctx)
	if err != nil {
		var zero P
		return zero, err
	}
	e.PeerJoin(peer, power)
	return peer, nil
}

// PeerLeave removes peer from the pool. Work still assigned to it is dropped
// from the distribution and returned, so that the caller may hand it to another
// peer; found reports whether there was any. Leaving is a no-op for peers that
// are neither registered nor busy.
func (e *Engine[P, C, W]) PeerLeave(peer P) (abandoned W, found bool) {
	e.mu.Lock()
	power, registered := e.peers[peer]
	if registered {
		delete(e.peers, peer)
		e.totalPower = e.totalPower.Sub(power)
	}
	abandoned, found = e.distribution[peer]
	if found {
		delete(e.distribution, peer)
		e.totalWorkload -= abandoned.Len()
	}
	if !registered && !found {
		e.mu.Unlock()
		return abandoned, false
	}
	ev := e.eventLocked(EventPeerLeft, peer)
	if registered {
		ev.Power = power.Measure()
	}
	if found {
		ev.Units = abandoned.Len()
	}
	e.mu.Unlock()

	e.emit(ev)
	return abandoned, found
}

// Assign records work as assigned to peer. Any work previously assigned to
// peer is replaced, not added to.
func (e *Engine[P, C, W]) Assign(peer P, work W) {
	e.mu.Lock()
	if prior, found := e.distribution[peer]; found {
		e.totalWorkload -= prior.Len()
	}
	e.distribution[peer] = work
	e.totalWorkload += work.Len()
	ev := e.eventLocked(EventWorkAssigned, peer)
	ev.Units = work.Len()
	ev.Outstanding = work.Len()
	e.mu.Unlock()

	e.emit(ev)
}

// ReportCompletion records that peer finished the given work.
//
// Reports from peers without an assignment are discarded. Otherwise every unit
// equal to a finished unit is removed from the peer's assignment, which stays in
// the distribution even when nothing remains, and the finished work is merged
// into the peer's ledger record.
//
// A failure to read or write the ledger is returned as an error matching
// ErrLedger. The assignment is updated regardless.
func (e *Engine[P, C, W]) ReportCompletion(ctx context.Context, peer P, finished W) error {
	e.mu.Lock()
	current, busy := e.distribution[peer]
	if !busy {
		ev := e.eventLocked(EventCompletionDiscarded, peer)
		ev.Units = finished.Len()
		e.mu.Unlock()
		e.emit(ev)
		return nil
	}

	remaining := current.Sub(finished)
	e.distribution[peer] = remaining
	e.totalWorkload -= current.Len() - remaining.Len()

	events := make([]Event, 0, 2)
	ev := e.eventLocked(EventWorkCompleted, peer)
	ev.Units = finished.Len()
	ev.Outstanding = remaining.Len()
	events = append(events, ev)

	err := e.recordFinishedLocked(ctx, peer, finished)
	if err != nil {
		failed := e.eventLocked(EventLedgerFailed, peer)
		failed.Units = finished.Len()
		failed.Outstanding = remaining.Len()
		failed.Err = err
		events = append(events, failed)
	}
	e.mu.Unlock()

	e.emit(events...)
	return err
}

func (e *Engine[P, C, W]) recordFinishedLocked(ctx context.Context, peer P, finished W) error {
	prior, err := e.finished.Get(ctx, peer)
	if err != nil {
		// Writing without the prior record would erase it.
		return &LedgerError{Peer: peer.String(), Op: "reading", Err: err}
	}
	if err := e.finished.Put(ctx, peer, prior.Add(finished)); err != nil {
		return &LedgerError{Peer: peer.String(), Op: "writing", Err: err}
	}
	return nil
}

// Release drops the assignment of peer, typically once all of it has been
// reported finished, making the peer idle again. It returns whatever was still
// assigned.
func (e *Engine[P, C, W]) Release(peer P) (W, bool) {
	e.mu.Lock()
	work, found := e.distribution[peer]
	if !found {
		e.mu.Unlock()
		return work, false
	}
	delete(e.distribution, peer)
	e.totalWorkload -= work.Len()
	ev := e.eventLocked(EventWorkReleased, peer)
	ev.Units = work.Len()
	e.mu.Unlock()

	e.emit(ev)
	return work, true
}

// Finished returns the cumulative work recorded for peer in the ledger.
func (e *Engine[P, C, W]) Finished(ctx context.Context, peer P) (W, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, err := e.finished.Get(ctx, peer)
	if err != nil {
		return w, &LedgerError{Peer: peer.String(), Op: "reading", Err: err}
	}
	return w, nil
}

// Peers returns a copy of the registry.
func (e *Engine[P, C, W]) Peers() map[P]C {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.peers)
}

// Distribution returns a copy of the current work distribution.
func (e *Engine[P, C, W]) Distribution() map[P]W {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.distribution)
}

// Assignment returns the work currently assigned to peer, if any.
func (e *Engine[P, C, W]) Assignment(peer P) (W, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, found := e.distribution[peer]
	return w, found
}

func (e *Engine[P, C, W]) TotalPower() C {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalPower
}

// TotalWorkload returns the number of units assigned and not yet finished.
func (e *Engine[P, C, W]) TotalWorkload() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalWorkload
}

func (e *Engine[P, C, W]) Method() DistributeMethod {
	return e.opts.method
}

// Close closes the ledger.
func (e *Engine[P, C, W]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished.Close()
}

func (e *Engine[P, C, W]) eventLocked(kind EventKind, peer P) Event {
	ev := Event{
		Kind:          kind,
		At:            e.opts.clock.Now(),
		Peer:          peer.String(),
		TotalPower:    e.totalPower.Measure(),
		TotalWorkload: e.totalWorkload,
		Peers:         len(e.peers),
		BusyPeers:     len(e.distribution),
	}
	if w, found := e.distribution[peer]; found {
		ev.Outstanding = w.Len()
	}
	return ev
}

func (e *Engine[P, C, W]) emit(events ...Event) {
	for _, ev := range events {
		for _, obs := range e.opts.observers {
			obs.Observe(ev)
		}
	}
}
