package pool

import (
	"math"
)

// SelectIdleHighest returns the idle peer with the greatest power, that is the
// registered peer without an assignment whose power measures highest. Peers of
// equal measure are ordered by their string form, smallest first. It returns
// false when there are as many busy peers as registered ones, even if some of
// the busy peers were never registered.
//
// It panics with an *InvariantError if more peers are busy than registered.
func (e *Engine[P, C, W]) SelectIdleHighest() (P, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.distribution) > len(e.peers) {
		panic(&InvariantError{
			Registered: len(e.peers),
			Busy:       len(e.distribution),
			Reason:     "more busy peers than registered peers",
		})
	}
	if len(e.distribution) == len(e.peers) {
		var zero P
		return zero, false
	}

	var (
		best        P
		bestMeasure uint64
		found       bool
	)
	for peer, power := range e.peers {
		if _, busy := e.distribution[peer]; busy {
			continue
		}
		measure := power.Measure()
		switch {
		case !found,
			measure > bestMeasure,
			measure == bestMeasure && peer.String() < best.String():
			best, bestMeasure, found = peer, measure, true
		}
	}
	return best, found
}

// SelectBusiestRelative returns the peer most loaded relative to its power: the
// one with the highest ratio of assigned units to power measure. A peer with no
// units has ratio 0 and a peer with units but no measurable power has an
// infinite ratio. Ties are broken by string form, smallest first. It returns
// false only when no peer is registered.
//
// Every registered peer must be busy when this is called. It panics with an
// *InvariantError otherwise.
func (e *Engine[P, C, W]) SelectBusiestRelative() (P, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.distribution) != len(e.peers) {
		panic(&InvariantError{
			Registered: len(e.peers),
			Busy:       len(e.distribution),
			Reason:     "relative selection requires every registered peer to be busy",
		})
	}

	var (
		best      P
		bestRatio float64
		found     bool
	)
	for peer, power := range e.peers {
		work, busy := e.distribution[peer]
		if !busy {
			panic(&InvariantError{
				Registered: len(e.peers),
				Busy:       len(e.distribution),
				Reason:     "registered peer " + peer.String() + " has no assignment",
			})
		}
		r := ratio(work.Len(), power.Measure())
		switch {
		case !found,
			r > bestRatio,
			r == bestRatio && peer.String() < best.String():
			best, bestRatio, found = peer, r, true
		}
	}
	return best, found
}

func ratio(units int, measure uint64) float64 {
	switch {
	case units == 0:
		return 0
	case measure == 0:
		return math.Inf(1)
	default:
		return float64(units) / float64(measure)
	}
}
