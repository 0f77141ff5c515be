package pool

import (
	"fmt"
	"math/big"
	"slices"
	"strings"
)

// DistributeMethod is the policy by which Plan divides new work among peers.
type DistributeMethod int

const (
	// Proportional gives every peer a share of the work equal to its share of
	// the total power.
	Proportional DistributeMethod = iota
	// Grouped first buckets peers into groups, by power or otherwise, then
	// gives every group the same amount of work. It has no planning algorithm
	// yet; Plan returns ErrMethodNotImplemented.
	Grouped
)

func (m DistributeMethod) valid() bool {
	return m == Proportional || m == Grouped
}

func (m DistributeMethod) String() string {
	switch m {
	case Proportional:
		return "proportional"
	case Grouped:
		return "grouped"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseDistributeMethod parses the name of a method. "default" is accepted as
// an alias of "proportional".
func ParseDistributeMethod(s string) (DistributeMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "proportional":
		return Proportional, nil
	case "grouped":
		return Grouped, nil
	default:
		return 0, fmt.Errorf("unknown distribution method: %q", s)
	}
}

func (m DistributeMethod) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("unknown distribution method: %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *DistributeMethod) UnmarshalText(b []byte) error {
	parsed, err := ParseDistributeMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Plan divides work among the registered peers according to the engine's
// distribution method, without assigning anything. Callers Assign the returned
// shares themselves.
//
// With Proportional, each peer receives a number of units proportional to the
// measure of its power, using the largest remainder method so that every unit
// is handed out. Peers whose share rounds to nothing are left out. Units are
// dealt in order of peer string form.
func (e *Engine[P, C, W]) Plan(work W) (map[P]W, error) {
	if e.opts.method != Proportional {
		return nil, fmt.Errorf("planning with %s: %w", e.opts.method, ErrMethodNotImplemented)
	}
	if _, ok := any(work).(Splitter[W]); !ok {
		return nil, ErrNotSplittable
	}

	type candidate struct {
		peer      P
		measure   uint64
		share     int
		remainder *big.Int
	}

	e.mu.Lock()
	candidates := make([]*candidate, 0, len(e.peers))
	for peer, power := range e.peers {
		candidates = append(candidates, &candidate{peer: peer, measure: power.Measure()})
	}
	e.mu.Unlock()

	if len(candidates) == 0 {
		return nil, ErrNoPeers
	}
	total := new(big.Int)
	for _, c := range candidates {
		total.Add(total, new(big.Int).SetUint64(c.measure))
	}
	if total.Sign() == 0 {
		return nil, ErrNoPower
	}

	units := big.NewInt(int64(work.Len()))
	dealt := 0
	for _, c := range candidates {
		quota := new(big.Int).Mul(units, new(big.Int).SetUint64(c.measure))
		share, remainder := new(big.Int).QuoRem(quota, total, new(big.Int))
		c.share = int(share.Int64())
		c.remainder = remainder
		dealt += c.share
	}

	// Hand the units lost to rounding to the largest remainders first.
	slices.SortFunc(candidates, func(a, b *candidate) int {
		if c := b.remainder.Cmp(a.remainder); c != 0 {
			return c
		}
		if a.measure != b.measure {
			if a.measure > b.measure {
				return -1
			}
			return 1
		}
		return strings.Compare(a.peer.String(), b.peer.String())
	})
	for i := 0; dealt < work.Len(); i++ {
		candidates[i%len(candidates)].share++
		dealt++
	}

	slices.SortFunc(candidates, func(a, b *candidate) int {
		return strings.Compare(a.peer.String(), b.peer.String())
	})
	plan := make(map[P]W, len(candidates))
	rest := work
	for _, c := range candidates {
		if c.share == 0 {
			continue
		}
		var share W
		share, rest = any(rest).(Splitter[W]).Split(c.share)
		plan[c.peer] = share
	}
	return plan, nil
}
