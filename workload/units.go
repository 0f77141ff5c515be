// Package workload implements the multiset of work units handed out to peers.
package workload

import (
	"bytes"
	"cmp"
	"slices"
)

// Unit is a single, indivisible piece of work. Its payload is opaque to the
// allocator; two units are the same unit when their payloads are byte-equal.
type Unit []byte

func (u Unit) Equal(o Unit) bool {
	return bytes.Equal(u, o)
}

// Units is a multiset of work units. The same unit may appear more than once.
//
// Units behaves as a value: every operation returns a new Units and never
// writes through to the backing array of its receiver or arguments.
type Units []Unit

// From wraps a raw payload as a workload made of a single unit.
func From(data []byte) Units {
	return Units{Unit(bytes.Clone(data))}
}

// Of builds a workload from the given payloads, one unit each.
func Of(payloads ...string) Units {
	us := make(Units, 0, len(payloads))
	for _, p := range payloads {
		us = append(us, Unit(p))
	}
	return us
}

// Add returns the units of w followed by every unit of o, duplicates included.
func (w Units) Add(o Units) Units {
	sum := make(Units, 0, len(w)+len(o))
	sum = append(sum, w...)
	return append(sum, o...)
}

// Sub returns w without any unit that is equal to a unit of o. Every
// occurrence of a matching unit is removed, not one occurrence per unit in o:
// subtracting [a] from [a a b] leaves [b].
func (w Units) Sub(o Units) Units {
	if len(o) == 0 {
		return slices.Clone(w)
	}
	drop := make(map[string]struct{}, len(o))
	for _, u := range o {
		drop[string(u)] = struct{}{}
	}
	rest := make(Units, 0, len(w))
	for _, u := range w {
		if _, found := drop[string(u)]; !found {
			rest = append(rest, u)
		}
	}
	return rest
}

// Len returns the number of units, counting duplicates.
func (w Units) Len() int {
	return len(w)
}

// Compare orders workloads by their unit count.
func (w Units) Compare(o Units) int {
	return cmp.Compare(len(w), len(o))
}

// Equal checks whether w and o hold the same units in the same order.
func (w Units) Equal(o Units) bool {
	return slices.EqualFunc(w, o, Unit.Equal)
}

// Split returns the first n units of w and the remaining ones. n is clamped to
// the range [0, w.Len()].
func (w Units) Split(n int) (Units, Units) {
	n = max(0, min(n, len(w)))
	return slices.Clone(w[:n]), slices.Clone(w[n:])
}

// Strings renders each unit payload as a string, mostly for logs and tests.
func (w Units) Strings() []string {
	out := make([]string, len(w))
	for i, u := range w {
		out[i] = string(u)
	}
	return out
}
