// Package power implements the capacity value used to weigh peers against each
// other when allocating work.
package power

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// HashRate is the measured work-processing capacity of a peer. It is kept as
// an arbitrary precision decimal so that fractional rates reported by probes
// accumulate without drift.
//
// The zero value is a valid rate of zero.
type HashRate struct {
	d decimal.Decimal
}

// NewHashRate returns the rate v. It panics if v is NaN or infinite; use
// HashRateFromFloat for measurements that have not been checked.
func NewHashRate(v float64) HashRate {
	return HashRate{d: decimal.NewFromFloat(v)}
}

// HashRateFromFloat returns the rate v, or an error if v is negative, NaN or
// infinite.
func HashRateFromFloat(v float64) (HashRate, error) {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return HashRate{}, fmt.Errorf("hash rate must be finite, got %v", v)
	case v < 0:
		return HashRate{}, fmt.Errorf("hash rate cannot be negative: %v", v)
	}
	return HashRate{d: decimal.NewFromFloat(v)}, nil
}

func HashRateFromDecimal(d decimal.Decimal) HashRate {
	return HashRate{d: d}
}

// ParseHashRate parses a base 10 decimal string such as "12.5".
func ParseHashRate(s string) (HashRate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return HashRate{}, fmt.Errorf("failed to parse hash rate %q: %w", s, err)
	}
	if d.IsNegative() {
		return HashRate{}, fmt.Errorf("hash rate cannot be negative: %s", s)
	}
	return HashRate{d: d}, nil
}

// Add returns the sum of h and o.
func (h HashRate) Add(o HashRate) HashRate {
	return HashRate{d: h.d.Add(o.d)}
}

// Sub returns h minus o. Capacity never goes below zero: subtracting more than
// is present yields zero.
func (h HashRate) Sub(o HashRate) HashRate {
	r := h.d.Sub(o.d)
	if r.IsNegative() {
		return HashRate{}
	}
	return HashRate{d: r}
}

// Measure returns the rate as an unsigned count for ratio computations. The
// fractional part is truncated toward zero, so 9.99 measures 9 and any rate
// below 1 measures 0. Rates beyond the range of uint64 saturate.
func (h HashRate) Measure() uint64 {
	if h.d.Sign() <= 0 {
		return 0
	}
	whole := h.d.Truncate(0).BigInt()
	if !whole.IsUint64() {
		return math.MaxUint64
	}
	return whole.Uint64()
}

func (h HashRate) Decimal() decimal.Decimal {
	return h.d
}

func (h HashRate) IsZero() bool {
	return h.d.IsZero()
}

// Cmp compares h and o, returning -1, 0 or +1.
func (h HashRate) Cmp(o HashRate) int {
	return h.d.Cmp(o.d)
}

func (h HashRate) Equal(o HashRate) bool {
	return h.d.Equal(o.d)
}

func (h HashRate) String() string {
	return h.d.String()
}

func (h HashRate) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.d.String())
}

// UnmarshalJSON accepts a decimal string or a bare number. JSON null decodes
// as a rate of zero.
func (h *HashRate) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*h = HashRate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Accept bare JSON numbers too.
		s = string(b)
	}
	parsed, err := ParseHashRate(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
