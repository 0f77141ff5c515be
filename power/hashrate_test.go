package power_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/poolcoord/go-workalloc/power"
	"github.com/stretchr/testify/require"
)

func TestHashRate(t *testing.T) {
	t.Run("zero value", func(t *testing.T) {
		var subject power.HashRate
		require.True(t, subject.IsZero())
		require.Zero(t, subject.Measure())
	})
	t.Run("add accumulates", func(t *testing.T) {
		subject := power.NewHashRate(10).Add(power.NewHashRate(5))
		require.Equal(t, uint64(15), subject.Measure())
		require.True(t, subject.Equal(power.NewHashRate(15)))
	})
	t.Run("add keeps fractions", func(t *testing.T) {
		subject := power.NewHashRate(0.4).Add(power.NewHashRate(0.7))
		require.Equal(t, "1.1", subject.String())
		require.Equal(t, uint64(1), subject.Measure())
	})
	t.Run("sub depletes", func(t *testing.T) {
		subject := power.NewHashRate(15).Sub(power.NewHashRate(5))
		require.True(t, subject.Equal(power.NewHashRate(10)))
	})
	t.Run("sub clamps at zero", func(t *testing.T) {
		subject := power.NewHashRate(1).Sub(power.NewHashRate(3))
		require.True(t, subject.IsZero())
		require.Zero(t, subject.Measure())
	})
	t.Run("add does not mutate operands", func(t *testing.T) {
		a := power.NewHashRate(2)
		_ = a.Add(power.NewHashRate(3))
		require.Equal(t, uint64(2), a.Measure())
	})
}

func TestHashRate_Measure(t *testing.T) {
	tests := []struct {
		name  string
		given string
		want  uint64
	}{
		{name: "whole", given: "42", want: 42},
		{name: "truncates toward zero", given: "9.99", want: 9},
		{name: "below one", given: "0.5", want: 0},
		{name: "saturates", given: "18446744073709551616", want: math.MaxUint64},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			subject, err := power.ParseHashRate(test.given)
			require.NoError(t, err)
			require.Equal(t, test.want, subject.Measure())
		})
	}
}

func TestParseHashRate(t *testing.T) {
	_, err := power.ParseHashRate("fish")
	require.ErrorContains(t, err, "failed to parse")

	_, err = power.ParseHashRate("-1")
	require.ErrorContains(t, err, "cannot be negative")
}

func TestHashRate_JSON(t *testing.T) {
	b, err := json.Marshal(power.NewHashRate(12.5))
	require.NoError(t, err)
	require.JSONEq(t, `"12.5"`, string(b))

	var fromString power.HashRate
	require.NoError(t, json.Unmarshal([]byte(`"7.25"`), &fromString))
	require.True(t, fromString.Equal(power.NewHashRate(7.25)))

	var fromNumber power.HashRate
	require.NoError(t, json.Unmarshal([]byte(`3`), &fromNumber))
	require.Equal(t, uint64(3), fromNumber.Measure())

	fromNull := power.NewHashRate(4)
	require.NoError(t, json.Unmarshal([]byte(`null`), &fromNull))
	require.True(t, fromNull.IsZero())

	var inStruct struct{ Rate power.HashRate }
	require.NoError(t, json.Unmarshal([]byte(`{"Rate": null}`), &inStruct))
	require.True(t, inStruct.Rate.IsZero())
}

func TestHashRateFromFloat(t *testing.T) {
	for _, test := range []struct {
		name    string
		given   float64
		wantErr string
	}{
		{name: "fraction", given: 12.5},
		{name: "zero", given: 0},
		{name: "negative", given: -1, wantErr: "cannot be negative"},
		{name: "NaN", given: math.NaN(), wantErr: "finite"},
		{name: "positive infinity", given: math.Inf(1), wantErr: "finite"},
		{name: "negative infinity", given: math.Inf(-1), wantErr: "finite"},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := power.HashRateFromFloat(test.given)
			if test.wantErr != "" {
				require.ErrorContains(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			require.True(t, got.Equal(power.NewHashRate(test.given)))
		})
	}
	require.Panics(t, func() { power.NewHashRate(math.NaN()) })
}
