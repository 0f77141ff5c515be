package ledger_test

import (
	"context"
	"testing"

	"github.com/poolcoord/go-workalloc/ledger"
	"github.com/poolcoord/go-workalloc/workload"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetered(t *testing.T) {
	ctx := context.Background()
	delegate, err := ledger.NewInMemory[ledger.StringKey]()
	require.NoError(t, err)

	subject := ledger.NewMetered[ledger.StringKey, workload.Units](noop.NewMeterProvider().Meter("test"), "test_ledger_", delegate)
	require.Same(t, delegate, subject.Unwrap())

	require.NoError(t, subject.Put(ctx, "peer-a", workload.Of("u1")))
	got, err := subject.Get(ctx, "peer-a")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, got.Strings())

	_, err = subject.Delete(ctx, "ghost")
	require.ErrorIs(t, err, ledger.ErrNotFound)
	require.NoError(t, subject.Close())
}
