package ledger_test

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/poolcoord/go-workalloc/ledger"
	"github.com/poolcoord/go-workalloc/workload"
	"github.com/stretchr/testify/require"
)

// redisAddrEnv names the environment variable pointing tests at a disposable
// Redis server. Redis tests are skipped when it is unset.
const redisAddrEnv = "WORKALLOC_TEST_REDIS_ADDR"

func TestRedis_InProcess(t *testing.T) {
	server := miniredis.RunT(t)
	testWorkloadLedger(t, func(t *testing.T) workloadLedger {
		ns := "/workalloc-test/" + uuid.NewString()
		l, err := ledger.DialRedis[ledger.StringKey](context.Background(), server.Addr(), "", 0, ledger.WithNamespace(ns))
		require.NoError(t, err)
		return l
	})
}

func TestRedis_InProcessLayout(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	subject, err := ledger.DialRedis[ledger.StringKey](ctx, server.Addr(), "", 0,
		ledger.WithNamespace("pool"), ledger.WithCompression(true))
	require.NoError(t, err)
	defer func() { require.NoError(t, subject.Close()) }()

	require.NoError(t, subject.Put(ctx, "peer-a", workload.Of("u1")))
	require.True(t, server.Exists("/pool/peer-a"))

	// Entries of other namespaces are not listed.
	require.NoError(t, server.Set("/other/peer-b", "x"))
	keys, err := subject.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"peer-a"}, keys)

	_, err = subject.Delete(ctx, "peer-a")
	require.NoError(t, err)
	require.False(t, server.Exists("/pool/peer-a"))

	server.SetError("ERR ledger unavailable")
	_, err = subject.Get(ctx, "peer-a")
	require.ErrorContains(t, err, "getting ledger entry")
	require.NotErrorIs(t, err, ledger.ErrNotFound)
	_, err = subject.Delete(ctx, "peer-a")
	require.ErrorContains(t, err, "deleting ledger entry")
	require.NotErrorIs(t, err, ledger.ErrNotFound)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv(redisAddrEnv)
	if addr == "" {
		t.Skipf("%s not set", redisAddrEnv)
	}
	testWorkloadLedger(t, func(t *testing.T) workloadLedger {
		// A fresh namespace per subtest keeps runs independent of leftovers.
		ns := "/workalloc-test/" + uuid.NewString()
		l, err := ledger.DialRedis[ledger.StringKey](context.Background(), addr, "", 0, ledger.WithNamespace(ns))
		require.NoError(t, err)
		return l
	})
}

func TestDialRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ledger.DialRedis[ledger.StringKey](ctx, "127.0.0.1:1", "", 0)
	require.ErrorContains(t, err, "connecting to redis")
}
