package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poolcoord/go-workalloc/config"
	"github.com/poolcoord/go-workalloc/ledger"
	"github.com/poolcoord/go-workalloc/pool"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, config.Default().Validate())

	for _, test := range []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "memory needs no location",
			mutate: func(c *config.Config) { c.Ledger.Backend, c.Ledger.Location = config.BackendMemory, "" },
		},
		{
			name: "redis",
			mutate: func(c *config.Config) {
				c.Ledger.Backend, c.Ledger.Location, c.Ledger.RedisDB = config.BackendRedis, "localhost:6379", 3
			},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *config.Config) { c.Ledger.Backend = "bolt" },
			wantErr: "unknown ledger backend",
		},
		{
			name:    "leveldb without location",
			mutate:  func(c *config.Config) { c.Ledger.Location = " " },
			wantErr: "requires a location",
		},
		{
			name:    "redis settings on leveldb",
			mutate:  func(c *config.Config) { c.Ledger.RedisDB = 1 },
			wantErr: "redis settings",
		},
		{
			name: "negative redis database",
			mutate: func(c *config.Config) {
				c.Ledger.Backend, c.Ledger.Location, c.Ledger.RedisDB = config.BackendRedis, "localhost:6379", -1
			},
			wantErr: "non-negative",
		},
		{
			name:    "root namespace",
			mutate:  func(c *config.Config) { c.Ledger.Namespace = "/" },
			wantErr: "namespace",
		},
		{
			name: "breaker",
			mutate: func(c *config.Config) {
				c.Ledger.Breaker = &config.BreakerConfig{MaxFailures: 3, ResetTimeout: config.Duration(time.Second)}
			},
		},
		{
			name:    "breaker without failures",
			mutate:  func(c *config.Config) { c.Ledger.Breaker = &config.BreakerConfig{ResetTimeout: config.Duration(time.Second)} },
			wantErr: "max failures",
		},
		{
			name:    "breaker without timeout",
			mutate:  func(c *config.Config) { c.Ledger.Breaker = &config.BreakerConfig{MaxFailures: 1} },
			wantErr: "reset timeout",
		},
		{
			name:    "unknown method",
			mutate:  func(c *config.Config) { c.DistributeMethod = pool.DistributeMethod(5) },
			wantErr: "distribution method",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := config.Default()
			test.mutate(&cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, test.wantErr)
			}
		})
	}
}

func TestConfig_MarshalUnmarshal(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Compress = true
	cfg.DistributeMethod = pool.Grouped

	b, err := cfg.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(b), `"DistributeMethod": "grouped"`)

	var got config.Config
	require.NoError(t, got.Unmarshal(bytes.NewReader(b)))
	require.Equal(t, cfg, got)
}

func TestConfig_Unmarshal(t *testing.T) {
	t.Run("keeps defaults of absent fields", func(t *testing.T) {
		cfg := config.Default()
		require.NoError(t, cfg.Unmarshal(strings.NewReader(`{"Ledger": {"Backend": "memory"}, "DistributeMethod": "default"}`)))
		require.Equal(t, config.BackendMemory, cfg.Ledger.Backend)
		require.Equal(t, ledger.DefaultNamespace, cfg.Ledger.Namespace)
		require.Equal(t, pool.Proportional, cfg.DistributeMethod)
	})
	t.Run("rejects unknown fields", func(t *testing.T) {
		cfg := config.Default()
		require.Error(t, cfg.Unmarshal(strings.NewReader(`{"Peers": 3}`)))
	})
	t.Run("rejects unknown method", func(t *testing.T) {
		cfg := config.Default()
		require.Error(t, cfg.Unmarshal(strings.NewReader(`{"DistributeMethod": "trunk"}`)))
	})
}

func TestConfig_BreakerJSON(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Breaker = &config.BreakerConfig{MaxFailures: 5, ResetTimeout: config.Duration(30 * time.Second)}
	b, err := cfg.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(b), `"ResetTimeout": "30s"`)

	for _, test := range []struct {
		name    string
		given   string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", given: `"1m30s"`, want: 90 * time.Second},
		{name: "nanoseconds", given: `30000000000`, want: 30 * time.Second},
		{name: "malformed", given: `"soon"`, wantErr: true},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := config.Default()
			err := got.Unmarshal(strings.NewReader(`{"Ledger": {"Breaker": {"MaxFailures": 2, "ResetTimeout": ` + test.given + `}}}`))
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, got.Ledger.Breaker.ResetTimeout.Duration())
			require.NoError(t, got.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "pool.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Ledger": {"Location": "/var/lib/pool", "Compress": true}}`), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.BackendLevelDB, cfg.Ledger.Backend)
	require.Equal(t, "/var/lib/pool", cfg.Ledger.Location)
	require.Len(t, cfg.LedgerOptions(), 2)
	require.Len(t, cfg.EngineOptions(), 1)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"Ledger": {"Backend": "tape"}}`), 0o644))
	_, err = config.Load(invalid)
	require.ErrorContains(t, err, "invalid config")

	_, err = config.Load(filepath.Join(dir, "absent.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
