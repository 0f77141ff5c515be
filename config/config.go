// Package config holds the configuration of a pool coordinator.
package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/poolcoord/go-workalloc/ledger"
	"github.com/poolcoord/go-workalloc/pool"
	"golang.org/x/xerrors"
)

// Backend names the storage the ledger of finished work lives in.
type Backend string

const (
	// BackendLevelDB stores the ledger in a LevelDB directory at Location.
	BackendLevelDB Backend = "leveldb"
	// BackendMemory keeps the ledger in memory. Nothing survives a restart.
	BackendMemory Backend = "memory"
	// BackendRedis stores the ledger in the Redis server at Location.
	BackendRedis Backend = "redis"
)

// DefaultLocation is the LevelDB directory used when none is configured.
const DefaultLocation = "workalloc-ledger"

type LedgerConfig struct {
	Backend Backend
	// Location is the LevelDB directory or, for Redis, the server address in
	// host:port form. It is ignored by the memory backend.
	Location string
	// RedisPassword and RedisDB select the Redis database to use.
	RedisPassword string `json:",omitempty"`
	RedisDB       int    `json:",omitempty"`
	// Namespace is the key prefix under which ledger entries are stored.
	Namespace string
	// Compress enables zstd compression of stored values.
	Compress bool
	// Breaker, when set, stops calling the ledger after repeated failures.
	Breaker *BreakerConfig `json:",omitempty"`
}

// BreakerConfig configures the circuit breaker guarding ledger access. It is
// most useful with remote backends, where an unreachable server would
// otherwise delay every completion report by a full network timeout.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int
	// ResetTimeout is how long the circuit stays open before a call is let
	// through again, written as a duration string such as "30s".
	ResetTimeout Duration
}

// Config is the configuration of a pool coordinator.
type Config struct {
	Ledger LedgerConfig
	// DistributeMethod is how new work is planned across peers.
	DistributeMethod pool.DistributeMethod
}

// Default returns a configuration storing the ledger in LevelDB under the
// working directory and planning work proportionally.
func Default() Config {
	return Config{
		Ledger: LedgerConfig{
			Backend:   BackendLevelDB,
			Location:  DefaultLocation,
			Namespace: ledger.DefaultNamespace,
		},
		DistributeMethod: pool.Proportional,
	}
}

func (c Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendLevelDB, BackendRedis:
		if strings.TrimSpace(c.Ledger.Location) == "" {
			return xerrors.Errorf("ledger backend %s requires a location", c.Ledger.Backend)
		}
	case BackendMemory:
	default:
		return xerrors.Errorf("unknown ledger backend: %q", c.Ledger.Backend)
	}
	if c.Ledger.Backend != BackendRedis && (c.Ledger.RedisDB != 0 || c.Ledger.RedisPassword != "") {
		return xerrors.Errorf("redis settings given for ledger backend %s", c.Ledger.Backend)
	}
	if c.Ledger.RedisDB < 0 {
		return xerrors.Errorf("redis database must be non-negative, got %d", c.Ledger.RedisDB)
	}
	if ns := strings.Trim(c.Ledger.Namespace, "/"); ns == "" {
		return xerrors.New("ledger namespace must not be empty")
	}
	if b := c.Ledger.Breaker; b != nil {
		if b.MaxFailures < 1 {
			return xerrors.Errorf("breaker max failures must be at least 1, got %d", b.MaxFailures)
		}
		if b.ResetTimeout <= 0 {
			return xerrors.Errorf("breaker reset timeout must be positive, got %s", b.ResetTimeout)
		}
	}
	if _, err := c.DistributeMethod.MarshalText(); err != nil {
		return err
	}
	return nil
}

func (c Config) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, xerrors.Errorf("marshaling JSON: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a JSON configuration from r on top of the receiver, so
// fields absent from the document keep their current value.
func (c *Config) Unmarshal(r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return xerrors.Errorf("decoding JSON: %w", err)
	}
	return nil
}

// Load reads the configuration file at path over the defaults and validates
// the result.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, xerrors.Errorf("opening config: %w", err)
	}
	defer f.Close()
	if err := cfg.Unmarshal(f); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, xerrors.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LedgerOptions returns the ledger options this configuration implies.
func (c Config) LedgerOptions() []ledger.Option {
	var opts []ledger.Option
	if c.Ledger.Namespace != "" {
		opts = append(opts, ledger.WithNamespace(c.Ledger.Namespace))
	}
	if c.Ledger.Compress {
		opts = append(opts, ledger.WithCompression(true))
	}
	return opts
}

// EngineOptions returns the engine options this configuration implies.
func (c Config) EngineOptions() []pool.Option {
	return []pool.Option{pool.WithDistributeMethod(c.DistributeMethod)}
}
