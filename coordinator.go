// Package workalloc assembles the workload allocation engine of a mining pool
// coordinator from its configuration: it opens the ledger of finished work on
// the configured backend and installs logging and metrics on the engine.
package workalloc

import (
	"context"

	"github.com/poolcoord/go-workalloc/config"
	"github.com/poolcoord/go-workalloc/ledger"
	"github.com/poolcoord/go-workalloc/pool"
	"github.com/poolcoord/go-workalloc/power"
	"github.com/poolcoord/go-workalloc/workload"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Engine is the allocation engine of the coordinator: peers are identified by
// string, their power is a hash rate and work is a list of opaque units.
type Engine = pool.Engine[pool.PeerID, power.HashRate, workload.Units]

// Update reports a write to the ledger of finished work.
type Update = ledger.Update[pool.PeerID, workload.Units]

// Ledger is the ledger of finished work as opened by the coordinator.
type Ledger interface {
	ledger.Store[pool.PeerID, workload.Units]
	ledger.Lister
	// SubscribeForUpdates subscribes ch to ledger writes. See
	// ledger.Datastore.SubscribeForUpdates.
	SubscribeForUpdates(ch chan<- *Update) (last *Update, closer func())
}

var (
	_ Ledger = (*ledger.Datastore[pool.PeerID, workload.Units])(nil)
	_ Ledger = (*ledger.Redis[pool.PeerID, workload.Units])(nil)
)

// Coordinator is an Engine together with the ledger it records finished work
// in.
type Coordinator struct {
	*Engine

	cfg    config.Config
	ledger Ledger

	runningCtx context.Context
	cancelCtx  context.CancelFunc
	errgrp     *errgroup.Group
}

// Open validates cfg, opens the ledger it names and returns a coordinator
// ready to take peers. Engine options in o are applied after the ones derived
// from cfg.
//
// The context is used for initialization only.
func Open(ctx context.Context, cfg config.Config, o ...pool.Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid config: %w", err)
	}
	l, err := openLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := append(cfg.EngineOptions(),
		pool.WithObserver(loggingObserver{}),
		pool.WithObserver(metricsObserver{}))
	opts = append(opts, o...)
	var store ledger.Store[pool.PeerID, workload.Units] = l
	if b := cfg.Ledger.Breaker; b != nil {
		store = ledger.NewGuarded(store, b.MaxFailures, b.ResetTimeout.Duration(), nil)
	}
	store = ledger.NewMetered(meter, "workalloc_ledger_", store)
	engine, err := pool.New[pool.PeerID, power.HashRate, workload.Units](store, opts...)
	if err != nil {
		return nil, multierr.Append(xerrors.Errorf("creating engine: %w", err), l.Close())
	}

	runningCtx, cancel := context.WithCancel(context.Background())
	errgrp, runningCtx := errgroup.WithContext(runningCtx)
	c := &Coordinator{
		Engine:     engine,
		cfg:        cfg,
		ledger:     l,
		runningCtx: runningCtx,
		cancelCtx:  cancel,
		errgrp:     errgrp,
	}
	c.followLedger()
	log.Infow("coordinator opened",
		"backend", cfg.Ledger.Backend,
		"location", cfg.Ledger.Location,
		"method", cfg.DistributeMethod)
	return c, nil
}

// OpenLocation opens a coordinator keeping its ledger in a LevelDB directory
// at location, with every other setting at its default.
func OpenLocation(ctx context.Context, location string, o ...pool.Option) (*Coordinator, error) {
	cfg := config.Default()
	cfg.Ledger.Location = location
	return Open(ctx, cfg, o...)
}

func openLedger(ctx context.Context, cfg config.Config) (Ledger, error) {
	opts := cfg.LedgerOptions()
	switch cfg.Ledger.Backend {
	case config.BackendLevelDB:
		l, err := ledger.Open[pool.PeerID](cfg.Ledger.Location, opts...)
		if err != nil {
			return nil, xerrors.Errorf("opening leveldb ledger: %w", err)
		}
		return l, nil
	case config.BackendMemory:
		l, err := ledger.NewInMemory[pool.PeerID](opts...)
		if err != nil {
			return nil, xerrors.Errorf("creating in-memory ledger: %w", err)
		}
		return l, nil
	case config.BackendRedis:
		l, err := ledger.DialRedis[pool.PeerID](ctx, cfg.Ledger.Location, cfg.Ledger.RedisPassword, cfg.Ledger.RedisDB, opts...)
		if err != nil {
			return nil, xerrors.Errorf("opening redis ledger: %w", err)
		}
		return l, nil
	default:
		return nil, xerrors.Errorf("unknown ledger backend: %q", cfg.Ledger.Backend)
	}
}

// followLedger records the size of every ledger entry written until the
// coordinator is closed.
func (c *Coordinator) followLedger() {
	updates := make(chan *Update, 64)
	_, closer := c.ledger.SubscribeForUpdates(updates)
	c.errgrp.Go(func() error {
		defer closer()
		for {
			select {
			case <-c.runningCtx.Done():
				return nil
			case update, ok := <-updates:
				if !ok {
					log.Warn("ledger update subscription dropped")
					return nil
				}
				if !update.Deleted {
					metrics.ledgerEntryUnits.Record(c.runningCtx, int64(update.Value.Len()))
				}
			}
		}
	})
}

// Config returns the configuration the coordinator was opened with.
func (c *Coordinator) Config() config.Config {
	return c.cfg
}

// Ledger returns the ledger of finished work. It must not be closed directly.
func (c *Coordinator) Ledger() Ledger {
	return c.ledger
}

// Close stops following the ledger and closes it.
func (c *Coordinator) Close() error {
	c.cancelCtx()
	return multierr.Combine(
		c.errgrp.Wait(),
		c.Engine.Close(),
	)
}
