package main

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"text/tabwriter"

	"github.com/google/uuid"
	workalloc "github.com/poolcoord/go-workalloc"
	"github.com/poolcoord/go-workalloc/pool"
	"github.com/poolcoord/go-workalloc/power"
	"github.com/poolcoord/go-workalloc/workload"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var simulateCmd = cli.Command{
	Name:  "simulate",
	Usage: "run a pool of simulated peers against the configured ledger",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "peers",
			Value: 8,
			Usage: "number of peers joining before the first round",
		},
		&cli.IntFlag{
			Name:  "rounds",
			Value: 20,
			Usage: "number of rounds to simulate",
		},
		&cli.IntFlag{
			Name:  "units",
			Value: 64,
			Usage: "number of new work units issued every round",
		},
		&cli.Float64Flag{
			Name:  "churn",
			Value: 0.1,
			Usage: "probability of a peer leaving, and of a new one joining, every round",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Value: 1,
			Usage: "random seed",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return xerrors.Errorf("loading config: %w", err)
		}
		coordinator, err := workalloc.Open(c.Context, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := coordinator.Close(); err != nil {
				log.Errorw("closing coordinator", "err", err)
			}
		}()

		sim := &simulation{
			Coordinator: coordinator,
			rng:         rand.New(rand.NewSource(c.Int64("seed"))),
			churn:       c.Float64("churn"),
		}
		for i := 0; i < c.Int("peers"); i++ {
			if err := sim.join(c.Context); err != nil {
				return err
			}
		}
		for round := 1; round <= c.Int("rounds"); round++ {
			if err := c.Context.Err(); err != nil {
				return err
			}
			if err := sim.round(c.Context, c.Int("units")); err != nil {
				return xerrors.Errorf("round %d: %w", round, err)
			}
			log.Infow("round complete", "round", round,
				"peers", len(sim.Peers()),
				"outstanding", sim.TotalWorkload(),
				"backlog", sim.backlog.Len(),
				"completed", sim.completed)
		}
		return sim.report(c)
	},
}

// simulatedProber stands in for the hardware probe of a freshly connected
// miner.
type simulatedProber struct {
	rng *rand.Rand
}

func (p simulatedProber) Probe(context.Context) (pool.PeerID, power.HashRate, error) {
	// Hash rates between 1 and 500 with one decimal.
	rate, err := power.HashRateFromFloat(float64(10+p.rng.Intn(4991)) / 10)
	if err != nil {
		return "", power.HashRate{}, err
	}
	return pool.PeerID(uuid.New().String()), rate, nil
}

type simulation struct {
	*workalloc.Coordinator

	rng       *rand.Rand
	churn     float64
	backlog   workload.Units
	completed int
}

func (s *simulation) join(ctx context.Context) error {
	_, err := s.JoinProbed(ctx, simulatedProber{rng: s.rng})
	return err
}

func (s *simulation) round(ctx context.Context, units int) error {
	if s.rng.Float64() < s.churn {
		if err := s.join(ctx); err != nil {
			return err
		}
	}
	if s.rng.Float64() < s.churn {
		s.leave()
	}

	work := s.backlog
	for i := 0; i < units; i++ {
		work = work.Add(workload.Of(uuid.New().String()))
	}
	s.backlog = nil
	plan, err := s.Plan(work)
	if err != nil {
		// Without peers, or power, the work waits for the next round.
		log.Warnw("could not plan work", "units", work.Len(), "err", err)
		s.backlog = work
		return nil
	}
	for peer, share := range plan {
		current, _ := s.Assignment(peer)
		s.Assign(peer, current.Add(share))
	}

	for peer, assigned := range s.Distribution() {
		// Every peer finishes a random part of what it holds.
		done, _ := assigned.Split(s.rng.Intn(assigned.Len() + 1))
		if err := s.ReportCompletion(ctx, peer, done); err != nil {
			return err
		}
		s.completed += done.Len()
		if remaining, _ := s.Assignment(peer); remaining.Len() == 0 {
			s.Release(peer)
		}
	}
	return nil
}

// leave makes a random peer leave and hands its unfinished work to the
// strongest idle peer, or back to the backlog when every peer is busy.
func (s *simulation) leave() {
	peers := make([]pool.PeerID, 0, len(s.Peers()))
	for peer := range s.Peers() {
		peers = append(peers, peer)
	}
	if len(peers) == 0 {
		return
	}
	slices.Sort(peers)
	abandoned, found := s.PeerLeave(peers[s.rng.Intn(len(peers))])
	if !found || abandoned.Len() == 0 {
		return
	}
	if idle, ok := s.SelectIdleHighest(); ok {
		s.Assign(idle, abandoned)
		return
	}
	if busiest, ok := s.SelectBusiestRelative(); ok {
		log.Debugw("no idle peer to take over abandoned work", "busiest", busiest, "units", abandoned.Len())
	}
	s.backlog = s.backlog.Add(abandoned)
}

func (s *simulation) report(c *cli.Context) error {
	peers := s.Peers()
	ids := make([]pool.PeerID, 0, len(peers))
	for peer := range peers {
		ids = append(ids, peer)
	}
	slices.Sort(ids)

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PEER\tHASH RATE\tOUTSTANDING\tFINISHED")
	for _, peer := range ids {
		outstanding, _ := s.Assignment(peer)
		finished, err := s.Finished(c.Context, peer)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", peer, peers[peer], outstanding.Len(), finished.Len())
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t%s\t%d\t%d\n", s.TotalPower(), s.TotalWorkload(), s.completed)
	return w.Flush()
}
