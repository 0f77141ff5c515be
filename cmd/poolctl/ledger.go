package main

import (
	"encoding/json"
	"errors"
	"fmt"

	workalloc "github.com/poolcoord/go-workalloc"
	"github.com/poolcoord/go-workalloc/ledger"
	"github.com/poolcoord/go-workalloc/pool"
	"github.com/poolcoord/go-workalloc/workload"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var ledgerCmd = cli.Command{
	Name:  "ledger",
	Usage: "inspect the ledger of finished work",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "list the peers with finished work and how many units each completed",
			Action: func(c *cli.Context) error {
				return withLedger(c, func(l workalloc.Ledger) error {
					peers, err := l.Keys(c.Context)
					if err != nil {
						return err
					}
					for _, peer := range peers {
						finished, err := l.Get(c.Context, pool.PeerID(peer))
						if err != nil {
							return xerrors.Errorf("reading finished work of %s: %w", peer, err)
						}
						_, _ = fmt.Fprintf(c.App.Writer, "%s\t%d\n", peer, finished.Len())
					}
					return nil
				})
			},
		},
		{
			Name:      "get",
			Usage:     "print the units a peer finished",
			ArgsUsage: "<peer>",
			Action: func(c *cli.Context) error {
				peer, err := peerArg(c)
				if err != nil {
					return err
				}
				return withLedger(c, func(l workalloc.Ledger) error {
					finished, err := l.Get(c.Context, peer)
					if err != nil {
						return err
					}
					return printUnits(c, finished)
				})
			},
		},
		{
			Name:      "delete",
			Usage:     "remove the record of a peer and print what it held",
			ArgsUsage: "<peer>",
			Action: func(c *cli.Context) error {
				peer, err := peerArg(c)
				if err != nil {
					return err
				}
				return withLedger(c, func(l workalloc.Ledger) error {
					prior, err := l.Delete(c.Context, peer)
					if errors.Is(err, ledger.ErrNotFound) {
						return xerrors.Errorf("no finished work recorded for %s", peer)
					} else if err != nil {
						return err
					}
					return printUnits(c, prior)
				})
			},
		},
	},
}

func peerArg(c *cli.Context) (pool.PeerID, error) {
	peer := c.Args().First()
	if peer == "" {
		return "", errors.New("missing peer as first argument")
	}
	return pool.PeerID(peer), nil
}

func withLedger(c *cli.Context, f func(workalloc.Ledger) error) (_err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return xerrors.Errorf("loading config: %w", err)
	}
	coordinator, err := workalloc.Open(c.Context, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := coordinator.Close(); err != nil && _err == nil {
			_err = err
		}
	}()
	return f(coordinator.Ledger())
}

func printUnits(c *cli.Context, units workload.Units) error {
	output, err := json.MarshalIndent(units.Strings(), "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.App.Writer, string(output))
	return nil
}
