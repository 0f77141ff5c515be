package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"github.com/poolcoord/go-workalloc/config"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("poolctl")

func main() {
	app := &cli.App{
		Name:  "poolctl",
		Usage: "inspect and exercise a mining pool coordinator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the JSON configuration file; defaults are used when unset",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level of the workalloc loggers",
			},
		},
		Before: func(c *cli.Context) error {
			level := c.String("log-level")
			for _, name := range []string{"poolctl", "workalloc", "workalloc/ledger"} {
				if err := logging.SetLogLevel(name, level); err != nil {
					return xerrors.Errorf("setting log level: %w", err)
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			&configCmd,
			&ledgerCmd,
			&simulateCmd,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %+v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
