package main

import (
	"fmt"

	"github.com/poolcoord/go-workalloc/config"
	"github.com/urfave/cli/v2"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "manage the coordinator configuration",
	Subcommands: []*cli.Command{
		{
			Name:  "default",
			Usage: "print the default configuration",
			Action: func(c *cli.Context) error {
				return printConfig(c, config.Default())
			},
		},
		{
			Name:  "check",
			Usage: "validate the configuration and print it with defaults filled in",
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				return printConfig(c, cfg)
			},
		},
	},
}

func printConfig(c *cli.Context, cfg config.Config) error {
	b, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.App.Writer, string(b))
	return nil
}
