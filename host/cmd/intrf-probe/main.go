// Package main is the intrf-probe command. It opens the interfaces named in
// a configuration file and runs single transfers on them.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagConfig = "config"
	flagAddr   = "addr"
	flagCmd    = "cmd"
	flagLen    = "len"
	flagData   = "data"

	defaultConfigPath = "intrf.yaml"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func transferFlags(extra cli.Flag) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    flagAddr,
			Aliases: []string{"a"},
			Usage:   "device address",
		},
		&cli.StringFlag{
			Name:  flagCmd,
			Usage: "command bytes sent first, in hex",
		},
		extra,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "intrf-probe",
		Usage: "run transfers on configured device interfaces",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   defaultConfigPath,
				Usage:   "load interfaces from `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list configured interfaces",
				Action: listAction,
			},
			{
				Name:      "read",
				Usage:     "send a command and read the response",
				ArgsUsage: "<interface>",
				Flags: transferFlags(&cli.IntFlag{
					Name:    flagLen,
					Aliases: []string{"n"},
					Value:   1,
					Usage:   "number of bytes to read",
				}),
				Action: readAction,
			},
			{
				Name:      "write",
				Usage:     "send a command followed by data",
				ArgsUsage: "<interface>",
				Flags: transferFlags(&cli.StringFlag{
					Name:    flagData,
					Aliases: []string{"d"},
					Usage:   "data bytes in hex",
				}),
				Action: writeAction,
			},
			{
				Name:      "rate",
				Usage:     "show or change the interface rate",
				ArgsUsage: "<interface> [hz]",
				Action:    rateAction,
			},
		},
	}
}
