package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/logger"
)

func main() {
	defaultRPC := os.Getenv("WORDSTEP_RPC")
	if defaultRPC == "" {
		defaultRPC = "http://127.0.0.1:6860"
	}

	app := cli.NewApp()
	app.Name = "wordstep"
	app.Usage = "Transfer text files word by word over unreliable datagrams."
	app.Version = config.BuildVersion
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "node",
			Aliases: []string{"n"},
			Value:   defaultRPC,
			Usage:   "the RPC endpoint, and the default value is read from environment variable WORDSTEP_RPC",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "the TOML configuration file",
		},
		&cli.BoolFlag{
			Name:  "time",
			Value: false,
			Usage: "print the runtime",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("time") {
			start := time.Now()
			app.After = func(c *cli.Context) error {
				fmt.Fprintf(os.Stderr, "runtime %s\n", time.Since(start))
				return nil
			}
		}
		return nil
	}
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:    "serve",
			Aliases: []string{"s"},
			Usage:   "Start the word transfer server",
			Action:  serveCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "host",
					Value: config.DefaultHost,
					Usage: "the host to listen",
				},
				&cli.IntFlag{
					Name:    "port",
					Aliases: []string{"p"},
					Value:   config.DefaultPort,
					Usage:   "the port to listen",
				},
				&cli.StringFlag{
					Name:  "transport",
					Value: config.DefaultTransport,
					Usage: "the datagram transport, udp or quic",
				},
				&cli.StringFlag{
					Name:    "root",
					Aliases: []string{"r"},
					Value:   config.DefaultServerRoot,
					Usage:   "the directory requested file names are resolved in",
				},
				&cli.BoolFlag{
					Name:  "once",
					Usage: "exit after the first transfer",
				},
				&cli.StringFlag{
					Name:    "journal",
					Aliases: []string{"j"},
					Usage:   "the transfer journal directory, disabled when empty",
				},
				&cli.IntFlag{
					Name:  "rpc",
					Usage: "the RPC port to listen, disabled when 0",
				},
				&cli.IntFlag{
					Name:    "log",
					Aliases: []string{"l"},
					Value:   logger.INFO,
					Usage:   "the log level",
				},
				&cli.StringFlag{
					Name:  "filter",
					Usage: "the RE2 regex pattern to filter log",
				},
			},
		},
		{
			Name:      "fetch",
			Aliases:   []string{"f"},
			Usage:     "Fetch a file from the server",
			ArgsUsage: "[filename]",
			Action:    fetchCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "host",
					Value: config.DefaultHost,
					Usage: "the server host",
				},
				&cli.IntFlag{
					Name:    "port",
					Aliases: []string{"p"},
					Value:   config.DefaultPort,
					Usage:   "the server port",
				},
				&cli.StringFlag{
					Name:  "transport",
					Value: config.DefaultTransport,
					Usage: "the datagram transport, udp or quic",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   config.DefaultClientOutput,
					Usage:   "the file received words are written to",
				},
				&cli.IntFlag{
					Name:    "log",
					Aliases: []string{"l"},
					Value:   logger.INFO,
					Usage:   "the log level",
				},
				&cli.StringFlag{
					Name:  "filter",
					Usage: "the RE2 regex pattern to filter log",
				},
			},
		},
		{
			Name:   "getinfo",
			Usage:  "Get info from the server",
			Action: getInfoCmd,
		},
		{
			Name:   "listsessions",
			Usage:  "List the active transfer sessions",
			Action: listSessionsCmd,
		},
		{
			Name:   "listtransfers",
			Usage:  "List finished transfers from the journal",
			Action: listTransfersCmd,
			Flags: []cli.Flag{
				&cli.Uint64Flag{
					Name:    "since",
					Aliases: []string{"s"},
					Value:   0,
					Usage:   "the finish time in Unix nanoseconds to begin with",
				},
				&cli.Uint64Flag{
					Name:  "limit",
					Value: 10,
					Usage: "the up limit of the returned transfers",
				},
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
