package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "solgate",
		Usage: "Solana ledger gateway CLI",
		Description: `A command-line tool for querying the solgate HTTP API and operating its
database and event stream.

Every command that prints a result accepts --json, and --jq to filter the
JSON result with a jq expression.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			accountCommands(),
			tokenCommands(),
			txCommands(),
			poolCommands(),
			{
				Name:  "db",
				Usage: "Database commands",
				Subcommands: []*cli.Command{
					migrateCommand(),
					listIntentsCommand(),
					getWatchCommand(),
				},
			},
			{
				Name:  "nats",
				Usage: "NATS event stream commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
				},
			},
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
				},
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Aliases: []string{"s"},
				Usage:   "Gateway HTTP server URL",
				EnvVars: []string{"SOLGATE_SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq expression applied to the JSON result (implies --json)",
			},
		},
	}
}
