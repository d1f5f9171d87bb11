package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/solgate/service/db"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the embedded schema migrations",
		Action: func(c *cli.Context) error {
			dbURL, err := databaseURL(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()

			pool, err := db.NewPool(ctx, dbURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "migrations applied")
			return nil
		},
	}
}

func listIntentsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-intents",
		Usage:   "List recorded transfer intents",
		Aliases: []string{"intents"},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Only intents from this address"},
			&cli.IntFlag{Name: "limit", Value: 50},
			&cli.IntFlag{Name: "offset"},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			intents, err := store.ListTransferIntents(c.Context, c.String("from"), c.Int("limit"), c.Int("offset"))
			if err != nil {
				return fmt.Errorf("failed to list intents: %w", err)
			}

			return printResult(c, intents, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tFROM\tTO\tAMOUNT\tSTATUS\tCREATED")
				for _, in := range intents {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
						in.ID, in.From, in.To, in.Amount, in.Status, in.CreatedAt.Format(time.RFC3339))
				}
			})
		},
	}
}

func getWatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-watch",
		Usage:     "Show the stored watch for a signature",
		ArgsUsage: "SIGNATURE",
		Action: func(c *cli.Context) error {
			sig, err := requireArg(c, "signature")
			if err != nil {
				return err
			}
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			watch, err := store.GetTransactionWatch(c.Context, sig)
			if err != nil {
				return fmt.Errorf("failed to get watch: %w", err)
			}
			return printResult(c, watch, func(w io.Writer) {
				fmt.Fprintln(w, "SIGNATURE\tWORKFLOW ID\tSTATUS\tPOLLS\tUPDATED")
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					watch.Signature, watch.WorkflowID, watch.Status, watch.Polls, watch.UpdatedAt.Format(time.RFC3339))
			})
		},
	}
}

func databaseURL(c *cli.Context) (string, error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return "", fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}
	return dbURL, nil
}

func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL, err := databaseURL(c)
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(c.Context, dbURL)
	if err != nil {
		return nil, nil, err
	}
	return db.NewStore(pool, nil), pool.Close, nil
}
