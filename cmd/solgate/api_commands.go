package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/solgate/client"
	"github.com/brojonat/solgate/service/gateway"
)

func newClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("requires exactly one argument: %s", name)
	}
	return c.Args().Get(0), nil
}

func accountCommands() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Account queries",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show an account",
				ArgsUsage: "ADDRESS",
				Action: func(c *cli.Context) error {
					address, err := requireArg(c, "address")
					if err != nil {
						return err
					}
					info, err := newClient(c).GetAccount(c.Context, address)
					if err != nil {
						return err
					}
					return printResult(c, info, func(w io.Writer) {
						fmt.Fprintln(w, "ADDRESS\tLAMPORTS\tSOL\tOWNER\tEXECUTABLE\tSPACE")
						fmt.Fprintf(w, "%s\t%d\t%v\t%s\t%t\t%d\n",
							info.Address, info.Lamports, info.SOL, info.Owner, info.Executable, info.Space)
					})
				},
			},
			{
				Name:      "balance",
				Usage:     "Show the native balance of an address",
				ArgsUsage: "ADDRESS",
				Action: func(c *cli.Context) error {
					address, err := requireArg(c, "address")
					if err != nil {
						return err
					}
					bal, err := newClient(c).GetBalance(c.Context, address)
					if err != nil {
						return err
					}
					return printResult(c, bal, func(w io.Writer) {
						fmt.Fprintln(w, "ADDRESS\tLAMPORTS\tSOL")
						fmt.Fprintf(w, "%s\t%d\t%s\n", bal.Address, bal.Lamports, bal.SOLString)
					})
				},
			},
			{
				Name:      "tokens",
				Usage:     "List the token balances of an owner",
				ArgsUsage: "OWNER",
				Action: func(c *cli.Context) error {
					owner, err := requireArg(c, "owner")
					if err != nil {
						return err
					}
					tb, err := newClient(c).GetTokenBalances(c.Context, owner)
					if err != nil {
						return err
					}
					return printResult(c, tb, func(w io.Writer) {
						fmt.Fprintln(w, "ACCOUNT\tMINT\tAMOUNT\tUI AMOUNT\tSTATE\tNOTE")
						for _, b := range tb.Balances {
							fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
								b.Account, b.Mint, b.Amount, orDash(b.DisplayAmountString), b.State, b.DegradedReason)
						}
						for _, s := range tb.Skipped {
							fmt.Fprintf(w, "%s\t-\t-\t-\t-\tskipped: %s\n", s.Account, s.Reason)
						}
					})
				},
			},
		},
	}
}

func tokenCommands() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Token mint queries",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show a token mint",
				ArgsUsage: "MINT",
				Action: func(c *cli.Context) error {
					mint, err := requireArg(c, "mint")
					if err != nil {
						return err
					}
					info, err := newClient(c).GetMint(c.Context, mint)
					if err != nil {
						return err
					}
					return printResult(c, info, func(w io.Writer) {
						fmt.Fprintln(w, "MINT\tDECIMALS\tSUPPLY\tMINT AUTHORITY\tFREEZE AUTHORITY")
						fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
							info.Mint, info.Decimals, info.SupplyString, orDash(info.MintAuthority), orDash(info.FreezeAuthority))
					})
				},
			},
		},
	}
}

func txCommands() *cli.Command {
	return &cli.Command{
		Name:  "tx",
		Usage: "Transaction commands",
		Subcommands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show the status of a signature",
				ArgsUsage: "SIGNATURE",
				Action: func(c *cli.Context) error {
					sig, err := requireArg(c, "signature")
					if err != nil {
						return err
					}
					st, err := newClient(c).GetTransactionStatus(c.Context, sig)
					if err != nil {
						return err
					}
					return printResult(c, st, func(w io.Writer) {
						slot := "-"
						if st.Slot != nil {
							slot = fmt.Sprint(*st.Slot)
						}
						fmt.Fprintln(w, "SIGNATURE\tSTATUS\tSLOT\tERROR")
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Signature, st.Status, slot, orDash(st.Err))
					})
				},
			},
			{
				Name:  "intent",
				Usage: "Record a transfer intent (nothing is signed or broadcast)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Source address", Required: true},
					&cli.StringFlag{Name: "to", Usage: "Destination address", Required: true},
					&cli.Uint64Flag{Name: "amount", Usage: "Amount in lamports", Required: true},
					&cli.StringFlag{Name: "memo", Usage: "Optional memo"},
				},
				Action: func(c *cli.Context) error {
					receipt, err := newClient(c).SubmitTransferIntent(c.Context, gateway.TransferIntentRequest{
						From:   c.String("from"),
						To:     c.String("to"),
						Amount: c.Uint64("amount"),
						Memo:   c.String("memo"),
					})
					if err != nil {
						return err
					}
					return printResult(c, receipt, func(w io.Writer) {
						fmt.Fprintln(w, "INTENT ID\tSTATUS\tBROADCAST")
						fmt.Fprintf(w, "%s\t%s\t%t\n", receipt.IntentID, receipt.Status, receipt.Broadcast)
						fmt.Fprintln(w, receipt.Notice)
					})
				},
			},
			{
				Name:      "watch",
				Usage:     "Start a server-side watch on a signature",
				ArgsUsage: "SIGNATURE",
				Action: func(c *cli.Context) error {
					sig, err := requireArg(c, "signature")
					if err != nil {
						return err
					}
					started, err := newClient(c).WatchTransaction(c.Context, sig)
					if err != nil {
						return err
					}
					return printResult(c, started, func(w io.Writer) {
						fmt.Fprintln(w, "SIGNATURE\tWORKFLOW ID\tSTATUS")
						fmt.Fprintf(w, "%s\t%s\t%s\n", started.Signature, started.WorkflowID, started.Status)
					})
				},
			},
			{
				Name:      "watch-status",
				Usage:     "Show the stored state of a watch",
				ArgsUsage: "SIGNATURE",
				Action: func(c *cli.Context) error {
					sig, err := requireArg(c, "signature")
					if err != nil {
						return err
					}
					watch, err := newClient(c).GetWatch(c.Context, sig)
					if err != nil {
						return err
					}
					return printResult(c, watch, func(w io.Writer) {
						fmt.Fprintln(w, "SIGNATURE\tSTATUS\tPOLLS\tUPDATED")
						fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", watch.Signature, watch.Status, watch.Polls, watch.UpdatedAt)
					})
				},
			},
		},
	}
}

func poolCommands() *cli.Command {
	return &cli.Command{
		Name:  "pools",
		Usage: "Liquidity pool and swap quote commands",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List pools",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Page size (server default 50, max 500)"},
					&cli.IntFlag{Name: "offset", Usage: "Page offset"},
				},
				Action: func(c *cli.Context) error {
					page, err := newClient(c).ListPools(c.Context, c.Int("limit"), c.Int("offset"))
					if err != nil {
						return err
					}
					return printResult(c, page, func(w io.Writer) {
						fmt.Fprintln(w, "ID\tDEX\tMINT A\tMINT B\tFEE BPS")
						for _, p := range page.Pools {
							fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.DEX, p.MintA, p.MintB, p.FeeBps)
						}
					})
				},
			},
			{
				Name:  "quote",
				Usage: "Quote a swap",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input-mint", Required: true},
					&cli.StringFlag{Name: "output-mint", Required: true},
					&cli.Uint64Flag{Name: "amount", Usage: "Input amount in base units", Required: true},
					&cli.UintFlag{Name: "slippage-bps", Value: 50},
				},
				Action: func(c *cli.Context) error {
					quote, err := newClient(c).QuoteSwap(c.Context, gateway.SwapRequest{
						InputMint:   c.String("input-mint"),
						OutputMint:  c.String("output-mint"),
						Amount:      c.Uint64("amount"),
						SlippageBps: uint16(c.Uint("slippage-bps")),
					})
					if err != nil {
						return err
					}
					return printResult(c, quote, nil)
				},
			},
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Action: func(c *cli.Context) error {
			h, err := newClient(c).Health(c.Context)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return printResult(c, h, func(w io.Writer) {
				fmt.Fprintln(w, "STATUS\tVERSION\tTIMESTAMP")
				fmt.Fprintf(w, "%s\t%s\t%s\n", h.Status, h.Version, h.Timestamp)
			})
		},
	}
}
