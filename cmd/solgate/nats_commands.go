package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"

	natspkg "github.com/brojonat/solgate/service/nats"
)

// subscribeCommand streams gateway events from JetStream.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:  "subscribe",
		Usage: "Stream transfer intent and transaction status events",
		Description: `Subscribe to events published to NATS JetStream.

Transfer intents are published to intents.{from_address} and watch results
to txstatus.{signature}. Without flags every event is streamed.

Example:
  solgate nats subscribe --signature 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Only intents from this address"},
			&cli.StringFlag{Name: "signature", Usage: "Only status events for this signature"},
			&cli.StringFlag{Name: "consumer-name", Usage: "Durable consumer name (survives restarts)"},
		},
		Action: func(c *cli.Context) error {
			subjects := eventSubjects(c.String("from"), c.String("signature"))
			return streamEvents(c, subjects, c.String("consumer-name"))
		},
	}
}

func eventSubjects(from, signature string) []string {
	switch {
	case from != "" && signature != "":
		return []string{natspkg.IntentSubject(from), natspkg.TxStatusSubject(signature)}
	case from != "":
		return []string{natspkg.IntentSubject(from)}
	case signature != "":
		return []string{natspkg.TxStatusSubject(signature)}
	default:
		return []string{natspkg.IntentSubjectPrefix + ".*", natspkg.TxStatusSubjectPrefix + ".*"}
	}
}

func streamEvents(c *cli.Context, subjects []string, durable string) error {
	nc, err := nats.Connect(c.String("nats-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	cfg := jetstream.ConsumerConfig{
		FilterSubjects: subjects,
		AckPolicy:      jetstream.AckExplicitPolicy,
	}
	if durable != "" {
		cfg.Durable = durable
		cfg.Name = durable
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	fmt.Fprintf(os.Stderr, "subscribed to %v (Ctrl-C to exit)\n", subjects)

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		if err := printEvent(c, msg.Subject(), msg.Data()); err != nil {
			fmt.Fprintf(os.Stderr, "error handling event on %s: %v\n", msg.Subject(), err)
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}
	defer cc.Stop()

	<-ctx.Done()
	return nil
}

func printEvent(c *cli.Context, subject string, data []byte) error {
	var event interface{}
	if strings.HasPrefix(subject, natspkg.IntentSubjectPrefix+".") {
		event = &natspkg.TransferIntentEvent{}
	} else {
		event = &natspkg.TransactionStatusEvent{}
	}
	if err := json.Unmarshal(data, event); err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}
	if c.String("jq") != "" {
		return printJQ(c.App.Writer, event, c.String("jq"))
	}
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s %s\n", subject, b)
	return nil
}
