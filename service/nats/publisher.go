package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/brojonat/solgate/service/gateway"
	"github.com/brojonat/solgate/service/metrics"
)

// Publisher publishes gateway events to NATS JetStream.
type Publisher interface {
	// PublishTransferIntent publishes to "intents.{from_address}".
	PublishTransferIntent(ctx context.Context, intent *gateway.TransferIntent) error

	// PublishTransactionStatus publishes to "txstatus.{signature}".
	PublishTransactionStatus(ctx context.Context, event *TransactionStatusEvent) error

	Close() error
}

const (
	// StreamName is the JetStream stream holding all gateway events.
	StreamName = "SOLGATE_EVENTS"

	IntentSubjectPrefix   = "intents"
	TxStatusSubjectPrefix = "txstatus"

	// StreamRetention is how long messages are retained.
	StreamRetention = 7 * 24 * time.Hour
)

// JetStreamPublisher publishes events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPublisher connects to NATS and ensures the event stream exists.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("solgate-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, metrics: m, logger: logger}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized", "url", natsURL, "stream", StreamName)
	return p, nil
}

func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Transfer intents and watched transaction statuses",
		Subjects:    []string{IntentSubjectPrefix + ".*", TxStatusSubjectPrefix + ".*"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishTransferIntent publishes a recorded transfer intent.
func (p *JetStreamPublisher) PublishTransferIntent(ctx context.Context, intent *gateway.TransferIntent) error {
	subject := IntentSubject(intent.From)
	return p.publish(ctx, subject, FromTransferIntent(intent))
}

// PublishTransactionStatus publishes the final status of a watched transaction.
func (p *JetStreamPublisher) PublishTransactionStatus(ctx context.Context, event *TransactionStatusEvent) error {
	return p.publish(ctx, TxStatusSubject(event.Signature), event)
}

func (p *JetStreamPublisher) publish(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	start := time.Now()
	_, err = p.js.Publish(ctx, subject, data)
	status := "success"
	if err != nil {
		status = "error"
	}
	// Label by prefix so signatures do not become label values.
	p.metrics.RecordNATSPublish(subjectPrefix(subject), status, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.DebugContext(ctx, "published event", "subject", subject)
	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}

// IntentSubject is the subject intents from address are published on.
func IntentSubject(address string) string {
	return IntentSubjectPrefix + "." + address
}

// TxStatusSubject is the subject the status of signature is published on.
func TxStatusSubject(signature string) string {
	return TxStatusSubjectPrefix + "." + signature
}

func subjectPrefix(subject string) string {
	for i := 0; i < len(subject); i++ {
		if subject[i] == '.' {
			return subject[:i]
		}
	}
	return subject
}
