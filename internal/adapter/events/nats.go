package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/pscheid92/rubyemotes/internal/domain"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NATSPublisher publishes JSON envelopes to NATS subjects named after the topic.
type NATSPublisher struct {
	conn  *nats.Conn
	clock clockwork.Clock
}

var _ domain.EventPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects with unlimited reconnects. Publishes made while
// disconnected are buffered by the client.
func NewNATSPublisher(url string, clock clockwork.Clock) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("rubyemotes"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc, clock: clock}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}

	envelope, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       topic,
		OccurredAt: p.clock.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", topic, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.conn.Publish(topic, envelope); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

// Ping round-trips to the server.
func (p *NATSPublisher) Ping(ctx context.Context) error {
	return p.conn.FlushWithContext(ctx)
}

// Close flushes buffered messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
