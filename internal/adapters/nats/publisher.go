package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// SubjectPrefix namespaces every broadcast topic on the bus.
const SubjectPrefix = "seatpass."

// Subject returns the NATS subject for a topic.
func Subject(topic domain.Topic) string {
	return SubjectPrefix + string(topic)
}

// topicOf is the inverse of Subject.
func topicOf(subject string) (domain.Topic, bool) {
	t := domain.Topic(strings.TrimPrefix(subject, SubjectPrefix))
	return t, t.Valid() && strings.HasPrefix(subject, SubjectPrefix)
}

// Publisher implements ports.Broadcaster on NATS. Events go out on plain
// subjects; a JetStream stream keeps a short history of them for audit.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "SEATPASS_EVENTS",
		Subjects:  []string{SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// Publish sends ev on the topic subject. It does not wait for subscribers.
func (p *Publisher) Publish(ctx context.Context, topic domain.Topic, ev domain.Event) error {
	ev.Topic = topic
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(topic), data)
}

// Ping reports whether the connection is usable.
func (p *Publisher) Ping() error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats: %s", p.conn.Status())
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("seatpass"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
