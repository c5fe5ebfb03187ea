package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
)

// Subscriber relays bus events into a local broadcaster, typically the
// websocket hub of this process.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

// Relay forwards every seatpass event to sink until Close. Undecodable
// messages are dropped.
func (s *Subscriber) Relay(ctx context.Context, sink ports.Broadcaster) error {
	sub, err := s.conn.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		ev, err := decodeEvent(msg.Subject, msg.Data)
		if err != nil {
			slog.Warn("nats relay: dropping message", "subject", msg.Subject, "error", err)
			return
		}
		_ = sink.Publish(ctx, ev.Topic, ev)
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func decodeEvent(subject string, data []byte) (domain.Event, error) {
	topic, ok := topicOf(subject)
	if !ok {
		return domain.Event{}, fmt.Errorf("unknown subject %q", subject)
	}
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return domain.Event{}, err
	}
	ev.Topic = topic
	return ev, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
