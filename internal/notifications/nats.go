package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes every event as JSON on orders.created,
// orders.status_changed or orders.refunded.
type NATSSink struct {
	conn Publisher
}

func NewNATSSink(conn Publisher) *NATSSink {
	return &NATSSink{conn: conn}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Deliver(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", evt.Type, err)
	}
	if err := s.conn.Publish(evt.Subject(), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.Subject(), err)
	}
	return nil
}

// ConnectNATS dials the server and keeps reconnecting in the background for as
// long as the process runs.
func ConnectNATS(url string, logger *logrus.Entry) (*nats.Conn, error) {
	log := logger.WithField("component", "nats")
	opts := []nats.Option{
		nats.Name("pulgax-store"),
		nats.Timeout(10 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
