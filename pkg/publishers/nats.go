package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samvad-hq/samvad-news-ingest/internal/logger"
)

// natsSender abstracts core NATS and JetStream publishing.
type natsSender interface {
	send(ctx context.Context, msg *nats.Msg) error
}

type coreSender struct{ nc *nats.Conn }

func (c coreSender) send(_ context.Context, msg *nats.Msg) error {
	return c.nc.PublishMsg(msg)
}

type jetStreamSender struct{ js nats.JetStreamContext }

func (j jetStreamSender) send(ctx context.Context, msg *nats.Msg) error {
	_, err := j.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// natsPublisher publishes events to a NATS subject.
type natsPublisher struct {
	id      string
	subject string
	conn    *nats.Conn
	sender  natsSender
	log     logger.Logger
}

func newNATSPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.NATS == nil {
		return nil, fmt.Errorf("publisher %q missing nats configuration", cfg.ID)
	}
	log = logger.Ensure(log)

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("samvad-news-ingest"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WarnObj("nats disconnected", "publisher_nats_disconnect", map[string]any{
					"publisher_id": cfg.ID,
					"error":        err.Error(),
				})
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	var sender natsSender = coreSender{nc: nc}
	if cfg.NATS.JetStream {
		js, err := nc.JetStream()
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("jetstream context: %w", err)
		}
		sender = jetStreamSender{js: js}
	}

	return &natsPublisher{
		id:      cfg.ID,
		subject: cfg.NATS.Subject,
		conn:    nc,
		sender:  sender,
		log:     log,
	}, nil
}

func (n *natsPublisher) ID() string   { return n.id }
func (n *natsPublisher) Type() string { return TypeNATS }

func (n *natsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(n.subject)
	msg.Data = payload
	for k, v := range providerAttribute(evt) {
		msg.Header.Set(k, v)
	}

	if err := n.sender.send(ctx, msg); err != nil {
		n.log.ErrorObj("nats publisher send failed", "publisher_nats_error", map[string]any{
			"publisher_id": n.id,
			"subject":      n.subject,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to nats: %w", err)
	}
	return nil
}

// Close drains buffered messages before closing the connection.
func (n *natsPublisher) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
