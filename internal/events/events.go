// Package events publishes domain events (follows, likes, comments, new posts)
// for downstream consumers such as notification workers.
//
// Publishing is fire-and-forget from the caller's point of view: the request that
// caused the event has already succeeded, so failures are logged, never returned.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Type names an event. It is also the last token of the NATS subject.
type Type string

const (
	PostCreated   Type = "post.created"
	PostLiked     Type = "post.liked"
	PostCommented Type = "post.commented"
	UserFollowed  Type = "user.followed"
)

// Event is the JSON payload published for every Type.
type Event struct {
	Type   Type      `json:"type"`
	Actor  string    `json:"actor"`
	Target string    `json:"target,omitempty"` // user affected, e.g. the followee or the post author
	Post   string    `json:"post,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// conn is the slice of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON on "<prefix>.<type>".
type NATSPublisher struct {
	nc     conn
	prefix string
	logger *slog.Logger
}

// NewNATSPublisher connects to the NATS server at url. The client reconnects on
// its own after the initial connection succeeds.
func NewNATSPublisher(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("blog-platform"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject an event of type t is published on.
func (p *NATSPublisher) Subject(t Type) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

func (p *NATSPublisher) Publish(_ context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("encoding event", slog.String("type", string(e.Type)), slog.String("error", err.Error()))
		return
	}
	if err := p.nc.Publish(p.Subject(e.Type), data); err != nil {
		p.logger.Warn("publishing event",
			slog.String("type", string(e.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
