// Package events mirrors timeline changes onto NATS so other local tools can
// follow a conversation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docchat/docchat/timeline"
	"docchat/docchat/utils/logging"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher sends one JSON payload to a subject.
type Publisher interface {
	Publish(subject string, data any) error
}

// Subscriber delivers raw payloads published on a subject (wildcards allowed).
type Subscriber interface {
	Subscribe(subject string, handler func(subject string, data []byte)) error
}

// TimelineEvent is the payload published for every timeline change.
type TimelineEvent struct {
	SessionID string             `json:"session_id"`
	Kind      timeline.EventKind `json:"kind"`
	Index     int                `json:"index"`
	Message   *timeline.Message  `json:"message,omitempty"`
	At        time.Time          `json:"at"`
}

type Client struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

func NewClient(ctx context.Context, url, token string) (*Client, error) {
	opts := []nats.Option{
		nats.Name("docchat"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.AppLogger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logging.AppLogger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{conn: nc}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	logging.AppLogger.Info("subscribed", zap.String("subject", subject))
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

// Subject returns "<prefix>.<session id>", with "pending" standing in while no
// session id is known.
func Subject(prefix, sessionID string) string {
	id := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(sessionID)
	if id == "" {
		id = "pending"
	}
	return prefix + "." + id
}

// Forward publishes every change of tl until the returned stop func is called.
// Publish errors are logged, never surfaced to the timeline.
func Forward(tl *timeline.Timeline, pub Publisher, prefix string, sessionID func() string) (stop func()) {
	return tl.Subscribe(func(ev timeline.Event) {
		id := sessionID()
		payload := TimelineEvent{SessionID: id, Kind: ev.Kind, Index: ev.Index, At: time.Now().UTC()}
		if ev.Kind != timeline.EventReset {
			msg := ev.Message
			payload.Message = &msg
		}
		if err := pub.Publish(Subject(prefix, id), payload); err != nil {
			logging.ErrorLogger.Error("publish timeline event", zap.String("kind", string(ev.Kind)), zap.Error(err))
		}
	})
}

// Follow decodes the timeline events published on subject and hands them to
// fn. Payloads that are not timeline events are logged and skipped.
func Follow(sub Subscriber, subject string, fn func(TimelineEvent)) error {
	return sub.Subscribe(subject, func(subj string, data []byte) {
		var ev TimelineEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.Kind == "" {
			logging.AppLogger.Warn("skipping foreign payload", zap.String("subject", subj), zap.Error(err))
			return
		}
		fn(ev)
	})
}

// Event converts a published event back into its timeline form.
func (e TimelineEvent) Event() timeline.Event {
	ev := timeline.Event{Kind: e.Kind, Index: e.Index}
	if e.Message != nil {
		ev.Message = *e.Message
	}
	return ev
}
