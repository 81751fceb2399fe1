// Package events publishes committed model changes and engine run events to
// NATS. Messages are JSON; the OpenTelemetry trace context of the publishing
// call travels in the message headers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"hydrocore/internal/ctxlog"
	"hydrocore/internal/solver/runner"
	"hydrocore/pkg/domain"
)

// DefaultPrefix is the subject root used when none is configured.
const DefaultPrefix = "hydrocore"

// Publisher sends events under <prefix>.changes.<entity>.<action> and
// <prefix>.runs.<status>.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// Connect dials url and returns a publisher that closes the connection on
// Close.
func Connect(url, prefix string, opts ...nats.Option) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("events: nats url is required")
	}
	opts = append([]nats.Option{nats.Name("hydrocore")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	p := NewPublisher(nc, prefix)
	p.owned = true
	return p, nil
}

// NewPublisher wraps an existing connection. An empty prefix selects
// DefaultPrefix.
func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{nc: nc, prefix: strings.TrimSuffix(prefix, ".")}
}

// ChangeSubject returns the subject a change event is published on.
func (p *Publisher) ChangeSubject(event domain.ChangeEvent) string {
	return fmt.Sprintf("%s.changes.%s.%s", p.prefix, event.Entity, event.Action)
}

// RunSubject returns the subject a run event is published on.
func (p *Publisher) RunSubject(event runner.Event) string {
	return fmt.Sprintf("%s.runs.%s", p.prefix, event.Status)
}

// PublishRun implements runner.Publisher.
func (p *Publisher) PublishRun(ctx context.Context, event runner.Event) error {
	return publish(ctx, p.nc, p.RunSubject(event), event)
}

// PublishChanges sends each event of a committed transaction. Its signature
// matches core.ChangeListener; failures are logged because the transaction
// has already committed.
func (p *Publisher) PublishChanges(ctx context.Context, events []domain.ChangeEvent) {
	for _, event := range events {
		if err := publish(ctx, p.nc, p.ChangeSubject(event), event); err != nil {
			ctxlog.FromContext(ctx).Warn("change event not published",
				"entity", event.Entity, "id", event.EntityID, "error", err)
		}
	}
}

// Flush waits until the server has processed everything published so far.
func (p *Publisher) Flush(ctx context.Context) error {
	return p.nc.FlushWithContext(ctx)
}

// Close drains the connection when the publisher opened it.
func (p *Publisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

func publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe decodes JSON messages on subject into T and hands them to
// handler with the publisher's trace context restored. Malformed messages
// are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, v)
	})
}

// headerCarrier adapts nats.Msg headers to propagation.TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
