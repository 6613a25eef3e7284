package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carolinalumpers.com/clockin/clockin"
	"github.com/nats-io/nats.go"
)

const DefaultSubject = "clockin.accepted"

type publisher interface {
	Publish(subject string, data []byte) error
}

// Publisher broadcasts accepted clock-ins on a NATS subject as JSON.
type Publisher struct {
	conn    publisher
	subject string
	close   func()
}

// Connect dials url. The connection reconnects on its own; Close drains it.
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("clockin"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	p := NewPublisher(conn, subject)
	p.close = func() { _ = conn.Drain() }
	return p, nil
}

func NewPublisher(conn publisher, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

func (p *Publisher) Notify(ctx context.Context, event clockin.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}
