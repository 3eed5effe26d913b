package eventbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"bountychain/core/events"
)

// Envelope is the JSON payload published for each committed event.
type Envelope struct {
	ID         uuid.UUID         `json:"id"`
	Type       string            `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes"`
}

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Subject       string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
	Timeout       time.Duration
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Publisher forwards committed events to NATS. Each event is published on
// Subject + "." + the event type without its module prefix, e.g.
// bounty.events.puzzle.solved.
type Publisher struct {
	conn    publisher
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
	newID   func() uuid.UUID
}

// Connect dials the NATS server described by cfg.
func Connect(cfg Config) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("eventbus: NATS URL required")
	}
	if cfg.Name == "" {
		cfg.Name = "bountyd"
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	logger := slog.Default()
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrlRedacted()))
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect: %w", err)
	}
	p := NewPublisher(nc, cfg.Subject)
	p.nc = nc
	return p, nil
}

// NewPublisher publishes through conn on subject.
func NewPublisher(conn publisher, subject string) *Publisher {
	subject = strings.Trim(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = "bounty.events"
	}
	return &Publisher{
		conn:    conn,
		subject: subject,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.New,
	}
}

// SetLogger configures the logger used for publish failures.
func (p *Publisher) SetLogger(l *slog.Logger) {
	if l != nil {
		p.logger = l
	}
}

// Subject returns the NATS subject evt is published on.
func (p *Publisher) Subject(evt events.Event) string {
	suffix := strings.TrimPrefix(evt.EventType(), "bounty.")
	return p.subject + "." + suffix
}

// Encode renders evt as a JSON envelope.
func (p *Publisher) Encode(evt events.Event) ([]byte, error) {
	rendered := events.Render(evt)
	if rendered == nil {
		return nil, fmt.Errorf("eventbus: nil event")
	}
	return json.Marshal(Envelope{
		ID:         p.newID(),
		Type:       rendered.Type,
		Timestamp:  p.now().UTC(),
		Attributes: rendered.Attributes,
	})
}

// Emit implements events.Emitter. Publish failures are logged; the event has
// already been committed and is recoverable from the indexer.
func (p *Publisher) Emit(evt events.Event) {
	if p == nil || p.conn == nil || evt == nil {
		return
	}
	payload, err := p.Encode(evt)
	if err != nil {
		p.logger.Error("encode event failed", slog.String("type", evt.EventType()), slog.Any("error", err))
		return
	}
	if err := p.conn.Publish(p.Subject(evt), payload); err != nil {
		p.logger.Error("publish event failed", slog.String("type", evt.EventType()), slog.Any("error", err))
	}
}

// Close drains the connection when Connect created it.
func (p *Publisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
