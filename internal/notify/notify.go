// Package notify announces selected candidates to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/secrets"
	"github.com/spigell/hiresense/internal/telemetry"
)

const DefaultSubject = "hiresense.candidates.selected"

var tracer = telemetry.GetTracer(telemetry.Instrumentation + "/notify")

// Selection is the event published after a pipeline run.
type Selection struct {
	RunID      string             `json:"run_id"`
	JobTitle   string             `json:"job_title"`
	Threshold  float64            `json:"threshold"`
	Candidates []hiring.Scorecard `json:"candidates"`
}

type Publisher interface {
	Publish(ctx context.Context, selection *Selection) error
	Close()
}

type Config struct {
	URL         string        `mapstructure:"url"`
	Subject     string        `mapstructure:"subject"`
	ConnTimeout time.Duration `mapstructure:"conn-timeout"`
	Token       string        `mapstructure:"token"`
	TokenFile   string        `mapstructure:"token-file"`
}

// NewPublisher connects to NATS, or returns a no-op publisher when no URL is set.
func NewPublisher(cfg *Config, logger *zap.Logger) (Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		logger.Debug("selection notifications disabled", zap.String("reason", "no nats url configured"))
		return Nop{}, nil
	}

	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		subject = DefaultSubject
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	token, err := secrets.LoadOptional(secrets.Source{Name: "nats token", Value: cfg.Token, File: cfg.TokenFile})
	if err != nil {
		return nil, err
	}

	opts := []nats.Option{
		nats.Name("hiresense"),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	return &natsPublisher{conn: conn, subject: subject, logger: logger}, nil
}

type natsPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func (p *natsPublisher) Publish(ctx context.Context, selection *Selection) error {
	_, span := tracer.Start(ctx, "notify.Publish")
	defer span.End()

	data, err := Marshal(selection)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		telemetry.String("nats.subject", p.subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(p.subject, data); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publishing to nats: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("flushing nats connection: %w", err)
	}

	p.logger.Info("published candidate selection",
		zap.String("run_id", selection.RunID),
		zap.String("subject", p.subject),
		zap.Int("candidates", len(selection.Candidates)),
	)
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Marshal encodes a selection event, writing an empty candidates list as [].
func Marshal(selection *Selection) ([]byte, error) {
	if selection == nil {
		return nil, fmt.Errorf("selection is required")
	}

	event := *selection
	if event.Candidates == nil {
		event.Candidates = []hiring.Scorecard{}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshaling selection: %w", err)
	}
	return data, nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, *Selection) error { return nil }

func (Nop) Close() {}
