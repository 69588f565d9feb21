// Package events publishes run lifecycle events over NATS so downstream
// consumers (dashboards, notification bots) can follow long analysis runs.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectRunStarted   = "colloquy.run.started"
	SubjectDocumentDone = "colloquy.document.done"
	SubjectRunComplete  = "colloquy.run.complete"
)

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Close() {
	p.conn.Close()
}

func (p *Publisher) publish(subject string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		p.logger.Error("marshal event", "subject", subject, "error", err)
		return
	}
	// Events are advisory; a publish failure never affects the run.
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

func (p *Publisher) RunStarted(documents int) {
	p.publish(SubjectRunStarted, map[string]any{
		"documents": documents,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) DocumentDone(docID string, err error) {
	evt := map[string]any{
		"doc_id":    docID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		evt["error"] = err.Error()
	}
	p.publish(SubjectDocumentDone, evt)
}

func (p *Publisher) RunComplete(succeeded, failed int, confidence float64) {
	p.publish(SubjectRunComplete, map[string]any{
		"succeeded":  succeeded,
		"failed":     failed,
		"confidence": confidence,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
