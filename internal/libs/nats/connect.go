// Package natsq connects to the NATS broker backing the analysis queue.
package natsq

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

const (
	defaultClientName    = "paper-analyzer"
	defaultMaxReconnects = 5
)

type Config struct {
	Name          string
	MaxReconnects int
}

func NewConnect(url string, cfg Config) (*nats.Conn, error) {
	if cfg.Name == "" {
		cfg.Name = defaultClientName
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = defaultMaxReconnects
	}

	nc, err := nats.Connect(url,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return nc, nil
}

// NewAnalysisStream ensures the stream carrying document analysis jobs
// exists and returns a JetStream context bound to the connection. Jobs
// must survive broker restarts, so the stream is file-backed.
func NewAnalysisStream(nc *nats.Conn, stream, subject string) (nats.JetStreamContext, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("JetStream: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: []string{subject},
		Storage:  nats.FileStorage,
		Replicas: 1,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil, fmt.Errorf("JetStream AddStream %s: %w", stream, err)
	}

	return js, nil
}
