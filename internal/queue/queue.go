package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// StreamName is the JetStream stream carrying analysis jobs.
const StreamName = "PAPER_ANALYSIS"

type queue struct {
	js      nats.JetStreamContext
	subject string
}

func New(js nats.JetStreamContext, subject string) *queue {
	return &queue{
		js:      js,
		subject: subject,
	}
}

// Enqueue publishes a document id for the indexer to pick up.
func (q *queue) Enqueue(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("empty documentID")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue document %s: %w", documentID, err)
	}

	msg := &nats.Msg{
		Subject: q.subject,
		Data:    []byte(documentID),
		Header:  nats.Header{},
	}

	ack, err := q.js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("enqueue document %s: publish failed: %w", documentID, err)
	}

	slog.Debug("document enqueued",
		slog.String("document_id", documentID),
		slog.String("subject", q.subject),
		slog.String("stream", ack.Stream),
		slog.Uint64("seq", ack.Sequence),
	)

	return nil
}
