package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ezgisubasi/multimodal-research-agent/internal/analysis/grobid"
	"github.com/ezgisubasi/multimodal-research-agent/internal/domain"
	"github.com/ezgisubasi/multimodal-research-agent/internal/index/qdrant"
	"github.com/ezgisubasi/multimodal-research-agent/internal/queue"

	"github.com/nats-io/nats.go"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

type DocumentStore interface {
	Get(ctx context.Context, id string) (domain.Document, bool)
	SetStatus(ctx context.Context, id string, status domain.DocumentStatus, errReason string)
	SetResult(ctx context.Context, id string, result *domain.AnalysisResult) error
}

type FileStore interface {
	Open(ctx context.Context, objectName string) (io.ReadCloser, int64, error)
}

type TextExtractor interface {
	ProcessFulltext(ctx context.Context, pdf io.Reader, filename string) (*grobid.Extraction, error)
}

type PageEmbedder interface {
	EmbedPages(ctx context.Context, pdf io.Reader, filename string) ([][][]float32, error)
}

type PageIndex interface {
	UpsertPages(ctx context.Context, points []qdrant.PagePoint) error
}

// Worker pull-consumes document ids from JetStream and runs the analysis
// pipeline: pdfcpu validation, GROBID text extraction and ColPali page
// indexing.
type Worker struct {
	js                nats.JetStreamContext
	subject           string
	size              int
	processingTimeout time.Duration

	documents DocumentStore
	files     FileStore
	extractor TextExtractor
	embedder  PageEmbedder
	index     PageIndex

	done chan struct{}
	sub  *nats.Subscription
}

func New(
	js nats.JetStreamContext,
	subject string,
	size int,
	processingTimeout time.Duration,
	documents DocumentStore,
	files FileStore,
	extractor TextExtractor,
	embedder PageEmbedder,
	index PageIndex,
) *Worker {
	if size <= 0 {
		size = 1
	}

	return &Worker{
		js:                js,
		subject:           subject,
		size:              size,
		processingTimeout: processingTimeout,
		documents:         documents,
		files:             files,
		extractor:         extractor,
		embedder:          embedder,
		index:             index,
		done:              make(chan struct{}, size),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	consumerName := "paper-analysis-consumer"
	_, err := w.js.AddConsumer(queue.StreamName, &nats.ConsumerConfig{
		Durable:       consumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		FilterSubject: w.subject,
		MaxAckPending: w.size * 2,
	})
	if err != nil && !errors.Is(err, nats.ErrConsumerNameAlreadyInUse) {
		return fmt.Errorf("JetStream AddConsumer: %w", err)
	}

	sub, err := w.js.PullSubscribe(w.subject, consumerName)
	if err != nil {
		return fmt.Errorf("JetStream PullSubscribe: %w", err)
	}
	w.sub = sub

	for i := 0; i < w.size; i++ {
		go func() {
			defer func() { w.done <- struct{}{} }()
			w.runConsumer(ctx)
		}()
	}

	slog.Info("analysis worker is running",
		slog.Int("workers", w.size),
		slog.String("subject", w.subject),
	)
	return nil
}

func (w *Worker) Stop(ctx context.Context) {
	<-ctx.Done()

	for i := 0; i < w.size; i++ {
		<-w.done
	}

	if w.sub != nil {
		if err := w.sub.Drain(); err != nil {
			slog.Warn("NATS subscription drain", slog.String("error", err.Error()))
		}
	}

	slog.Info("analysis worker stopped")
}

func (w *Worker) runConsumer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("consumer stopping")
			return
		default:
		}

		msgs, err := w.sub.Fetch(1, nats.Context(ctx))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			slog.Warn("NATS Fetch", slog.String("error", err.Error()))
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, msg := range msgs {
			documentID := string(msg.Data)
			slog.Debug("got message", slog.String("document_id", documentID))

			if err := w.Process(ctx, documentID); err != nil {
				slog.Error("process",
					slog.String("document_id", documentID),
					slog.String("error", err.Error()),
				)
				if errors.Is(err, domain.ErrDocumentNotFound) {
					// Record is gone; retrying cannot help.
					_ = msg.Ack()
					continue
				}
				_ = msg.Nak()
				continue
			}

			if err := msg.Ack(); err != nil {
				slog.Warn("NATS Ack", slog.String("error", err.Error()))
			}
		}
	}
}

// Process runs the full pipeline for one document and records the outcome
// in the document store. The returned error signals whether the message
// should be redelivered.
func (w *Worker) Process(ctx context.Context, documentID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	doc, found := w.documents.Get(ctx, documentID)
	if !found {
		return domain.ErrDocumentNotFound
	}
	if doc.Status.Terminal() {
		// Redelivered after a crash between SetResult and Ack.
		return nil
	}

	slog.Info("analysis start", slog.String("document_id", documentID))
	w.documents.SetStatus(ctx, documentID, domain.StatusProcessing, "")

	procCtx, cancel := context.WithTimeout(ctx, w.processingTimeout)
	defer cancel()

	result, err := w.analyze(procCtx, doc)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down mid-analysis. Leave the outcome unrecorded so
			// the message is redelivered.
			return ctx.Err()
		}
		// Outcome writes use the parent context: procCtx is already
		// expired when the analysis timed out.
		w.documents.SetStatus(ctx, documentID, domain.StatusFailed, err.Error())
		// The failure is recorded; the message must not be redelivered.
		slog.Error("analysis failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if err := w.documents.SetResult(ctx, documentID, result); err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	slog.Info("analysis done",
		slog.String("document_id", documentID),
		slog.Int("num_pages", result.NumPages),
		slog.Int("indexed_pages", result.IndexedPages),
	)
	return nil
}

func (w *Worker) analyze(ctx context.Context, doc domain.Document) (*domain.AnalysisResult, error) {
	start := time.Now()

	tempDir, err := os.MkdirTemp("", "paper-indexer-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pdfPath := filepath.Join(tempDir, "source.pdf")
	if err := w.download(ctx, doc.ObjectName, pdfPath); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(pdfPath, conf); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}

	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}

	var (
		extraction *grobid.Extraction
		indexed    int
	)

	eg, eCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		f, err := os.Open(pdfPath)
		if err != nil {
			return fmt.Errorf("open pdf for extraction: %w", err)
		}
		defer f.Close()

		ext, err := w.extractor.ProcessFulltext(eCtx, f, doc.Filename)
		if err != nil {
			return fmt.Errorf("text extraction: %w", err)
		}
		extraction = ext
		return nil
	})

	eg.Go(func() error {
		f, err := os.Open(pdfPath)
		if err != nil {
			return fmt.Errorf("open pdf for embedding: %w", err)
		}
		defer f.Close()

		vectors, err := w.embedder.EmbedPages(eCtx, f, doc.Filename)
		if err != nil {
			return fmt.Errorf("page embedding: %w", err)
		}

		points := make([]qdrant.PagePoint, 0, len(vectors))
		for pageIdx, vector := range vectors {
			points = append(points, qdrant.PagePoint{
				DocumentID: doc.ID,
				PageNumber: pageIdx,
				PDFPath:    doc.ObjectName,
				TotalPages: len(vectors),
				Vector:     vector,
			})
		}

		if err := w.index.UpsertPages(eCtx, points); err != nil {
			return fmt.Errorf("index pages: %w", err)
		}
		indexed = len(points)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &domain.AnalysisResult{
		Title:          extraction.Title,
		Authors:        extraction.Authors,
		Abstract:       extraction.Abstract,
		Sections:       extraction.Sections,
		References:     extraction.References,
		Keywords:       extraction.Keywords,
		NumPages:       pageCount,
		IndexedPages:   indexed,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (w *Worker) download(ctx context.Context, objectName, dst string) error {
	rc, _, err := w.files.Open(ctx, objectName)
	if err != nil {
		return fmt.Errorf("open stored pdf: %w", err)
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create temp pdf: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("download pdf: %w", err)
	}

	return nil
}
