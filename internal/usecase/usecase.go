package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ezgisubasi/multimodal-research-agent/internal/domain"

	"github.com/google/uuid"
)

type DocumentStore interface {
	Create(ctx context.Context, p domain.CreateDocumentParams) (string, error)
	Get(ctx context.Context, id string) (domain.Document, bool)
	SetStatus(ctx context.Context, id string, status domain.DocumentStatus, errReason string)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (domain.StatusCounts, error)
}

type FileStore interface {
	Save(ctx context.Context, reader io.Reader, objectName string, size int64) (int64, string, error)
	Delete(ctx context.Context, objectName string) error
}

type AnalysisQueue interface {
	Enqueue(ctx context.Context, documentID string) error
}

type PageIndex interface {
	Query(ctx context.Context, vector [][]float32, topK int) ([]domain.SearchResult, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([][]float32, error)
	ModelLoaded(ctx context.Context) bool
}

const (
	defaultTopK = 5
	maxTopK     = 20
)

type usecase struct {
	maxUploadBytes int64
	documents      DocumentStore
	files          FileStore
	queue          AnalysisQueue
	index          PageIndex
	embedder       QueryEmbedder
}

func New(
	maxUploadBytes int64,
	documents DocumentStore,
	files FileStore,
	queue AnalysisQueue,
	index PageIndex,
	embedder QueryEmbedder,
) *usecase {
	return &usecase{
		maxUploadBytes: maxUploadBytes,
		documents:      documents,
		files:          files,
		queue:          queue,
		index:          index,
		embedder:       embedder,
	}
}

// Upload validates the PDF, stores it, creates the document record and
// enqueues it for analysis. Validation happens before anything is written.
func (uc *usecase) Upload(ctx context.Context, file io.Reader, filename string, size int64) (string, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return "", domain.ErrUnsupportedFileType
	}
	if size > uc.maxUploadBytes {
		return "", domain.ErrFileTooLarge
	}

	objectName := uuid.NewString() + ".pdf"
	written, hash, err := uc.files.Save(ctx, file, objectName, size)
	if err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	docID, err := uc.documents.Create(ctx, domain.CreateDocumentParams{
		Filename:    filename,
		ObjectName:  objectName,
		FileSize:    written,
		FileHashSHA: hash,
	})
	if err != nil {
		_ = uc.files.Delete(ctx, objectName)
		return "", fmt.Errorf("create document: %w", err)
	}

	if doc, ok := uc.documents.Get(ctx, docID); ok && doc.ObjectName != objectName {
		// Same content uploaded before; keep the original copy and record.
		if err := uc.files.Delete(ctx, objectName); err != nil {
			slog.Warn("delete duplicated file", slog.String("error", err.Error()))
		}
		return docID, nil
	}

	slog.Debug("enqueue document", slog.String("document_id", docID))
	if err := uc.queue.Enqueue(ctx, docID); err != nil {
		slog.Error("enqueue failed",
			slog.String("document_id", docID),
			slog.String("error", err.Error()),
		)
		uc.documents.SetStatus(ctx, docID, domain.StatusFailed, err.Error())
		return "", fmt.Errorf("enqueue: %w", err)
	}

	return docID, nil
}

func (uc *usecase) Status(ctx context.Context, documentID string) (domain.StatusResponse, error) {
	doc, ok := uc.documents.Get(ctx, documentID)
	if !ok {
		return domain.StatusResponse{}, domain.ErrDocumentNotFound
	}

	resp := domain.StatusResponse{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Filename:   doc.Filename,
		FileSize:   doc.FileSize,
		UploadTime: doc.UploadTime.Format(time.RFC3339),
	}

	switch doc.Status {
	case domain.StatusCompleted:
		resp.Result = doc.Result
	case domain.StatusFailed:
		resp.Error = doc.Error
		if resp.Error == "" {
			resp.Error = "Processing failed"
		}
	}

	return resp, nil
}

func (uc *usecase) Documents(ctx context.Context) (domain.ListDocumentsResponse, error) {
	docs, err := uc.documents.List(ctx)
	if err != nil {
		return domain.ListDocumentsResponse{}, fmt.Errorf("list documents: %w", err)
	}

	summaries := make([]domain.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summary := domain.DocumentSummary{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Status:     doc.Status,
			FileSize:   doc.FileSize,
			UploadTime: doc.UploadTime.Format(time.RFC3339),
		}

		if doc.Status == domain.StatusCompleted && doc.Result != nil {
			summary.Title = doc.Result.Title
			summary.AuthorsCount = len(doc.Result.Authors)
			summary.SectionsCount = len(doc.Result.Sections)
			summary.NumPages = doc.Result.NumPages
		}

		summaries = append(summaries, summary)
	}

	return domain.ListDocumentsResponse{
		Documents:      summaries,
		TotalDocuments: len(summaries),
	}, nil
}

// Delete removes the document record, the stored PDF and its index points.
func (uc *usecase) Delete(ctx context.Context, documentID string) (string, error) {
	doc, ok := uc.documents.Get(ctx, documentID)
	if !ok {
		return "", domain.ErrDocumentNotFound
	}

	if err := uc.index.DeleteByDocument(ctx, documentID); err != nil {
		slog.Warn("delete index points",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
	}

	if doc.ObjectName != "" {
		if err := uc.files.Delete(ctx, doc.ObjectName); err != nil {
			slog.Warn("delete stored pdf",
				slog.String("document_id", documentID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := uc.documents.Delete(ctx, documentID); err != nil {
		return "", fmt.Errorf("delete document: %w", err)
	}

	return doc.Filename, nil
}

func (uc *usecase) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.SearchResponse{}, domain.ErrEmptyQuery
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("embed query: %w", err)
	}

	results, err := uc.index.Query(ctx, vector, topK)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search index: %w", err)
	}

	return domain.SearchResponse{
		Query:        query,
		Results:      results,
		TotalResults: len(results),
	}, nil
}

func (uc *usecase) Health(ctx context.Context) (domain.HealthResponse, error) {
	counts, err := uc.documents.Counts(ctx)
	if err != nil {
		return domain.HealthResponse{}, fmt.Errorf("document counts: %w", err)
	}

	return domain.HealthResponse{
		Status:              "healthy",
		ModelLoaded:         uc.embedder.ModelLoaded(ctx),
		TotalDocuments:      counts.Total,
		ProcessingDocuments: counts.Processing,
		CompletedDocuments:  counts.Completed,
		FailedDocuments:     counts.Failed,
		Timestamp:           time.Now().Format(time.RFC3339),
	}, nil
}
