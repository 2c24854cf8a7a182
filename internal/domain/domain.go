package domain

import (
	"errors"
	"time"
)

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether the status ends the processing lifecycle.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document is the stored record of one uploaded research paper.
type Document struct {
	ID string `json:"document_id"`

	Status DocumentStatus `json:"status"`

	Filename   string `json:"filename"`
	ObjectName string `json:"object_name"`

	FileSize    int64     `json:"file_size"`
	FileHashSHA string    `json:"file_hash_sha"`
	UploadTime  time.Time `json:"upload_time"`
	UpdatedAt   time.Time `json:"updated_at"`

	Result *AnalysisResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type CreateDocumentParams struct {
	Filename    string
	ObjectName  string
	FileSize    int64
	FileHashSHA string
}

// AnalysisResult is the combined output of the analysis pipeline:
// GROBID full-text structure plus the page-embedding index summary.
type AnalysisResult struct {
	Title      string    `json:"title"`
	Authors    []Author  `json:"authors"`
	Abstract   string    `json:"abstract"`
	Sections   []Section `json:"sections"`
	References []string  `json:"references"`
	Keywords   []string  `json:"keywords"`

	NumPages       int     `json:"num_pages"`
	IndexedPages   int     `json:"indexed_pages"`
	ProcessingTime float64 `json:"processing_time"`
}

type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
}

type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UploadResponse is returned by POST /upload on acceptance.
type UploadResponse struct {
	DocumentID string         `json:"document_id"`
	Filename   string         `json:"filename"`
	Status     DocumentStatus `json:"status"`
	Message    string         `json:"message"`
}

// StatusResponse is one point-in-time snapshot served by GET /status/{id}.
type StatusResponse struct {
	DocumentID string          `json:"document_id"`
	Status     DocumentStatus  `json:"status"`
	Filename   string          `json:"filename,omitempty"`
	FileSize   int64           `json:"file_size,omitempty"`
	UploadTime string          `json:"upload_time,omitempty"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// DocumentSummary is one row of GET /documents.
type DocumentSummary struct {
	DocumentID    string         `json:"document_id"`
	Filename      string         `json:"filename"`
	Status        DocumentStatus `json:"status"`
	FileSize      int64          `json:"file_size"`
	UploadTime    string         `json:"upload_time"`
	Title         string         `json:"title,omitempty"`
	AuthorsCount  int            `json:"authors_count,omitempty"`
	SectionsCount int            `json:"sections_count,omitempty"`
	NumPages      int            `json:"num_pages,omitempty"`
}

type ListDocumentsResponse struct {
	Documents      []DocumentSummary `json:"documents"`
	TotalDocuments int               `json:"total_documents"`
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type SearchResult struct {
	PaperID    string  `json:"paper_id"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
	PDFPath    string  `json:"pdf_path"`
}

type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

type HealthResponse struct {
	Status              string `json:"status"`
	ModelLoaded         bool   `json:"model_loaded"`
	TotalDocuments      int    `json:"total_documents"`
	ProcessingDocuments int    `json:"processing_documents"`
	CompletedDocuments  int    `json:"completed_documents"`
	FailedDocuments     int    `json:"failed_documents"`
	Timestamp           string `json:"timestamp"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusCounts aggregates per-status document totals for /health.
type StatusCounts struct {
	Total      int
	Processing int
	Completed  int
	Failed     int
}

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUnsupportedFileType = errors.New("only PDF files are supported")
	ErrFileTooLarge        = errors.New("file too large")
	ErrEmptyQuery          = errors.New("query must not be empty")
)
