// Package client is the Go client for the research-paper analysis API.
// It provides a typed HTTP client for the full endpoint surface and a
// Controller that drives one upload-and-track session: submit the PDF,
// poll the status endpoint until a terminal state, hand off the result.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status ends polling.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StatusSnapshot is one point-in-time status response. Result stays
// opaque; rendering it is the caller's concern.
type StatusSnapshot struct {
	DocumentID string          `json:"document_id"`
	Status     Status          `json:"status"`
	Filename   string          `json:"filename,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`

	// Progress is a client-side estimate filled in by the Controller.
	// Cosmetic only; never used for control flow.
	Progress float64 `json:"-"`
}

type UploadResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     Status `json:"status"`
	Message    string `json:"message"`
}

type DocumentSummary struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	Status        Status `json:"status"`
	FileSize      int64  `json:"file_size"`
	UploadTime    string `json:"upload_time"`
	Title         string `json:"title,omitempty"`
	AuthorsCount  int    `json:"authors_count,omitempty"`
	SectionsCount int    `json:"sections_count,omitempty"`
}

type DocumentList struct {
	Documents      []DocumentSummary `json:"documents"`
	TotalDocuments int               `json:"total_documents"`
}

type SearchHit struct {
	PaperID    string  `json:"paper_id"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
	PDFPath    string  `json:"pdf_path"`
}

type SearchResults struct {
	Query        string      `json:"query"`
	Results      []SearchHit `json:"results"`
	TotalResults int         `json:"total_results"`
}

type HealthInfo struct {
	Status              string `json:"status"`
	ModelLoaded         bool   `json:"model_loaded"`
	TotalDocuments      int    `json:"total_documents"`
	ProcessingDocuments int    `json:"processing_documents"`
	CompletedDocuments  int    `json:"completed_documents"`
	FailedDocuments     int    `json:"failed_documents"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload sends the PDF as a multipart request and returns the
// server-assigned document id.
func (c *Client) Upload(ctx context.Context, file io.Reader, filename string) (UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, &TransportError{Op: "build upload request", Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, &TransportError{Op: "read file", Err: err}
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, &TransportError{Op: "build upload request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return UploadResult{}, &TransportError{Op: "build upload request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, &TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return UploadResult{}, &TransportError{Op: "read upload response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UploadResult{}, &UploadError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(data),
		}
	}

	var result UploadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return UploadResult{}, &TransportError{Op: "decode upload response", Err: err}
	}
	if result.DocumentID == "" {
		return UploadResult{}, &TransportError{
			Op:  "decode upload response",
			Err: fmt.Errorf("missing document_id"),
		}
	}

	return result, nil
}

// Status fetches one snapshot for the document.
func (c *Client) Status(ctx context.Context, documentID string) (StatusSnapshot, error) {
	var snap StatusSnapshot
	if err := c.getJSON(ctx, "/status/"+documentID, &snap); err != nil {
		return StatusSnapshot{}, err
	}
	return snap, nil
}

func (c *Client) Documents(ctx context.Context) (DocumentList, error) {
	var list DocumentList
	if err := c.getJSON(ctx, "/documents", &list); err != nil {
		return DocumentList{}, err
	}
	return list, nil
}

func (c *Client) Delete(ctx context.Context, documentID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/documents/"+documentID, nil)
	if err != nil {
		return &TransportError{Op: "build delete request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "delete document", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &TransportError{
			Op:  "delete document",
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, serverMessage(data)),
		}
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query string, topK int) (SearchResults, error) {
	payload, err := json.Marshal(map[string]any{"query": query, "top_k": topK})
	if err != nil {
		return SearchResults{}, &TransportError{Op: "build search request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return SearchResults{}, &TransportError{Op: "build search request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SearchResults{}, &TransportError{Op: "search", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return SearchResults{}, &TransportError{Op: "read search response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SearchResults{}, &TransportError{
			Op:  "search",
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, serverMessage(data)),
		}
	}

	var results SearchResults
	if err := json.Unmarshal(data, &results); err != nil {
		return SearchResults{}, &TransportError{Op: "decode search response", Err: err}
	}
	return results, nil
}

func (c *Client) Health(ctx context.Context) (HealthInfo, error) {
	var info HealthInfo
	if err := c.getJSON(ctx, "/health", &info); err != nil {
		return HealthInfo{}, err
	}
	return info, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &TransportError{Op: "build request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			Op:  "GET " + path,
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, serverMessage(data)),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: "decode response", Err: err}
	}
	return nil
}

// serverMessage pulls the human-readable message out of an error body.
// Known backends use `message`, `detail` or `error`.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, msg := range []string{body.Message, body.Detail, body.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	return "request failed"
}
