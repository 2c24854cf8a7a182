package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezgisubasi/multimodal-research-agent/internal/domain"
)

type fakeUsecase struct {
	uploadID     string
	uploadErr    error
	uploadedName string

	statusResp domain.StatusResponse
	statusErr  error

	documentsResp domain.ListDocumentsResponse

	deleteFilename string
	deleteErr      error

	searchResp domain.SearchResponse
	searchErr  error

	healthResp domain.HealthResponse
}

func (f *fakeUsecase) Upload(ctx context.Context, file io.Reader, filename string, size int64) (string, error) {
	f.uploadedName = filename
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadID, nil
}

func (f *fakeUsecase) Status(ctx context.Context, documentID string) (domain.StatusResponse, error) {
	return f.statusResp, f.statusErr
}

func (f *fakeUsecase) Documents(ctx context.Context) (domain.ListDocumentsResponse, error) {
	return f.documentsResp, nil
}

func (f *fakeUsecase) Delete(ctx context.Context, documentID string) (string, error) {
	return f.deleteFilename, f.deleteErr
}

func (f *fakeUsecase) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	return f.searchResp, f.searchErr
}

func (f *fakeUsecase) Health(ctx context.Context) (domain.HealthResponse, error) {
	return f.healthResp, nil
}

func newTestMux(uc Usecase) *http.ServeMux {
	h := NewHandler(50, uc)
	return NewRouter(h).MountRoutes(http.NewServeMux())
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, body io.Reader) domain.ErrorResponse {
	t.Helper()
	var resp domain.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestUpload_Accepted(t *testing.T) {
	uc := &fakeUsecase{uploadID: "abc-123"}
	mux := newTestMux(uc)

	body, contentType := multipartBody(t, "file", "paper.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp domain.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "abc-123", resp.DocumentID)
	assert.Equal(t, "paper.pdf", resp.Filename)
	assert.Equal(t, domain.StatusProcessing, resp.Status)
	assert.Equal(t, "paper.pdf", uc.uploadedName)
}

func TestUpload_RejectsWrongMethod(t *testing.T) {
	mux := newTestMux(&fakeUsecase{})

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUpload_MissingFileField(t *testing.T) {
	mux := newTestMux(&fakeUsecase{})

	body, contentType := multipartBody(t, "document", "paper.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec.Body).Message, "file")
}

func TestUpload_UnsupportedType(t *testing.T) {
	uc := &fakeUsecase{uploadErr: domain.ErrUnsupportedFileType}
	mux := newTestMux(uc)

	body, contentType := multipartBody(t, "file", "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "only PDF files are supported", decodeError(t, rec.Body).Message)
}

func TestUpload_FileTooLarge(t *testing.T) {
	uc := &fakeUsecase{uploadErr: domain.ErrFileTooLarge}
	mux := newTestMux(uc)

	body, contentType := multipartBody(t, "file", "paper.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File too large. Max size: 50MB", decodeError(t, rec.Body).Message)
}

func TestUpload_InternalError(t *testing.T) {
	uc := &fakeUsecase{uploadErr: errors.New("queue unavailable")}
	mux := newTestMux(uc)

	body, contentType := multipartBody(t, "file", "paper.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "cannot create analysis task", decodeError(t, rec.Body).Message)
}

func TestStatus_OK(t *testing.T) {
	uc := &fakeUsecase{
		statusResp: domain.StatusResponse{
			DocumentID: "abc-123",
			Status:     domain.StatusProcessing,
			Filename:   "paper.pdf",
		},
	}
	mux := newTestMux(uc)

	req := httptest.NewRequest(http.MethodGet, "/status/abc-123", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "abc-123", resp.DocumentID)
	assert.Equal(t, domain.StatusProcessing, resp.Status)
}

func TestStatus_NotFound(t *testing.T) {
	uc := &fakeUsecase{statusErr: domain.ErrDocumentNotFound}
	mux := newTestMux(uc)

	req := httptest.NewRequest(http.MethodGet, "/status/missing", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Document not found", decodeError(t, rec.Body).Message)
}

func TestDocuments_List(t *testing.T) {
	uc := &fakeUsecase{
		documentsResp: domain.ListDocumentsResponse{
			Documents: []domain.DocumentSummary{
				{DocumentID: "a", Filename: "a.pdf", Status: domain.StatusCompleted},
			},
			TotalDocuments: 1,
		},
	}
	mux := newTestMux(uc)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ListDocumentsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.TotalDocuments)
}

func TestDelete_OK(t *testing.T) {
	uc := &fakeUsecase{deleteFilename: "paper.pdf"}
	mux := newTestMux(uc)

	req := httptest.NewRequest(http.MethodDelete, "/documents/abc-123", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Document 'paper.pdf' deleted successfully", resp.Message)
}

func TestDelete_NotFound(t *testing.T) {
	uc := &fakeUsecase{deleteErr: domain.ErrDocumentNotFound}
	mux := newTestMux(uc)

	req := httptest.NewRequest(http.MethodDelete, "/documents/missing", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_OK(t *testing.T) {
	uc := &fakeUsecase{
		searchResp: domain.SearchResponse{
			Query: "attention",
			Results: []domain.SearchResult{
				{PaperID: "a", PageNumber: 2, Score: 0.8, PDFPath: "data/a.pdf"},
			},
			TotalResults: 1,
		},
	}
	mux := newTestMux(uc)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": "attention", "top_k": 5}`))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.TotalResults)
}

func TestSearch_EmptyQuery(t *testing.T) {
	uc := &fakeUsecase{searchErr: domain.ErrEmptyQuery}
	mux := newTestMux(uc)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": ""}`))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_InvalidBody(t *testing.T) {
	mux := newTestMux(&fakeUsecase{})

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth_OK(t *testing.T) {
	uc := &fakeUsecase{
		healthResp: domain.HealthResponse{
			Status:         "healthy",
			ModelLoaded:    true,
			TotalDocuments: 3,
		},
	}
	mux := newTestMux(uc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.ModelLoaded)
}
