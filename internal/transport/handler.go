package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ezgisubasi/multimodal-research-agent/internal/domain"
)

type Usecase interface {
	Upload(ctx context.Context, file io.Reader, filename string, size int64) (string, error)
	Status(ctx context.Context, documentID string) (domain.StatusResponse, error)
	Documents(ctx context.Context) (domain.ListDocumentsResponse, error)
	Delete(ctx context.Context, documentID string) (string, error)
	Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error)
	Health(ctx context.Context) (domain.HealthResponse, error)
}

type handler struct {
	maxUploadBytes int64
	usecase        Usecase
}

func NewHandler(maxUploadMb int64, uc Usecase) *handler {
	return &handler{
		maxUploadBytes: maxUploadMb << 20,
		usecase:        uc,
	}
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := slog.With(
		slog.String("request_id", RequestID(r.Context())),
		slog.String("handler", "upload"),
		slog.String("remote_addr", r.RemoteAddr),
	)

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.Error("ParseMultipartForm", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "unable to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("missing file field")
		writeError(w, http.StatusBadRequest, "field `file` is required")
		return
	}
	defer file.Close()

	logger = logger.With(slog.String("filename", header.Filename))

	docID, err := h.usecase.Upload(r.Context(), file, header.Filename, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedFileType):
			writeError(w, http.StatusBadRequest, domain.ErrUnsupportedFileType.Error())
		case errors.Is(err, domain.ErrFileTooLarge):
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("File too large. Max size: %dMB", h.maxUploadBytes>>20))
		default:
			logger.Error("Upload usecase", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "cannot create analysis task")
		}
		return
	}

	logger.Info("document accepted", slog.String("document_id", docID))

	writeJSON(w, http.StatusAccepted, domain.UploadResponse{
		DocumentID: docID,
		Filename:   header.Filename,
		Status:     domain.StatusProcessing,
		Message:    "Document uploaded successfully. Processing in background.",
	})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	documentID := strings.TrimPrefix(r.URL.Path, "/status/")
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "missing document ID")
		return
	}

	resp, err := h.usecase.Status(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		slog.Error("Status usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) documents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	resp, err := h.usecase.Documents(r.Context())
	if err != nil {
		slog.Error("Documents usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) documentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := slog.With(
		slog.String("request_id", RequestID(r.Context())),
		slog.String("handler", "delete"),
		slog.String("remote_addr", r.RemoteAddr),
	)

	documentID := strings.TrimPrefix(r.URL.Path, "/documents/")
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "missing document ID")
		return
	}

	filename, err := h.usecase.Delete(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		logger.Error("Delete usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot delete document")
		return
	}

	logger.Info("document deleted",
		slog.String("document_id", documentID),
		slog.String("filename", filename),
	)

	writeJSON(w, http.StatusOK, domain.MessageResponse{
		Message: fmt.Sprintf("Document '%s' deleted successfully", filename),
	})
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	logger := slog.With(
		slog.String("request_id", RequestID(r.Context())),
		slog.String("handler", "search"),
		slog.String("remote_addr", r.RemoteAddr),
	)

	defer r.Body.Close()

	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.usecase.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, domain.ErrEmptyQuery.Error())
			return
		}
		logger.Error("Search usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	resp, err := h.usecase.Health(r.Context())
	if err != nil {
		slog.Error("Health usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, domain.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", slog.String("error", err.Error()))
	}
}
