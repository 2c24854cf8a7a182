// Package qdrant is a small REST client for the Qdrant operations the
// page index needs: one multivector collection, upserts, MaxSim queries
// and per-document deletes.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ezgisubasi/multimodal-research-agent/internal/domain"

	"github.com/google/uuid"
)

const vectorSize = 128

type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, collection string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PagePoint is one indexed PDF page: a ColPali multivector plus payload.
type PagePoint struct {
	DocumentID string
	PageNumber int
	PDFPath    string
	TotalPages int
	Vector     [][]float32
}

type vectorParams struct {
	Size              int                `json:"size"`
	Distance          string             `json:"distance"`
	MultivectorConfig *multivectorConfig `json:"multivector_config,omitempty"`
}

type multivectorConfig struct {
	Comparator string `json:"comparator"`
}

type pointStruct struct {
	ID      string         `json:"id"`
	Vector  [][]float32    `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type queryRequest struct {
	Query       [][]float32 `json:"query"`
	Limit       int         `json:"limit"`
	WithPayload bool        `json:"with_payload"`
}

type queryResponse struct {
	Result struct {
		Points []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

type deleteByFilterRequest struct {
	Filter filter `json:"filter"`
}

type filter struct {
	Must []condition `json:"must"`
}

type condition struct {
	Key   string `json:"key"`
	Match match  `json:"match"`
}

type match struct {
	Value any `json:"value"`
}

// EnsureCollection creates the multivector collection if it does not exist.
func (c *Client) EnsureCollection(ctx context.Context) error {
	err := c.makeRequest(ctx, http.MethodGet, "/collections/"+c.collection, nil, nil)
	if err == nil {
		return nil
	}

	body := map[string]any{
		"vectors": vectorParams{
			Size:     vectorSize,
			Distance: "Cosine",
			MultivectorConfig: &multivectorConfig{
				Comparator: "max_sim",
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal collection config: %w", err)
	}

	if err := c.makeRequest(ctx, http.MethodPut, "/collections/"+c.collection, payload, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// UpsertPages writes one point per PDF page.
func (c *Client) UpsertPages(ctx context.Context, points []PagePoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]pointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, pointStruct{
			ID:     uuid.NewString(),
			Vector: p.Vector,
			Payload: map[string]any{
				"document_id": p.DocumentID,
				"page_number": p.PageNumber,
				"pdf_path":    p.PDFPath,
				"total_pages": p.TotalPages,
			},
		})
	}

	payload, err := json.Marshal(map[string]any{"points": structs})
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	if err := c.makeRequest(ctx, http.MethodPut, path, payload, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Query runs a MaxSim multivector search and maps payloads back into
// search results.
func (c *Client) Query(ctx context.Context, vector [][]float32, topK int) ([]domain.SearchResult, error) {
	payload, err := json.Marshal(queryRequest{
		Query:       vector,
		Limit:       topK,
		WithPayload: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	var resp queryResponse
	path := fmt.Sprintf("/collections/%s/points/query", c.collection)
	if err := c.makeRequest(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		r := domain.SearchResult{Score: p.Score}
		if v, ok := p.Payload["document_id"].(string); ok {
			r.PaperID = v
		}
		if v, ok := p.Payload["page_number"].(float64); ok {
			r.PageNumber = int(v)
		}
		if v, ok := p.Payload["pdf_path"].(string); ok {
			r.PDFPath = v
		}
		results = append(results, r)
	}

	return results, nil
}

// DeleteByDocument removes every page point of one document.
func (c *Client) DeleteByDocument(ctx context.Context, documentID string) error {
	payload, err := json.Marshal(deleteByFilterRequest{
		Filter: filter{
			Must: []condition{
				{Key: "document_id", Match: match{Value: documentID}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal delete filter: %w", err)
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	if err := c.makeRequest(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

func (c *Client) makeRequest(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
