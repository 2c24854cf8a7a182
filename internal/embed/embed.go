// Package embed talks to the ColPali embedder sidecar. The model itself
// runs out of process; this client only moves PDFs and queries across.
package embed

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

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type pagesResponse struct {
	Embeddings [][][]float32 `json:"embeddings"`
	NumPages   int           `json:"num_pages"`
}

type queryEmbedRequest struct {
	Query string `json:"query"`
}

type queryEmbedResponse struct {
	Embedding [][]float32 `json:"embedding"`
}

type healthResponse struct {
	ModelLoaded bool `json:"model_loaded"`
}

// EmbedPages renders and embeds every page of the PDF; the sidecar
// returns one multivector per page.
func (c *Client) EmbedPages(ctx context.Context, pdf io.Reader, filename string) ([][][]float32, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("copy pdf: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/pages", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp pagesResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	return resp.Embeddings, nil
}

// EmbedQuery embeds a free-text search query into a multivector.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([][]float32, error) {
	payload, err := json.Marshal(queryEmbedRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/embed/query", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp queryEmbedResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	return resp.Embedding, nil
}

// ModelLoaded reports whether the sidecar has its model in memory.
func (c *Client) ModelLoaded(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	var resp healthResponse
	if err := c.do(req, &resp); err != nil {
		return false
	}

	return resp.ModelLoaded
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("embedder HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode embedder response: %w", err)
		}
	}

	return nil
}
