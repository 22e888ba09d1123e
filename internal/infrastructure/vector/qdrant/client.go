// Package qdrant talks to a Qdrant instance over its REST API. Every owner
// gets a dedicated collection so search, listing and deletion are scoped by
// construction.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

const (
	defaultVectorSize = 768
	scrollPageSize    = 256
)

type Client struct {
	baseURL          string
	collectionPrefix string
	vectorSize       int
	httpClient       *http.Client

	ensureMu sync.Mutex
	ensured  map[int64]bool
}

type Options struct {
	// VectorSize must match the embedding model's output dimension.
	VectorSize int
	Timeout    time.Duration
	HTTPClient *http.Client
}

func New(baseURL, collectionPrefix string) *Client {
	return NewWithOptions(baseURL, collectionPrefix, Options{})
}

func NewWithOptions(baseURL, collectionPrefix string, options Options) *Client {
	vectorSize := options.VectorSize
	if vectorSize <= 0 {
		vectorSize = defaultVectorSize
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		collectionPrefix: collectionPrefix,
		vectorSize:       vectorSize,
		httpClient:       httpClient,
		ensured:          make(map[int64]bool),
	}
}

func (c *Client) collection(ownerID int64) string {
	return fmt.Sprintf("%s_%d", c.collectionPrefix, ownerID)
}

func (c *Client) EnsureCollection(ctx context.Context, ownerID int64) error {
	c.ensureMu.Lock()
	if c.ensured[ownerID] {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection(ownerID))
	status, body, err := c.do(ctx, http.MethodPut, url, reqBody)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection: %w", err)
	}
	// 409 means the collection already exists, which is the goal.
	if status != http.StatusConflict && status >= 300 {
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %d: %s", status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %d", status)
	}

	c.ensureMu.Lock()
	c.ensured[ownerID] = true
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d != %d", len(chunks), len(vectors))
	}

	ownerID := chunks[0].OwnerID
	if err := c.EnsureCollection(ctx, ownerID); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: chunkPayload(chunk),
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection(ownerID))
	status, _, err := c.do(ctx, http.MethodPut, url, map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("qdrant upsert status: %d", status)
	}
	return nil
}

func (c *Client) Search(
	ctx context.Context,
	ownerID int64,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RankedResult, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if !filter.Empty() {
		reqBody["filter"] = searchFilter(filter)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection(ownerID))
	status, body, err := c.do(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, domain.WrapError(domain.ErrCollectionNotFound, "qdrant search", fmt.Errorf("owner %d has no collection", ownerID))
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant search status: %d", status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.RankedResult, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.RankedResult{
			Chunk:      chunkFromPayload(r.Payload),
			Similarity: r.Score,
		})
	}
	return out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, ownerID int64, documentID string) error {
	reqBody := map[string]any{"filter": documentFilter(documentID)}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection(ownerID))
	status, _, err := c.do(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return fmt.Errorf("qdrant delete points: %w", err)
	}
	// No collection means no points to delete.
	if status == http.StatusNotFound {
		return nil
	}
	if status >= 300 {
		return fmt.Errorf("qdrant delete points status: %d", status)
	}
	return nil
}

// ListDocuments scrolls the owner's collection and groups points by document.
func (c *Client) ListDocuments(ctx context.Context, ownerID int64) ([]domain.DocumentSummary, error) {
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, c.collection(ownerID))

	summaries := make(map[string]*domain.DocumentSummary)
	var offset any
	for {
		reqBody := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": []string{payloadDocumentID, payloadFilename, payloadUploadedAt},
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		status, body, err := c.do(ctx, http.MethodPost, url, reqBody)
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll: %w", err)
		}
		if status == http.StatusNotFound {
			return []domain.DocumentSummary{}, nil
		}
		if status >= 300 {
			return nil, fmt.Errorf("qdrant scroll status: %d", status)
		}

		var scrollResp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := json.Unmarshal(body, &scrollResp); err != nil {
			return nil, fmt.Errorf("decode scroll response: %w", err)
		}

		for _, p := range scrollResp.Result.Points {
			id := payloadString(p.Payload, payloadDocumentID)
			if id == "" {
				continue
			}
			summary, ok := summaries[id]
			if !ok {
				summary = &domain.DocumentSummary{
					DocumentID: id,
					Filename:   payloadString(p.Payload, payloadFilename),
				}
				if raw := payloadString(p.Payload, payloadUploadedAt); raw != "" {
					if ts, err := time.Parse(time.RFC3339, raw); err == nil {
						summary.UploadedAt = ts
					}
				}
				summaries[id] = summary
			}
			summary.ChunkCount++
		}

		offset = scrollResp.Result.NextPageOffset
		if offset == nil {
			break
		}
	}

	out := make([]domain.DocumentSummary, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out, nil
}

func (c *Client) CountChunks(ctx context.Context, ownerID int64, documentID string) (int, error) {
	reqBody := map[string]any{
		"filter": documentFilter(documentID),
		"exact":  true,
	}

	url := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, c.collection(ownerID))
	status, body, err := c.do(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	if status == http.StatusNotFound {
		return 0, nil
	}
	if status >= 300 {
		return 0, fmt.Errorf("qdrant count status: %d", status)
	}

	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &countResp); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return countResp.Result.Count, nil
}

func (c *Client) do(ctx context.Context, method, url string, reqBody any) (int, []byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
