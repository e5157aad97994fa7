// Package vectorize is the quota-metered shim over a remote vector index.
// The client exposes the same call surface as the index it shadows, so
// callers need no branching to use either; every operation travels as one
// JSON RPC to the binding proxy, which enforces the tenant's quota.
package vectorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Vector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type QueryOptions struct {
	TopK           int                    `json:"topK,omitempty"`
	Filter         map[string]interface{} `json:"filter,omitempty"`
	ReturnValues   bool                   `json:"returnValues,omitempty"`
	ReturnMetadata bool                   `json:"returnMetadata,omitempty"`
}

type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Values   []float32              `json:"values,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type QueryResult struct {
	Count   int     `json:"count"`
	Matches []Match `json:"matches"`
}

type MutationResult struct {
	MutationID string `json:"mutationId"`
	Count      int    `json:"count"`
}

type IndexInfo struct {
	Name        string `json:"name"`
	Dimensions  int    `json:"dimensions"`
	Metric      string `json:"metric"`
	VectorCount int64  `json:"vectorCount"`
}

type Client struct {
	proxyURL   string
	indexName  string
	httpClient *http.Client
}

// NewClient binds a client to one index behind the proxy at proxyURL.
func NewClient(proxyURL, indexName string) *Client {
	return &Client{
		proxyURL:  proxyURL,
		indexName: indexName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rpcRequest struct {
	Operation string      `json:"operation"`
	IndexName string      `json:"index_name"`
	Params    interface{} `json:"params"`
}

type quotaResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	ResetIn int64  `json:"resetIn"`
}

func (c *Client) Query(ctx context.Context, vector []float32, opts QueryOptions) (*QueryResult, error) {
	params := map[string]interface{}{
		"vector":  vector,
		"options": opts,
	}

	var result QueryResult
	if err := c.call(ctx, "query", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Upsert(ctx context.Context, vectors []Vector) (*MutationResult, error) {
	params := map[string]interface{}{
		"vectors": vectors,
	}

	var result MutationResult
	if err := c.call(ctx, "upsert", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Insert is an alias for Upsert; the proxy treats both identically.
func (c *Client) Insert(ctx context.Context, vectors []Vector) (*MutationResult, error) {
	return c.Upsert(ctx, vectors)
}

func (c *Client) DeleteByIDs(ctx context.Context, ids []string) (*MutationResult, error) {
	params := map[string]interface{}{
		"ids": ids,
	}

	var result MutationResult
	if err := c.call(ctx, "deleteByIds", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetByIDs(ctx context.Context, ids []string) ([]Vector, error) {
	params := map[string]interface{}{
		"ids": ids,
	}

	var vectors []Vector
	if err := c.call(ctx, "getByIds", params, &vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (c *Client) Describe(ctx context.Context) (*IndexInfo, error) {
	var info IndexInfo
	if err := c.call(ctx, "describe", map[string]interface{}{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) call(ctx context.Context, operation string, params, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		Operation: operation,
		IndexName: c.indexName,
		Params:    params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &OperationError{Op: operation, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return quotaErrorFrom(resp.Body)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return operationErrorFrom(operation, resp.Body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &OperationError{Op: operation, Message: fmt.Sprintf("invalid response: %v", err)}
	}

	return nil
}

func quotaErrorFrom(body io.Reader) error {
	var q quotaResponse
	// A malformed 429 body still yields a usable quota error.
	json.NewDecoder(body).Decode(&q)

	if q.Code == "" {
		q.Code = DefaultQuotaCode
	}

	return &QuotaError{
		Code:    q.Code,
		Message: q.Message,
		ResetIn: q.ResetIn,
	}
}

func operationErrorFrom(operation string, body io.Reader) error {
	raw, _ := io.ReadAll(body)

	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		return &OperationError{Op: operation, Message: e.Error}
	}

	return &OperationError{Op: operation, Message: string(raw)}
}
