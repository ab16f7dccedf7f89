// Package sdk is the typed HTTP client for a ragdex server.
//
//	client := sdk.New("http://localhost:8080", sdk.WithAPIKey(key))
//	client.Ingest(ctx, sdk.IngestRequest{ID: "notes", Text: text})
//	res, _ := client.Search(ctx, sdk.SearchRequest{Query: "rotate api key"})
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Code classifies an API error.
type Code string

// API error codes.
const (
	CodeBadRequest            Code = "bad_request"
	CodeValidationFailed      Code = "validation_failed"
	CodeInvalidArgument       Code = "invalid_argument"
	CodeEmptyDocument         Code = "empty_document"
	CodeNotFound              Code = "not_found"
	CodeDocumentNotFound      Code = "document_not_found"
	CodeUnsupportedFormat     Code = "unsupported_format"
	CodeIndexVersionMismatch  Code = "index_version_mismatch"
	CodeEmbeddingUnavailable  Code = "embedding_unavailable"
	CodeGenerationUnavailable Code = "generation_unavailable"
	CodeUnauthorized          Code = "unauthorized"
	CodeInternalError         Code = "internal_error"
)

// APIError is a non-2xx response decoded into its error envelope.
// Want and Got are set for index_version_mismatch only.
type APIError struct {
	Status  int
	Code    Code
	Message string
	Want    string
	Got     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (http %d)", e.Code, e.Message, e.Status)
}

// Client talks to one ragdex server.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sends the key as a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the transport, for timeouts or proxies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ingest submits a document for chunking and indexing. Re-ingesting an
// existing ID replaces its chunks.
func (c *Client) Ingest(ctx context.Context, doc IngestRequest) (IngestReport, error) {
	var report IngestReport
	resp, err := c.do(ctx, http.MethodPost, "/v1/documents", doc, &report)
	if err != nil {
		return IngestReport{}, err
	}
	if v := resp.Header.Get("X-Embedding-Tokens"); v != "" {
		report.EmbeddingTokens, _ = strconv.Atoi(v)
	}
	return report, nil
}

// Document fetches a stored document.
func (c *Client) Document(ctx context.Context, id string) (DocumentInfo, error) {
	var info DocumentInfo
	_, err := c.do(ctx, http.MethodGet, "/v1/documents/"+url.PathEscape(id), nil, &info)
	return info, err
}

// DeleteDocument removes a document and its chunks from the indexes.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/documents/"+url.PathEscape(id), nil, nil)
	return err
}

// Search runs hybrid retrieval for one query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var out SearchResponse
	_, err := c.do(ctx, http.MethodPost, "/v1/search", req, &out)
	return out, err
}

// Answer retrieves context for the query and generates a grounded
// answer, or refuses when the evidence is too weak.
func (c *Client) Answer(ctx context.Context, req AnswerRequest) (AnswerResponse, error) {
	var out AnswerResponse
	_, err := c.do(ctx, http.MethodPost, "/v1/answers", req, &out)
	return out, err
}

// Health reports component health. The report is returned for both 200
// and 503 so callers can see which check failed.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthReport{}, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return HealthReport{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthReport{}, c.decodeError(resp)
	}
	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthReport{}, fmt.Errorf("decode: %w", err)
	}
	return report, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	}
	return resp, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: CodeInternalError}
	var envelope struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
		Want    string `json:"want"`
		Got     string `json:"got"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Code != "" {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Message
		apiErr.Want = envelope.Want
		apiErr.Got = envelope.Got
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
