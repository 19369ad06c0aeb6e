// Package workflowapi is a client for the engine's workflow HTTP API. It
// stores workflow documents and starts, stops and inspects their runs.
package workflowapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/workflow"
)

// DefaultTimeout bounds one API call.
const DefaultTimeout = 30 * time.Second

// ErrNotFound is returned when the workflow does not exist.
var ErrNotFound = errors.New("workflow not found")

// APIError is a non-success response other than 404.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("workflow API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("workflow API returned %d: %s", e.StatusCode, e.Detail)
}

// Summary is one entry of the workflow list.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NodeCount int    `json:"nodeCount"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Client talks to the workflow API rooted at a base URL such as
// http://localhost:8000/api.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("API URL %q must use http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "workflowapi")
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type documentBody struct {
	Name      string              `json:"name"`
	Nodes     []workflow.Node     `json:"nodes"`
	Edges     []workflow.Edge     `json:"edges"`
	Variables []workflow.Variable `json:"variables"`
}

func bodyOf(doc workflow.Document) documentBody {
	b := documentBody{Name: doc.Name, Nodes: doc.Nodes, Edges: doc.Edges, Variables: doc.Variables}
	if b.Nodes == nil {
		b.Nodes = []workflow.Node{}
	}
	if b.Edges == nil {
		b.Edges = []workflow.Edge{}
	}
	if b.Variables == nil {
		b.Variables = []workflow.Variable{}
	}
	return b
}

type idResponse struct {
	ID string `json:"id"`
}

// Create stores doc as a new workflow and returns its id.
func (c *Client) Create(ctx context.Context, doc workflow.Document) (string, error) {
	var out idResponse
	if err := c.do(ctx, http.MethodPost, "/workflows", bodyOf(doc), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// List returns all stored workflows.
func (c *Client) List(ctx context.Context) ([]Summary, error) {
	var out []Summary
	if err := c.do(ctx, http.MethodGet, "/workflows", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one workflow document.
func (c *Client) Get(ctx context.Context, id string) (workflow.Document, error) {
	var raw []byte
	if err := c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id), nil, &raw); err != nil {
		return workflow.Document{}, err
	}
	doc, err := workflow.DecodeDocument(raw)
	if err != nil {
		return workflow.Document{}, fmt.Errorf("failed to decode workflow %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// Update replaces the stored workflow with doc.
func (c *Client) Update(ctx context.Context, id string, doc workflow.Document) error {
	return c.do(ctx, http.MethodPut, "/workflows/"+url.PathEscape(id), bodyOf(doc), nil)
}

// Delete removes a workflow.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/workflows/"+url.PathEscape(id), nil, nil)
}

// Execute starts a run. Telemetry for the run arrives over the bridge.
func (c *Client) Execute(ctx context.Context, id string, headless bool) error {
	body := map[string]any{"headless": headless}
	return c.do(ctx, http.MethodPost, "/workflows/"+url.PathEscape(id)+"/execute", body, nil)
}

// Stop asks the engine to stop a run.
func (c *Client) Stop(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/workflows/"+url.PathEscape(id)+"/stop", nil, nil)
}

// Status returns the latest run summary.
func (c *Client) Status(ctx context.Context, id string) (protocol.Result, error) {
	var out protocol.Result
	if err := c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id)+"/status", nil, &out); err != nil {
		return protocol.Result{}, err
	}
	return out, nil
}

// Import stores a serialized document as a new workflow.
func (c *Client) Import(ctx context.Context, data []byte) (string, error) {
	if _, err := workflow.DecodeDocument(data); err != nil {
		return "", err
	}
	var out idResponse
	if err := c.do(ctx, http.MethodPost, "/workflows/import", rawJSON(data), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Export returns the serialized document of a workflow.
func (c *Client) Export(ctx context.Context, id string) ([]byte, error) {
	var raw []byte
	if err := c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id)+"/export", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// rawJSON is a request body that is already encoded.
type rawJSON []byte

// do performs one call. A *[]byte out receives the raw response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	logger := c.logger.With("method", method, "path", path)

	var body io.Reader
	if in != nil {
		var payload []byte
		if raw, ok := in.(rawJSON); ok {
			payload = raw
		} else {
			b, err := sonic.Marshal(in)
			if err != nil {
				return fmt.Errorf("failed to encode request: %w", err)
			}
			payload = b
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger.Debug("Calling workflow API.")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug("Received workflow API response.", "status", resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, detail(data))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Detail: detail(data)}
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst = data
		return nil
	default:
		if err := sonic.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
}

// detail extracts the {"detail": "..."} message of an error response.
func detail(body []byte) string {
	var e struct {
		Detail any `json:"detail"`
	}
	if err := sonic.Unmarshal(body, &e); err != nil || e.Detail == nil {
		return strings.TrimSpace(string(body))
	}
	if s, ok := e.Detail.(string); ok {
		return s
	}
	return fmt.Sprint(e.Detail)
}
