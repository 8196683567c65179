package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/drills/internal/models"
)

// RequestIDHeader carries a per-request correlation id
const RequestIDHeader = "X-Request-ID"

// Client is a Go SDK for the drills API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAPIKey sends the key as a bearer token on every request
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new drills API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned for responses with a non-2xx status
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// ListCategories returns category -> ordered topic names
func (c *Client) ListCategories(ctx context.Context) (models.Categories, error) {
	var result models.Categories
	if err := c.getJSON(ctx, "/api/categories", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListExercises returns topic -> ordered exercise summaries
func (c *Client) ListExercises(ctx context.Context) (models.ExercisesByTopic, error) {
	var result models.ExercisesByTopic
	if err := c.getJSON(ctx, "/api/exercises", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetExercise retrieves the raw starting code of an exercise
func (c *Client) GetExercise(ctx context.Context, topic, name string) (*models.ExerciseDetail, error) {
	var result models.ExerciseDetail
	if err := c.getJSON(ctx, exercisePath(topic, name, ""), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunExercise submits code for grading. Any JSON body is decoded whatever
// the status, so a server-side rejection comes back as RunResponse.Detail.
// A body that is not JSON is reported as an error.
func (c *Client) RunExercise(ctx context.Context, topic, name, code string) (*models.RunResponse, error) {
	body, err := json.Marshal(models.RunRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	status, respBody, err := c.doRequest(ctx, http.MethodPost, exercisePath(topic, name, "run"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var payload struct {
		models.RunResponse
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response (HTTP %d): %w", status, err)
	}

	result := payload.RunResponse
	result.Detail = detailText(payload.Detail)
	return &result, nil
}

// ResetStats deletes the pass statistics of an exercise
func (c *Client) ResetStats(ctx context.Context, topic, name string) error {
	status, respBody, err := c.doRequest(ctx, http.MethodDelete, exercisePath(topic, name, "stats"), nil)
	if err != nil {
		return err
	}
	return checkStatus(status, respBody)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	status, respBody, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	return checkStatus(status, respBody)
}

func (c *Client) getJSON(ctx context.Context, path string, dst interface{}) error {
	status, respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := checkStatus(status, respBody); err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, dst); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request and returns status and body
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

func checkStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	detail := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil {
		detail = detailText(payload.Detail)
	}

	return &APIError{StatusCode: status, Detail: detail}
}

func exercisePath(topic, name, action string) string {
	path := "/api/exercises/" + url.PathEscape(topic) + "/" + url.PathEscape(name)
	if action != "" {
		path += "/" + action
	}
	return path
}

// detailText renders an error detail. Validation errors arrive as a list of
// {loc, msg} objects and are joined as "loc: msg".
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var items []struct {
		Loc []interface{} `json:"loc"`
		Msg string        `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg == "" {
				continue
			}
			if len(item.Loc) == 0 {
				msgs = append(msgs, item.Msg)
				continue
			}
			loc := make([]string, len(item.Loc))
			for i, part := range item.Loc {
				loc[i] = fmt.Sprint(part)
			}
			msgs = append(msgs, strings.Join(loc, ".")+": "+item.Msg)
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
