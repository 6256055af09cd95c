package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"social-sync/internal/domain"
	"social-sync/internal/infra/metrics"
)

// Client типизированный клиент REST API платформы.
// Повторов нет: каждая операция делает ровно один запрос.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SetToken задаёт токен сессии для последующих запросов.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) send(ctx context.Context, method, op, endpoint string, body any) error {
	req, err := c.newRequest(ctx, method, endpoint, nil, body)
	if err != nil {
		return &domain.APIError{Message: fmt.Sprintf("%s: %v", op, err), Err: err}
	}
	return c.do(op, req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Request, error) {
	// endpoint приходит уже экранированным: id проходят через url.PathEscape.
	resolved := *c.baseURL
	rawPath := strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + endpoint
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: %w", endpoint, err)
	}
	resolved.Path, resolved.RawPath = decoded, rawPath
	if len(query) > 0 {
		resolved.RawQuery = query.Encode()
	}
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(op string, req *http.Request, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest("api", op, req.URL.Host, start, err)
		if err != nil {
			c.log.Debug().Err(err).Str("op", op).Str("path", req.URL.Path).Msg("api: request failed")
		}
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.APIError{Message: fmt.Sprintf("%s: request failed: %v", op, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return mapAPIError(resp.StatusCode, data)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &domain.APIError{Status: resp.StatusCode, Message: fmt.Sprintf("%s: decode response: %v", op, err), Err: err}
	}
	return nil
}

// mapAPIError строит ошибку из тела ответа: сообщение сервера, если его удаётся разобрать, иначе "HTTP <status>".
func mapAPIError(status int, body []byte) error {
	var parsed apiError
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		if msg := strings.TrimSpace(parsed.Error); msg != "" {
			return &domain.APIError{Status: status, Message: msg}
		}
		if msg := strings.TrimSpace(parsed.Message); msg != "" {
			return &domain.APIError{Status: status, Message: msg}
		}
	}
	return &domain.APIError{Status: status, Message: fmt.Sprintf("HTTP %d", status)}
}

// decodeFlexible распаковывает как голые ответы, так и ответы вида {"data": ...}.
func decodeFlexible[T any](raw json.RawMessage) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}
	if trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if json.Unmarshal(trimmed, &probe) == nil {
			if inner, ok := probe["data"]; ok {
				trimmed = bytes.TrimSpace(inner)
				if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
					return out, nil
				}
			}
		}
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, err
	}
	return out, nil
}

func call[T any](ctx context.Context, c *Client, method, op, endpoint string, query url.Values, body any) (T, error) {
	var zero T
	req, err := c.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return zero, &domain.APIError{Message: fmt.Sprintf("%s: %v", op, err), Err: err}
	}
	var raw json.RawMessage
	if err := c.do(op, req, &raw); err != nil {
		return zero, err
	}
	out, err := decodeFlexible[T](raw)
	if err != nil {
		return zero, &domain.APIError{Message: fmt.Sprintf("%s: decode response: %v", op, err), Err: err}
	}
	return out, nil
}
