// Package gateway talks to the leasing endpoint. Every call is a single JSON
// POST; transport failures and non-2xx statuses collapse into NetworkError.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/homewiz/lease-concierge/backend/internal/model/chat"
	"github.com/homewiz/lease-concierge/backend/internal/model/onboarding"
)

// DefaultEndpoint is the hosted leasing assistant.
const DefaultEndpoint = "https://project-xl9a.onrender.com/book"

const maxErrorBody = 4 << 10

// NetworkError is the single failure shape of the gateway.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client posts JSON bodies to one endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Post sends body as JSON and returns the raw response body of a 2xx reply.
func (c *Client) Post(ctx context.Context, op string, body any) ([]byte, error) {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("endpoint rejected request",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return data, nil
}

// Book submits a tour request. The response body carries nothing the caller
// needs.
func (c *Client) Book(ctx context.Context, booking onboarding.Booking) error {
	_, err := c.Post(ctx, "booking", booking)
	return err
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

// Reply forwards a free-form message. The endpoint keeps its own context, so
// history is not sent. An empty string means the endpoint had no reply.
func (c *Client) Reply(ctx context.Context, _ []chat.Message, message string) (string, error) {
	data, err := c.Post(ctx, "message", messageRequest{Message: message})
	if err != nil {
		return "", err
	}

	var out messageResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return "", &NetworkError{Op: "message", Err: fmt.Errorf("decode reply: %w", err)}
	}
	return out.Reply, nil
}
