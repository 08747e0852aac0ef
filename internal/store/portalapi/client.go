// Package portalapi talks to the portal backend's message endpoint.
//
// The backend exposes a single POST /messages/ route multiplexed by an
// "action" field: "list" returns every record visible to a user and "send"
// appends one.
package portalapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/estuportal/portalchat/internal/logging"
	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/store"
)

const (
	messagesPath   = "/messages/"
	defaultRole    = "academician"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// ErrRejected is returned when the backend answers 200 with a non-success
// status envelope.
var ErrRejected = errors.New("portal rejected request")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("portal returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("portal returned HTTP %d: %s", e.Code, e.Body)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, without the /messages/ suffix.
	BaseURL string
	// Role is sent with list requests. Defaults to "academician".
	Role string
	// Timeout bounds each request when the context has no earlier deadline.
	Timeout time.Duration
	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64
	// Dial overrides the network dialer.
	Dial fasthttp.DialFunc
}

// Client implements store.MessageStore over HTTP.
type Client struct {
	endpoint string
	role     string
	timeout  time.Duration
	hc       *fasthttp.Client
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("portal base url required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("portal base url must be http(s): %q", cfg.BaseURL)
	}
	role := strings.TrimSpace(cfg.Role)
	if role == "" {
		role = defaultRole
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("portal rate limit must not be negative: %v", cfg.RateLimit)
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		// One send may go out right after a poll.
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 2)
	}

	return &Client{
		endpoint: base + messagesPath,
		role:     role,
		timeout:  timeout,
		hc: &fasthttp.Client{
			Name:         "portalchat",
			Dial:         cfg.Dial,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		limiter: limiter,
		logger:  logging.Component("portalapi"),
	}, nil
}

type listRequest struct {
	Action string `json:"action"`
	User   string `json:"user"`
	Role   string `json:"role,omitempty"`
}

type sendRequest struct {
	Action   string `json:"action"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// List fetches every record visible to user.
func (c *Client) List(ctx context.Context, user string) ([]models.MessageRecord, error) {
	if strings.TrimSpace(user) == "" {
		return nil, store.ErrMissingUser
	}
	body, err := c.post(ctx, listRequest{Action: "list", User: user, Role: c.role})
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(body))
	switch {
	case trimmed == "" || trimmed == "null":
		return nil, nil
	case strings.HasPrefix(trimmed, "{"):
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decode list response: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, logging.Redact(env.Message))
	}

	var records []models.MessageRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return records, nil
}

// Append sends one message.
func (c *Client) Append(ctx context.Context, sender, receiver, content string) error {
	body, err := c.post(ctx, sendRequest{Action: "send", Sender: sender, Receiver: receiver, Content: content})
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode send response: %w", err)
	}
	if env.Status != "" && !strings.EqualFold(env.Status, "success") {
		return fmt.Errorf("%w: %s", ErrRejected, logging.Redact(env.Message))
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(data)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.hc.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("post %s: %w", messagesPath, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	code := resp.StatusCode()
	c.logger.Debug().
		Int("status", code).
		Dur("elapsed", time.Since(start)).
		Int("bytes", len(resp.Body())).
		Msg("portal request")

	if code < 200 || code >= 300 {
		return nil, &StatusError{Code: code, Body: truncate(logging.Redact(strings.TrimSpace(string(resp.Body()))))}
	}
	// resp is released on return; copy the body out.
	return append([]byte(nil), resp.Body()...), nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}

var _ store.MessageStore = (*Client)(nil)
