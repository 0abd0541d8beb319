package sessionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/resilience"
	"github.com/GriffinCanCode/interview-coach/internal/trace"
)

// Client defaults
const (
	DefaultTimeout = 15 * time.Second
	maxErrorBody   = 4096
)

// Client is an HTTP/JSON Session API client. Calls fail fast with NETWORK
// errors while the backend is unreachable.
type Client struct {
	base    string
	apiKey  string
	hc      *http.Client
	breaker *resilience.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Transport: tr, Timeout: timeout},
		breaker: resilience.New(resilience.SessionAPIConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type startRequest struct {
	PlanID  string `json:"plan_id"`
	Persona string `json:"persona"`
}

type answerRequest struct {
	Answer              string  `json:"answer"`
	ResponseTimeSeconds float64 `json:"response_time_seconds"`
}

// Start implements API.
func (c *Client) Start(ctx context.Context, planID, persona string) (*StartResult, error) {
	var out StartResult
	if err := c.call(ctx, "start", "/sessions", startRequest{PlanID: planID, Persona: persona}, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, apperrors.New(apperrors.Network, "session api returned no session id")
	}
	return &out, nil
}

// ConfirmConsent implements API.
func (c *Client) ConfirmConsent(ctx context.Context, sessionID string) error {
	return c.call(ctx, "consent", sessionPath(sessionID, "consent"), nil, nil)
}

// SubmitAnswer implements API.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, answer string, responseSeconds float64) (*AnswerResult, error) {
	var out AnswerResult
	body := answerRequest{Answer: answer, ResponseTimeSeconds: responseSeconds}
	if err := c.call(ctx, "submit_answer", sessionPath(sessionID, "answers"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Skip implements API.
func (c *Client) Skip(ctx context.Context, sessionID string) (*AnswerResult, error) {
	var out AnswerResult
	if err := c.call(ctx, "skip", sessionPath(sessionID, "skip"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pause implements API.
func (c *Client) Pause(ctx context.Context, sessionID string) error {
	return c.call(ctx, "pause", sessionPath(sessionID, "pause"), nil, nil)
}

// Resume implements API.
func (c *Client) Resume(ctx context.Context, sessionID string) error {
	return c.call(ctx, "resume", sessionPath(sessionID, "resume"), nil, nil)
}

// End implements API.
func (c *Client) End(ctx context.Context, sessionID string) error {
	return c.call(ctx, "end", sessionPath(sessionID, "end"), nil, nil)
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() resilience.State { return c.breaker.State() }

func sessionPath(id, action string) string {
	return "/sessions/" + url.PathEscape(id) + "/" + action
}

func (c *Client) call(ctx context.Context, op, path string, in, out any) error {
	ctx, span := trace.StartSpan(ctx, "session_api_"+op)
	defer span.End()
	span.SetAttr("path", path)

	err := c.breaker.Execute(func() error {
		return c.do(ctx, path, in, out)
	}, func(err error) bool { return apperrors.IsCode(err, apperrors.Network) })
	if errors.Is(err, resilience.ErrOpen) {
		err = apperrors.Wrap(err, apperrors.Network, "session api unavailable").WithMetadata("op", op)
	}
	if err != nil {
		trace.Logger(ctx).Warn("session api call failed", "op", op, "error", err)
	}
	return span.Fail(err)
}

func (c *Client) do(ctx context.Context, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperrors.Wrap(err, apperrors.Internal, "encode request")
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	trace.Inject(ctx, req)

	resp, err := c.hc.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Network, "session api unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.Network, "decode session api response")
	}
	return nil
}

func statusError(code int, body string) error {
	var app *apperrors.AppError
	switch {
	case code >= 500 || code == http.StatusTooManyRequests:
		app = apperrors.Newf(apperrors.Network, "session api returned %d", code)
	case code == http.StatusNotFound:
		app = apperrors.New(apperrors.NotFound, "session not found")
	case code == http.StatusConflict:
		app = apperrors.New(apperrors.AlreadyAnswered, "question already answered")
	default:
		app = apperrors.Newf(apperrors.InvalidArgument, "session api rejected request with %d", code)
	}
	if body != "" {
		app = app.WithMetadata("body", body)
	}
	return app
}
