// Package api talks to the debate server: session control, topics, speech
// synthesis and the event streams.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 512

type Client struct {
	baseURL string
	http    *RetryableClient
	stream  *RetryableClient
	logger  *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Retry   RetryConfig
	Logger  *slog.Logger
}

func New(opts Options) *Client {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    NewRetryableClient(opts.Retry, opts.Timeout, opts.Logger),
		stream:  NewRetryableClient(opts.Retry, 0, opts.Logger),
		logger:  opts.Logger,
	}
}

func (c *Client) debateURL(sessionID, action string) string {
	return c.baseURL + "/api/debates/" + url.PathEscape(sessionID) + "/" + action
}

// ListTopics returns the available motions, optionally filtered by category.
func (c *Client) ListTopics(ctx context.Context, category string) ([]Topic, error) {
	u := c.baseURL + "/api/topics"
	if category != "" {
		u += "?category=" + url.QueryEscape(category)
	}
	var topics []Topic
	err := c.call(ctx, "list topics", http.MethodGet, u, nil, &topics)
	return topics, err
}

// InitSession creates a new debate session.
func (c *Client) InitSession(ctx context.Context, req InitRequest) (InitResult, error) {
	var res InitResult
	if err := c.call(ctx, "init session", http.MethodPost, c.baseURL+"/api/debates/init", req, &res); err != nil {
		return InitResult{}, err
	}
	if res.SessionID == "" {
		return InitResult{}, &ServerError{Op: "init session", Message: "no session id in response"}
	}
	return res, nil
}

func (c *Client) Start(ctx context.Context, sessionID string) (ControlResult, error) {
	return c.control(ctx, sessionID, "start")
}

func (c *Client) Pause(ctx context.Context, sessionID string) (ControlResult, error) {
	return c.control(ctx, sessionID, "pause")
}

func (c *Client) Resume(ctx context.Context, sessionID string) (ControlResult, error) {
	return c.control(ctx, sessionID, "resume")
}

func (c *Client) SkipToEnd(ctx context.Context, sessionID string) (ControlResult, error) {
	return c.control(ctx, sessionID, "skip-to-end")
}

func (c *Client) control(ctx context.Context, sessionID, action string) (ControlResult, error) {
	var res ControlResult
	if err := c.call(ctx, action, http.MethodPost, c.debateURL(sessionID, action), nil, &res); err != nil {
		return ControlResult{}, err
	}
	if strings.EqualFold(res.Status, "ERROR") {
		return res, &ServerError{Op: action, Message: res.Message}
	}
	return res, nil
}

// Complete asks the server to judge the debate.
func (c *Client) Complete(ctx context.Context, sessionID string) (CompleteResult, error) {
	var res CompleteResult
	err := c.call(ctx, "complete", http.MethodPost, c.debateURL(sessionID, "complete"), nil, &res)
	return res, err
}

// GenerateSpeech returns the synthesized audio clip for req.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "generate speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("speech.role", req.Role),
		attribute.String("speech.language", req.Language),
		attribute.Int("speech.text_length", len(req.Text)),
	)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, c.spanErr(span, fmt.Errorf("error marshalling JSON: %w", err))
	}
	hreq, err := NewRequestWithBody(ctx, http.MethodPost, c.baseURL+"/api/voice/generate-speech", body)
	if err != nil {
		return nil, c.spanErr(span, err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "audio/wav, audio/*")

	resp, err := c.http.DoWithRetry(ctx, hreq)
	if err != nil {
		return nil, c.spanErr(span, fmt.Errorf("generate speech: %w", err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, c.spanErr(span, fmt.Errorf("generate speech: %w", err))
	}
	clip, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.spanErr(span, fmt.Errorf("reading speech: %w", err))
	}
	span.SetAttributes(attribute.Int("response.bytes", len(clip)))
	return clip, nil
}

// StreamDebate opens the automated debate event stream. The caller owns the
// returned body.
func (c *Client) StreamDebate(ctx context.Context, sessionID, language string) (io.ReadCloser, error) {
	u := c.debateURL(sessionID, "stream-debate")
	if language != "" {
		u += "?language=" + url.QueryEscape(language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.openStream(ctx, "stream debate", req)
}

// SubmitArgument posts the user's argument and opens the response stream.
func (c *Client) SubmitArgument(ctx context.Context, sessionID string, arg ArgumentRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}
	req, err := NewRequestWithBody(ctx, http.MethodPost, c.debateURL(sessionID, "submit-argument-stream"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.openStream(ctx, "submit argument", req)
}

func (c *Client) openStream(ctx context.Context, op string, req *http.Request) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("request.url", req.URL.String()))

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.DoWithRetry(ctx, req)
	if err != nil {
		return nil, c.spanErr(span, fmt.Errorf("%s: %w", op, err))
	}
	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, c.spanErr(span, fmt.Errorf("%s: %w", op, err))
	}
	c.logger.Debug("stream opened", "op", op, "url", req.URL.Path)
	return resp.Body, nil
}

// call performs a JSON request/response round trip.
func (c *Client) call(ctx context.Context, op, method, u string, in, out any) error {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("request.method", method), attribute.String("request.url", u))

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return c.spanErr(span, fmt.Errorf("error marshalling JSON: %w", err))
		}
	}
	req, err := NewRequestWithBody(ctx, method, u, body)
	if err != nil {
		return c.spanErr(span, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.DoWithRetry(ctx, req)
	if err != nil {
		return c.spanErr(span, fmt.Errorf("%s: %w", op, err))
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))

	if err := checkStatus(resp); err != nil {
		return c.spanErr(span, fmt.Errorf("%s: %w", op, err))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return c.spanErr(span, fmt.Errorf("%s: decoding response: %w", op, err))
	}
	return nil
}

func (c *Client) spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn("api call failed", "error", err)
	return err
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
