package analysisapi

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

	"github.com/tinytelemetry/printwatch/internal/model"
)

// Client implements model.AnalysisService over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept as-is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client rooted at baseURL. Every request is bounded by timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("analysisapi: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("analysisapi: base url %q must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("analysisapi: base url %q has no host", baseURL)
	}
	if timeout <= 0 {
		timeout = model.DefaultRequestTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call performs one request and decodes a 2xx body into dest when dest is non-nil.
func (c *Client) call(ctx context.Context, method, path string, body interface{}, dest interface{}) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("analysisapi: marshal %s body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("analysisapi: build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.ServiceError{Kind: model.ErrUnreachable, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &model.ServiceError{Kind: model.ErrUnreachable, Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var status StatusResponse
		_ = json.Unmarshal(data, &status)
		return &model.ServiceError{
			Kind:       model.ErrRejected,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    status.Error,
		}
	}

	if dest != nil {
		if err := json.Unmarshal(data, dest); err != nil {
			return &model.ServiceError{Kind: model.ErrMalformed, Op: op, StatusCode: resp.StatusCode, Err: err}
		}
	}
	return nil
}

// Probe checks that the state endpoint answers with a success status.
func (c *Client) Probe(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, PathAnalysisState, nil, nil)
}

func (c *Client) AnalysisState(ctx context.Context) (model.AnalysisState, error) {
	var result model.AnalysisState
	err := c.call(ctx, http.MethodGet, PathAnalysisState, nil, &result)
	return result, err
}

func (c *Client) CurrentFrame(ctx context.Context) (model.FrameData, error) {
	var result model.FrameData
	err := c.call(ctx, http.MethodGet, PathCurrentFrame, nil, &result)
	return result, err
}

func (c *Client) StartAnalysis(ctx context.Context, videoPath string) error {
	return c.call(ctx, http.MethodPost, PathStartAnalysis, StartRequest{VideoPath: videoPath}, nil)
}

func (c *Client) PauseAnalysis(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, PathPauseAnalysis, nil, nil)
}

func (c *Client) StopAnalysis(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, PathStopAnalysis, nil, nil)
}

func (c *Client) ResetCounters(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, PathResetCounters, nil, nil)
}

func (c *Client) SingleStep(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, PathSingleStep, nil, nil)
}

func (c *Client) DefectDetails(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, PathDefectDetails, nil, nil)
}

var _ model.AnalysisService = (*Client)(nil)
