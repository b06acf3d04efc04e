package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "https://taskmanager-api.mounikanallamada.com"
	DefaultTimeout = 30 * time.Second
)

// TokenSource supplies the bearer credential for each request. An empty
// token means the request is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource

	// OnUnauthorized runs once for every 401 outside login, before the error is
	// returned to the caller.
	OnUnauthorized func()

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues REST calls against the task backend.
type Client struct {
	baseURL        string
	tokens         TokenSource
	onUnauthorized func()
	httpClient     *http.Client
	log            *slog.Logger
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:        base,
		tokens:         tokens,
		onUnauthorized: opts.OnUnauthorized,
		httpClient:     hc,
		log:            logger,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// newRequest builds a request with the credential current at call time.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := strings.TrimSpace(c.tokens.Token()); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// doJSON sends in (if non-nil) as a JSON body and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in any, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	return c.send(req, path, out)
}

func (c *Client) doForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	return c.send(req, path, out)
}

func (c *Client) send(req *http.Request, path string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed",
			"method", req.Method,
			"path", path,
			"request_id", req.Header.Get("X-Request-ID"),
			"err", err,
		)
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("api request",
		"method", req.Method,
		"path", path,
		"status", resp.StatusCode,
		"dur", time.Since(start),
		"request_id", req.Header.Get("X-Request-ID"),
	)

	// A 401 from the login endpoint means bad credentials, not an expired
	// session; the stored session is left alone.
	if resp.StatusCode == http.StatusUnauthorized && path != loginPath {
		c.log.Warn("unauthorized response; clearing session", "method", req.Method, "path", path)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &Error{Method: req.Method, Path: path, Status: resp.StatusCode, Detail: ParseDetail(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Method: req.Method, Path: path, Status: resp.StatusCode, Detail: ParseDetail(respBody)}
	}

	if out == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, path, err)
	}
	return nil
}
