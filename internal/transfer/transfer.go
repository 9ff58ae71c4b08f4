// Package transfer performs outbound HTTP requests with a small, stateful
// request/response API: configure a client, send, then read the status and
// body back.
package transfer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("invalid URL")

// Client sends one configured request at a time. It is not safe for
// concurrent use.
type Client struct {
	url       string
	timeout   time.Duration
	verifyTLS bool
	headers   http.Header
	payload   string
	logger    zerolog.Logger

	code int
	body string
}

// New creates a client for rawURL with TLS verification on and no timeout.
func New(rawURL string, logger zerolog.Logger) (*Client, error) {
	c := &Client{
		verifyTLS: true,
		headers:   make(http.Header),
		logger:    logger.With().Str("component", "transfer").Logger(),
	}
	if err := c.SetURL(rawURL); err != nil {
		return nil, err
	}
	return c, nil
}

// SetURL changes the request URL.
func (c *Client) SetURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	c.url = u.String()
	return nil
}

// SetTimeout sets the limit for the whole transfer. Zero means none.
func (c *Client) SetTimeout(d time.Duration) {
	if d >= 0 {
		c.timeout = d
	}
}

// VerifyTLS toggles certificate verification.
func (c *Client) VerifyTLS(verify bool) {
	c.verifyTLS = verify
}

// AddHeaders merges headers into the request headers.
func (c *Client) AddHeaders(headers map[string]string) error {
	if len(headers) == 0 {
		return errors.New("no headers given")
	}
	for k, v := range headers {
		c.headers.Add(k, v)
	}
	return nil
}

// SetJSONBody encodes data as the request body and sets the JSON headers.
// Empty data is ignored.
func (c *Client) SetJSONBody(data map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding json body: %w", err)
	}
	c.headers.Set("Accept", "application/json")
	c.headers.Set("Content-Type", "application/json")
	c.headers.Set("Content-Length", strconv.Itoa(len(body)))
	c.SetRequestBody(string(body))
	return nil
}

// SetRequestBody sets a raw request body. An empty payload is ignored.
func (c *Client) SetRequestBody(payload string) {
	if payload == "" {
		return
	}
	c.payload = payload
}

// Get sends a GET and returns the response body.
func (c *Client) Get(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodGet)
}

// Post sends a POST with the configured body and returns the response body.
func (c *Client) Post(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodPost)
}

// ResponseCode returns the status code of the last response, 0 before any.
func (c *Client) ResponseCode() int {
	return c.code
}

// ResponseBody returns the body of the last response.
func (c *Client) ResponseBody() string {
	return c.body
}

// Payload returns the configured request body.
func (c *Client) Payload() string {
	return c.payload
}

func (c *Client) do(ctx context.Context, method string) (string, error) {
	var body io.Reader
	if c.payload != "" {
		body = bytes.NewBufferString(c.payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range c.headers {
		if k == "Content-Length" {
			continue
		}
		req.Header[k] = vs
	}

	client := &http.Client{
		Timeout: c.timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			//nolint:gosec // G402: verification is a caller choice.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !c.verifyTLS},
		},
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, c.url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	c.code = resp.StatusCode
	c.body = string(data)
	c.logger.Debug().
		Str("method", method).
		Str("url", c.url).
		Int("status", c.code).
		Dur("elapsed", time.Since(start)).
		Msg("transfer")
	return c.body, nil
}
