package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

// maxBodyBytes bounds how much of a response we will buffer.
const maxBodyBytes = 16 << 20

var nextLinkRe = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="next"`)

// Response is a fully buffered HTTP response.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// NextLink extracts the rel="next" URL from the Link header, or "" when
// this was the last page.
func (r *Response) NextLink() string {
	m := nextLinkRe.FindStringSubmatch(r.Header.Get("Link"))
	if m == nil {
		return ""
	}
	return m[1]
}

// Decode unmarshals the body into out, surfacing a schema mismatch as a
// MalformedResponse failure that is never retried.
func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return entities.Malformed(err, "decode response body")
	}
	return nil
}

// Client is a thin wrapper around http.Client that buffers bodies and
// classifies failures into the retry taxonomy: connect/timeout/5xx are
// transient, 429 is a rate-limit signal carrying the Retry-After hint, and
// other non-2xx statuses surface as plain errors.
type Client struct {
	http *http.Client
	log  *zap.SugaredLogger
}

// NewClient builds a Client with the given per-request timeout.
func NewClient(log *zap.SugaredLogger, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		log:  log.Named("http"),
	}
}

// Get issues a GET request and classifies the outcome.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, header, nil)
}

// PostForm issues a POST with an urlencoded body and classifies the outcome.
func (c *Client) PostForm(ctx context.Context, url string, header http.Header, form []byte) (*Response, error) {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, http.MethodPost, url, header, bytes.NewReader(form))
}

// GetJSON issues a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) (*Response, error) {
	resp, err := c.Get(ctx, url, header)
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(out); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, url string, header http.Header, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, entities.Transient(err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, entities.Transient(err, "read response body")
	}

	out := &Response{Status: resp.StatusCode, Body: buf, Header: resp.Header}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &entities.RateLimitError{RetryAfter: retryAfter(resp.Header)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, entities.Transientf("%s %s: server error %d: %s",
			method, url, resp.StatusCode, snippet(buf))
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, errors.Newf("%s %s: status %d: %s", method, url, resp.StatusCode, snippet(buf))
	}
	return out, nil
}

// retryAfter reads the Retry-After hint in seconds; 0 means no hint given.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func snippet(body []byte) string {
	const n = 256
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}
