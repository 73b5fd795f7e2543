// Package transport is the single outbound HTTP surface for all exchange
// clients. It attaches the process-wide default header set to every request
// and converts non-2xx responses into structured errors.
package transport

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/rxtech-lab/tide-trading/internal/version"
	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

// Request describes a single outbound HTTP call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPStatusError carries the status code and body text of a non-2xx
// response so callers can distinguish retryable server failures from
// permanent request errors.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Client wraps a resty client with the library's default headers.
type Client struct {
	rest *resty.Client
}

// NewClient creates a transport client carrying the identifying user-agent
// header on every request.
func NewClient() *Client {
	client := &Client{
		rest: resty.New(),
	}
	client.ResetDefaultHeaders()

	return client
}

// SetDefaultHeader adds a header sent with every subsequent request.
func (c *Client) SetDefaultHeader(key, value string) {
	c.rest.SetHeader(key, value)
}

// ResetDefaultHeaders clears the default header set as a unit and restores
// the identifying user agent.
func (c *Client) ResetDefaultHeaders() {
	c.rest.Header = map[string][]string{}
	c.rest.SetHeader("User-Agent", version.UserAgent())
	c.rest.SetHeader("Accept", "application/json")
}

// Get issues a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.Send(ctx, Request{
		Method: "GET",
		URL:    url,
	})
}

// Send issues the request and returns the response body. A non-2xx response
// is returned as an error carrying the status code and body text.
func (c *Client) Send(ctx context.Context, req Request) ([]byte, error) {
	r := c.rest.R().SetContext(ctx)

	for key, value := range req.Headers {
		r.SetHeader(key, value)
	}

	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNetworkTransport, err, "%s %s failed", req.Method, req.URL)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		statusErr := &HTTPStatusError{
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}

		return nil, errors.Wrapf(errors.ErrCodeHTTPStatus, statusErr, "%s %s", req.Method, req.URL)
	}

	return resp.Body(), nil
}
