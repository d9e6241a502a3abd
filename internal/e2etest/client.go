package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/justinas/nosurf"
	"github.com/myrjola/ace/internal/errors"
)

// Client talks to the JSON API and takes care of the CSRF token for unsafe requests.
type Client struct {
	client    *http.Client
	url       string
	csrfToken string
}

// NewClient creates a client for the server at url that keeps cookies between requests.
func NewClient(url string) (*Client, error) {
	jar, err := newLoopbackJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client:    &http.Client{Jar: jar}, //nolint:exhaustruct // defaults are fine in tests
		url:       url,
		csrfToken: "",
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	for {
		resp, err := c.Get(ctx, urlPath)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response. The CSRF token sent by the server is remembered.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, urlPath, nil)
}

// GetJSON fetches urlPath and decodes the response body into v regardless of the status code.
func (c *Client) GetJSON(ctx context.Context, urlPath string, v any) (int, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return 0, err
	}
	return decodeResponse(resp, v)
}

// PostJSON posts body as JSON to urlPath with the CSRF token and decodes the response into v.
//
// When no token is known yet, one is fetched from /api/healthy first.
func (c *Client) PostJSON(ctx context.Context, urlPath string, body any, v any) (int, error) {
	if c.csrfToken == "" {
		resp, err := c.Get(ctx, "/api/healthy")
		if err != nil {
			return 0, errors.Wrap(err, "fetch CSRF token")
		}
		_ = resp.Body.Close()
	}
	return c.PostJSONWithToken(ctx, urlPath, c.csrfToken, body, v)
}

// PostJSONWithToken is PostJSON with an explicit CSRF token. An empty token sends none.
func (c *Client) PostJSONWithToken(ctx context.Context, urlPath, token string, body any, v any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, errors.Wrap(err, "marshal request body")
	}
	req, err := c.newRequestWithContext(ctx, http.MethodPost, urlPath, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(nosurf.HeaderName, token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "do request")
	}
	c.rememberToken(resp)
	return decodeResponse(resp, v)
}

// CSRFToken returns the last token the server sent.
func (c *Client) CSRFToken() string {
	return c.csrfToken
}

func (c *Client) do(ctx context.Context, method, urlPath string, body io.Reader) (*http.Response, error) {
	req, err := c.newRequestWithContext(ctx, method, urlPath, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request", slog.String("method", method), slog.String("path", urlPath))
	}
	c.rememberToken(resp)
	return resp, nil
}

func (c *Client) rememberToken(resp *http.Response) {
	if token := resp.Header.Get(nosurf.HeaderName); token != "" {
		c.csrfToken = token
	}
}

func decodeResponse(resp *http.Response, v any) (int, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	if v == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, errors.Wrap(err, "decode response body", slog.Int("status", resp.StatusCode))
	}
	return resp.StatusCode, nil
}

// newRequestWithContext creates a new HTTP request to the server that respects the given context.
func (c *Client) newRequestWithContext(
	ctx context.Context,
	method, urlPath string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return req, nil
}
