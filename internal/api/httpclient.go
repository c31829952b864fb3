package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// DefaultBaseURL is the public Productboard API endpoint.
const DefaultBaseURL = "https://api.productboard.com"

// DefaultAPIVersion is sent in the X-Version header.
const DefaultAPIVersion = "1"

// maxErrorBody caps how much of an error response body is kept in messages.
const maxErrorBody = 512

// HTTPClient implements the Client interface over net/http.
type HTTPClient struct {
	http       *http.Client
	baseURL    string
	token      string
	apiVersion string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *HTTPClient) {
		c.token = token
	}
}

// WithAPIVersion sets the X-Version header value.
func WithAPIVersion(v string) ClientOption {
	return func(c *HTTPClient) {
		c.apiVersion = v
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a new Productboard API client.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate reports whether the client is usable at all: it needs a token and
// an absolute base URL.
func (c *HTTPClient) Validate() error {
	if c.token == "" {
		return errors.New("api: no API token configured")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("api: invalid base URL %q: %w", c.baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api: base URL %q is not absolute", c.baseURL)
	}
	return nil
}

// Get issues a GET request with optional query parameters.
func (c *HTTPClient) Get(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + params.Encode()
	}
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

// Post issues a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, body)
}

// Put issues a PUT request with a JSON body.
func (c *HTTPClient) Put(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, endpoint, body)
}

// Delete issues a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, endpoint string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil)
}

// do performs a single request and maps non-2xx responses to *Error.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindGeneric, Method: method, Endpoint: endpoint, Message: "marshal body: " + err.Error(), Err: err}
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Method: method, Endpoint: endpoint, Message: "create request: " + err.Error(), Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Version", c.apiVersion)
	httpReq.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Method: method, Endpoint: endpoint, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindGeneric, Method: method, Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{
			Kind:       kindForStatus(resp.StatusCode),
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
