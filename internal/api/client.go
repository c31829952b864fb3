package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// Client is the interface for issuing requests against the Productboard REST API.
// Endpoints are paths relative to the API base URL (e.g. "/features").
type Client interface {
	// Get issues a GET request. params may be nil.
	Get(ctx context.Context, endpoint string, params url.Values) (*Response, error)

	// Post issues a POST request with body encoded as JSON.
	Post(ctx context.Context, endpoint string, body any) (*Response, error)

	// Put issues a PUT request with body encoded as JSON.
	Put(ctx context.Context, endpoint string, body any) (*Response, error)

	// Delete issues a DELETE request.
	Delete(ctx context.Context, endpoint string) (*Response, error)
}

// Response is a successful (2xx) API response.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// idEnvelope covers both response shapes the API uses for created objects:
// {"data":{"id":...}} and {"id":...}.
type idEnvelope struct {
	Data struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
	ID json.RawMessage `json:"id"`
}

// ID returns the identifier of the object carried in the response body, or
// "" if the body has none. String and numeric identifiers are supported.
func (r *Response) ID() string {
	if r == nil || len(r.Body) == 0 {
		return ""
	}
	var env idEnvelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return ""
	}
	if id := rawID(env.Data.ID); id != "" {
		return id
	}
	return rawID(env.ID)
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return n.String()
		}
	}
	return ""
}
