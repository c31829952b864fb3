package api

import (
	"fmt"
	"net/http"
)

// Kind is the category of a failed API call. The set is closed: callers
// switch over it rather than inspecting error text.
type Kind int

const (
	// KindGeneric covers every failure without a more specific kind,
	// including network errors and unexpected HTTP statuses.
	KindGeneric Kind = iota

	// KindAuthorization means the credentials lack permission (HTTP 403).
	KindAuthorization

	// KindNotFound means the endpoint or object does not exist (HTTP 404).
	KindNotFound

	// KindValidation means the request payload was rejected (HTTP 400, 422).
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not-found"
	case KindValidation:
		return "validation"
	default:
		return "generic"
	}
}

// Error is returned for every failed API call made by HTTPClient.
type Error struct {
	Kind       Kind
	Method     string
	Endpoint   string
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Err        error // underlying transport error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api: %s %s: HTTP %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %s %s: %s", e.Method, e.Endpoint, e.Message)
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// kindForStatus maps an HTTP status code to its error kind.
func kindForStatus(code int) Kind {
	switch code {
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindGeneric
	}
}
