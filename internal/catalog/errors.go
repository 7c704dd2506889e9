package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrBrandNameRequired is returned before any request is sent when a brand
// would be created with a blank name.
var ErrBrandNameRequired = errors.New("brand name is required")

// APIError is a non-2xx answer from the catalog API. Error() returns the
// message meant for the user.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// errorResponse is the error body shape of the catalog API. Detail is a
// string for domain errors and a list for request validation errors.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// errorFromResponse builds an *APIError from the response body's detail
// field, falling back to the given message.
func errorFromResponse(resp *http.Response, fallback string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	detail := fallback
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && len(er.Detail) > 0 {
		var s string
		if err := json.Unmarshal(er.Detail, &s); err == nil && s != "" {
			detail = s
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

// statusError reports a failure using only the HTTP status text.
func statusError(resp *http.Response, prefix string) error {
	return &APIError{StatusCode: resp.StatusCode, Detail: prefix + ": " + http.StatusText(resp.StatusCode)}
}

// StatusCode extracts the HTTP status of an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
