package openstack

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEndpointDiscovery marks a failure to find a service endpoint in the catalog.
var ErrEndpointDiscovery = errors.New("endpoint discovery failed")

// APIError is an error returned by the OpenStack API. StatusCode is zero when
// the request never produced an HTTP response.
type APIError struct {
	StatusCode int
	Op         string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFound returns a 404 APIError for op.
func NewNotFound(op string) error {
	return &APIError{StatusCode: http.StatusNotFound, Op: op, Err: errors.New("resource not found")}
}

// StatusCode extracts the HTTP status code from err, if it carries one.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return apiErr.StatusCode, true
	}
	return 0, false
}

func hasStatus(err error, codes ...int) bool {
	code, ok := StatusCode(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict checks if an error indicates the resource is busy or in use.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// IsForbidden checks if the caller lacks permission for the operation.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsUnauthorized checks for authentication or authorization failures.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized, http.StatusForbidden)
}

// IsEndpointDiscovery checks if the service catalog had no usable endpoint.
func IsEndpointDiscovery(err error) bool {
	return errors.Is(err, ErrEndpointDiscovery)
}
