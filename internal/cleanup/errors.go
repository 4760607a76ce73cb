package cleanup

import (
	"errors"
	"net/http"
	"strings"

	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
)

// ErrorClass buckets API errors by how the engine reacts to them.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassNotFound
	ClassConflict
	ClassUnauthorized
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNotFound:
		return "not-found"
	case ClassConflict:
		return "conflict"
	case ClassUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// maxReasonLength bounds failure messages kept in outcomes.
const maxReasonLength = 200

// Classify maps err onto an ErrorClass. Typed status codes win; message
// matching is only a fallback for errors that carry no status.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, errPending) {
		return ClassConflict
	}
	if code, ok := openstack.StatusCode(err); ok {
		switch code {
		case http.StatusNotFound:
			return ClassNotFound
		case http.StatusConflict:
			return ClassConflict
		case http.StatusUnauthorized, http.StatusForbidden:
			return ClassUnauthorized
		default:
			return ClassUnknown
		}
	}
	return classifyMessage(err.Error())
}

func classifyMessage(msg string) ErrorClass {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "404"), strings.Contains(lower, "not found"), strings.Contains(msg, "NotFound"):
		return ClassNotFound
	case strings.Contains(msg, "409"), strings.Contains(lower, "conflict"), strings.Contains(lower, "in use"):
		return ClassConflict
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(lower, "forbidden"), strings.Contains(lower, "unauthorized"):
		return ClassUnauthorized
	default:
		return ClassUnknown
	}
}

// reason renders err for an outcome, truncated for display.
func reason(err error) string {
	if err == nil {
		return ""
	}
	return resource.Truncate(err.Error(), maxReasonLength)
}

// errPending marks a load balancer in a PENDING_* provisioning state. It
// classifies as a conflict so the load balancer backoff applies.
var errPending = errors.New("load balancer is in a pending state")
