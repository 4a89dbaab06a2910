package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method  string
	URL     string
	Code    int
	Message string
	// Fields holds per-field validation messages, keyed by field name.
	Fields map[string]string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d from %s %s: %s", e.Code, e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("HTTP %d from %s %s", e.Code, e.Method, e.URL)
}

// Field returns the message for one field, or "" if it has none.
func (e *StatusError) Field(name string) string {
	return e.Fields[name]
}

// Kind classifies an API failure.
type Kind int

const (
	KindNone Kind = iota
	// KindValidation is a 422 carrying field errors.
	KindValidation
	// KindUnauthenticated is a 401, or a 419 when the CSRF token or session expired.
	KindUnauthenticated
	// KindServer is any other HTTP status.
	KindServer
	// KindTransport means no response was received.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// StatusPageExpired is the status Laravel uses for a CSRF token mismatch.
const StatusPageExpired = 419

// Classify reports which kind of failure err is.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var se *StatusError
	if !errors.As(err, &se) {
		return KindTransport
	}
	switch se.Code {
	case http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized, StatusPageExpired:
		return KindUnauthenticated
	}
	return KindServer
}

// ValidationError returns the 422 response behind err when it names at
// least one field. A 422 without field errors is not reported here; the
// caller has nothing to show next to the inputs.
func ValidationError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnprocessableEntity && len(se.Fields) > 0 {
		return se, true
	}
	return nil, false
}
