package fbpost

import (
	"fmt"
	"strings"
)

// UnknownErrorMessage is used when a failed response carries no message.
const UnknownErrorMessage = "Unknown error occurred"

// ConfigurationError is returned when required credentials are missing
// before any request is made.
type ConfigurationError struct {
	Missing []string
	Reason  string
}

func (e ConfigurationError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("facebook configuration invalid: %s", e.Reason)
	case len(e.Missing) == 0:
		return "facebook credentials not configured"
	}
	return fmt.Sprintf("facebook credentials not configured (missing %s)", strings.Join(e.Missing, ", "))
}

// InvalidArgumentError captures malformed input passed to a post call.
type InvalidArgumentError struct {
	Reason string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}

// TransportError wraps a network, TLS or DNS failure.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// RemoteAPIError is a failure reported by the Graph API, either through a
// 4xx/5xx status or an error object in the body.
type RemoteAPIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       int
}

func (e RemoteAPIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = UnknownErrorMessage
	}
	return fmt.Sprintf("facebook API error: %s", msg)
}
