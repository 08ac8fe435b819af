package resttemplate

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-resttemplate/pkg/resolver"
)

// ErrNoInstanceFound is returned (wrapped) when a virtual URL names a service
// with no registered instance.
var ErrNoInstanceFound = resolver.ErrNoInstanceFound

// TransportError reports that the request could not be exchanged with the
// resolved instance (connection, timeout, protocol).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports that a non-empty payload did not fit the requested type.
type DecodeError struct {
	Type    string
	Snippet string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response into %s: %v (body: %s)", e.Type, e.Err, e.Snippet)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports that the request body object could not be serialized.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode request body: %v", e.Err) }

func (e *EncodeError) Unwrap() error { return e.Err }

func bodySnippet(body []byte) string {
	const maxLen = 256
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
