package httpclient

import (
	"context"
	"net/http"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// Client abstracts simple GET calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// HeaderField is one outgoing header line. Repeated names carry multiple values.
type HeaderField struct {
	Name  string
	Value string
}

// Request is a fully resolved outgoing request. A nil Body sends no payload.
type Request struct {
	Method string
	URL    string
	Header []HeaderField
	Body   []byte
}

// Transport sends a request and returns the buffered response.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}
