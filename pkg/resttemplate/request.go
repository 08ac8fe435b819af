package resttemplate

import "net/http"

// Request is the intent for a single call: verb, virtual URL, optional headers
// and an optional body object serialized at send time.
type Request struct {
	Method string
	URL    string
	Header *Header

	body    any
	hasBody bool
}

// NewRequest builds a request intent for method and the virtual url.
func NewRequest(method, url string) *Request {
	return &Request{Method: method, URL: url}
}

// WithHeader copies every entry of h onto the request, preserving order.
func (r *Request) WithHeader(h *Header) *Request {
	if h == nil {
		return r
	}
	if r.Header == nil {
		r.Header = &Header{}
	}
	h.Each(func(name string, values []string) {
		r.Header.Add(name, values...)
	})
	return r
}

// WithBody attaches a body object. A nil v still produces an encoded payload
// (JSON "null" with the default codec).
func (r *Request) WithBody(v any) *Request {
	r.body = v
	r.hasBody = true
	return r
}

// Body returns the attached body object and whether one was set.
func (r *Request) Body() (any, bool) {
	return r.body, r.hasBody
}

func newGet(url string, h *Header) *Request {
	return NewRequest(http.MethodGet, url).WithHeader(h)
}

func newWithBody(method, url string, body any, h *Header) *Request {
	return NewRequest(method, url).WithHeader(h).WithBody(body)
}

func newDelete(url string, h *Header) *Request {
	return NewRequest(http.MethodDelete, url).WithHeader(h)
}
