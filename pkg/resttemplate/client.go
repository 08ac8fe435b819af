package resttemplate

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-resttemplate/pkg/httpclient"
)

// URLResolver rewrites a virtual URL ("scheme://ServiceName/path?query") into
// a dispatchable one. *resolver.Resolver implements it.
type URLResolver interface {
	ResolveURL(ctx context.Context, rawURL string) (string, error)
}

// Client dispatches requests addressed to logical service names. It holds no
// per-call state and is safe for concurrent use.
type Client struct {
	resolver  URLResolver
	transport httpclient.Transport
	codec     Codec
	defaults  *Header
	observers []Observer
	log       Logger
	now       func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithCodec replaces the JSON body codec.
func WithCodec(codec Codec) Option {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithDefaultHeader adds a header sent on every request. Per-call headers
// with the same name replace it.
func WithDefaultHeader(name string, values ...string) Option {
	return func(c *Client) { c.defaults.Add(name, values...) }
}

// WithObserver registers an observer notified after each dispatch.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = ensureLogger(log) }
}

// New builds a Client resolving through res and sending through transport.
func New(res URLResolver, transport httpclient.Transport, opts ...Option) *Client {
	c := &Client{
		resolver:  res,
		transport: transport,
		codec:     JSONCodec{},
		defaults:  &Header{},
		log:       noopLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send dispatches a pre-built request and returns status and headers only.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	resp, _, err := c.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SendForEntity dispatches req and decodes a non-blank payload into T.
func SendForEntity[T any](ctx context.Context, c *Client, req *Request) (*ResponseWithBody[T], error) {
	resp, payload, err := c.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &ResponseWithBody[T]{Response: *resp}
	if len(bytes.TrimSpace(payload)) == 0 {
		return out, nil
	}
	if err := c.codec.Unmarshal(payload, &out.Body); err != nil {
		return nil, &DecodeError{
			Type:    reflect.TypeFor[T]().String(),
			Snippet: bodySnippet(payload),
			Err:     err,
		}
	}
	out.HasBody = true
	return out, nil
}

// Get issues a GET and returns status and headers only.
func (c *Client) Get(ctx context.Context, url string, header *Header) (*Response, error) {
	return c.Send(ctx, newGet(url, header))
}

// Post issues a POST with body serialized by the codec.
func (c *Client) Post(ctx context.Context, url string, body any, header *Header) (*Response, error) {
	return c.Send(ctx, newWithBody(http.MethodPost, url, body, header))
}

// Put issues a PUT with body serialized by the codec.
func (c *Client) Put(ctx context.Context, url string, body any, header *Header) (*Response, error) {
	return c.Send(ctx, newWithBody(http.MethodPut, url, body, header))
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, url string, header *Header) (*Response, error) {
	return c.Send(ctx, newDelete(url, header))
}

// GetForEntity issues a GET and decodes the payload into T.
func GetForEntity[T any](ctx context.Context, c *Client, url string, header *Header) (*ResponseWithBody[T], error) {
	return SendForEntity[T](ctx, c, newGet(url, header))
}

// PostForEntity issues a POST and decodes the payload into T.
func PostForEntity[T any](ctx context.Context, c *Client, url string, body any, header *Header) (*ResponseWithBody[T], error) {
	return SendForEntity[T](ctx, c, newWithBody(http.MethodPost, url, body, header))
}

// PutForEntity issues a PUT and decodes the payload into T.
func PutForEntity[T any](ctx context.Context, c *Client, url string, body any, header *Header) (*ResponseWithBody[T], error) {
	return SendForEntity[T](ctx, c, newWithBody(http.MethodPut, url, body, header))
}

// DeleteForEntity issues a DELETE and decodes the payload into T.
func DeleteForEntity[T any](ctx context.Context, c *Client, url string, header *Header) (*ResponseWithBody[T], error) {
	return SendForEntity[T](ctx, c, newDelete(url, header))
}

// dispatch runs encode, resolve, send and returns the mapped response plus raw payload.
func (c *Client) dispatch(ctx context.Context, req *Request) (*Response, []byte, error) {
	if req == nil {
		return nil, nil, errors.New("request is nil")
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		return nil, nil, errors.New("request method is empty")
	}

	header := c.defaults.Clone()
	req.Header.Each(func(name string, values []string) {
		header.Set(name, values...)
	})

	var payload []byte
	if body, ok := req.Body(); ok {
		encoded, err := c.codec.Marshal(body)
		if err != nil {
			return nil, nil, &EncodeError{Err: err}
		}
		payload = encoded
		if !header.Has("Content-Type") {
			header.Set("Content-Type", c.codec.ContentType())
		}
	}

	start := c.now()
	evt := DispatchEvent{Method: method, URL: req.URL, At: start.UTC()}

	resolved, err := c.resolver.ResolveURL(ctx, req.URL)
	if err != nil {
		c.finish(ctx, evt, start, err)
		return nil, nil, err
	}
	evt.ResolvedURL = resolved

	raw, err := c.transport.Send(ctx, httpclient.Request{
		Method: method,
		URL:    resolved,
		Header: header.fields(),
		Body:   payload,
	})
	if err != nil {
		terr := &TransportError{Method: method, URL: resolved, Err: err}
		c.finish(ctx, evt, start, terr)
		return nil, nil, terr
	}

	resp := &Response{
		StatusCode: raw.StatusCode(),
		Header:     headerFromHTTP(raw.Header()),
	}
	evt.StatusCode = resp.StatusCode
	c.finish(ctx, evt, start, nil)
	return resp, raw.Body(), nil
}

func (c *Client) finish(ctx context.Context, evt DispatchEvent, start time.Time, err error) {
	evt.ElapsedMs = c.now().Sub(start).Milliseconds()
	if err != nil {
		evt.Error = err.Error()
		c.log.WarnObj("dispatch failed", "dispatch", evt)
	} else {
		c.log.DebugObj("dispatch completed", "dispatch", evt)
	}
	for _, o := range c.observers {
		o.ObserveDispatch(ctx, evt)
	}
}
