package resttemplate

// Response is the outcome of one dispatched request.
type Response struct {
	StatusCode int
	Header     *Header
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// ResponseWithBody carries the decoded payload. Body is only assigned when the
// server sent a non-blank payload; HasBody tells the two cases apart.
type ResponseWithBody[T any] struct {
	Response
	Body    T
	HasBody bool
}
