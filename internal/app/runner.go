package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-resttemplate/internal/logger"
	"github.com/samvad-hq/samvad-resttemplate/pkg/resttemplate"
	"golang.org/x/sync/errgroup"
)

// Call describes one dispatch issued by the Runner.
type Call struct {
	Method string
	URL    string
	Header *resttemplate.Header
	// Body is sent verbatim as JSON when non-empty. POST and PUT without a
	// body send JSON null.
	Body json.RawMessage
}

// Result pairs a Call with its outcome. Response is nil when Err is set.
type Result struct {
	Index    int
	Call     Call
	Response *resttemplate.ResponseWithBody[json.RawMessage]
	Err      error
	Elapsed  time.Duration
}

// Runner executes batches of calls against a shared dispatcher with bounded
// concurrency.
type Runner struct {
	client      *resttemplate.Client
	concurrency int
	log         logger.Logger
}

// NewRunner creates a Runner. concurrency below 1 runs calls sequentially.
func NewRunner(client *resttemplate.Client, concurrency int, log logger.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Runner{client: client, concurrency: concurrency, log: log}
}

// Run dispatches every call and returns results in call order. Individual
// failures are reported per result; the returned error is only set when the
// runner itself cannot proceed.
func (r *Runner) Run(ctx context.Context, calls []Call) ([]Result, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("runner is not initialized")
	}

	results := make([]Result, len(calls))
	var g errgroup.Group
	g.SetLimit(r.concurrency)

	start := time.Now()
	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.runOne(ctx, i, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.log.InfoObj("batch completed", "batch_meta", map[string]any{
		"calls":       len(calls),
		"failed":      failed,
		"concurrency": r.concurrency,
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, idx int, call Call) Result {
	method := strings.ToUpper(strings.TrimSpace(call.Method))
	if method == "" {
		method = http.MethodGet
	}

	req := resttemplate.NewRequest(method, call.URL).WithHeader(call.Header)
	switch {
	case len(call.Body) > 0:
		req.WithBody(call.Body)
	case method == http.MethodPost || method == http.MethodPut:
		// same payload Client.Post/Put produce for a nil body
		req.WithBody(nil)
	}

	start := time.Now()
	resp, err := resttemplate.SendForEntity[json.RawMessage](ctx, r.client, req)
	return Result{
		Index:    idx,
		Call:     call,
		Response: resp,
		Err:      err,
		Elapsed:  time.Since(start),
	}
}

// Repeat returns n copies of call.
func Repeat(call Call, n int) []Call {
	if n < 1 {
		n = 1
	}
	out := make([]Call, n)
	for i := range out {
		out[i] = call
	}
	return out
}
