package resttemplate

import (
	"context"
	"time"
)

// DispatchEvent summarizes one finished call for observers.
type DispatchEvent struct {
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	ResolvedURL string    `json:"resolved_url,omitempty"`
	StatusCode  int       `json:"status_code,omitempty"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// Observer is notified after every dispatch, successful or not. It cannot
// change the outcome of the call.
type Observer interface {
	ObserveDispatch(ctx context.Context, evt DispatchEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, evt DispatchEvent)

func (f ObserverFunc) ObserveDispatch(ctx context.Context, evt DispatchEvent) { f(ctx, evt) }
