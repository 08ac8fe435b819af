package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-resttemplate/pkg/resttemplate"
)

// Event is the payload published downstream for every dispatched call.
type Event struct {
	Source      string                     `json:"source"`
	Dispatch    resttemplate.DispatchEvent `json:"dispatch"`
	PublishedAt time.Time                  `json:"published_at"`
}

// NewEvent wraps a dispatch summary emitted by source (usually the app name).
func NewEvent(source string, evt resttemplate.DispatchEvent) Event {
	return Event{
		Source:      source,
		Dispatch:    evt,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes returns the routing attributes attached to queue/topic messages.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"source": e.Source,
		"method": e.Dispatch.Method,
	}
	if e.Dispatch.Error != "" {
		attrs["outcome"] = "error"
	} else {
		attrs["outcome"] = "ok"
	}
	return attrs
}
