package resttemplate

import (
	"net/http"
	"sort"
	"strings"

	"github.com/samvad-hq/samvad-resttemplate/pkg/httpclient"
)

// Header is an ordered multi-map of header names to values. Names compare
// case-insensitively and keep the spelling of their first insertion. The zero
// value is ready to use.
type Header struct {
	entries []headerEntry
}

type headerEntry struct {
	name   string
	values []string
}

// NewHeader builds a Header from alternating name/value pairs.
func NewHeader(pairs ...string) *Header {
	h := &Header{}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Add(pairs[i], pairs[i+1])
	}
	return h
}

func (h *Header) index(name string) int {
	for i := range h.entries {
		if strings.EqualFold(h.entries[i].name, name) {
			return i
		}
	}
	return -1
}

// Add appends value to name, keeping earlier values.
func (h *Header) Add(name string, values ...string) {
	if name == "" || len(values) == 0 {
		return
	}
	if i := h.index(name); i >= 0 {
		h.entries[i].values = append(h.entries[i].values, values...)
		return
	}
	h.entries = append(h.entries, headerEntry{name: name, values: append([]string(nil), values...)})
}

// Set replaces all values of name, keeping its original position.
func (h *Header) Set(name string, values ...string) {
	if i := h.index(name); i >= 0 {
		h.entries[i].values = append([]string(nil), values...)
		return
	}
	h.Add(name, values...)
}

// Del removes name.
func (h *Header) Del(name string) {
	if i := h.index(name); i >= 0 {
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
	}
}

// Get returns the first value of name or "".
func (h *Header) Get(name string) string {
	if h == nil {
		return ""
	}
	if i := h.index(name); i >= 0 && len(h.entries[i].values) > 0 {
		return h.entries[i].values[0]
	}
	return ""
}

// Values returns a copy of all values for name.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	if i := h.index(name); i >= 0 {
		return append([]string(nil), h.entries[i].values...)
	}
	return nil
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	return h != nil && h.index(name) >= 0
}

// Names returns header names in insertion order.
func (h *Header) Names() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.name
	}
	return out
}

// Len returns the number of distinct names.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Each calls fn for every name in insertion order.
func (h *Header) Each(fn func(name string, values []string)) {
	if h == nil {
		return
	}
	for _, e := range h.entries {
		fn(e.name, e.values)
	}
}

// Clone returns a deep copy. Cloning nil yields an empty Header.
func (h *Header) Clone() *Header {
	out := &Header{}
	h.Each(func(name string, values []string) {
		out.Add(name, values...)
	})
	return out
}

// fields flattens the header into transport lines.
func (h *Header) fields() []httpclient.HeaderField {
	var out []httpclient.HeaderField
	h.Each(func(name string, values []string) {
		for _, v := range values {
			out = append(out, httpclient.HeaderField{Name: name, Value: v})
		}
	})
	return out
}

// headerFromHTTP converts a transport header map. Map order is undefined, so
// names are sorted to keep the result stable.
func headerFromHTTP(src http.Header) *Header {
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	h := &Header{}
	for _, name := range names {
		h.Add(name, src[name]...)
	}
	return h
}
