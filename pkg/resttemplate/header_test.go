package resttemplate

import (
	"net/http"
	"reflect"
	"testing"
)

func TestHeaderOrderedMultiMap(t *testing.T) {
	h := NewHeader("B", "1", "a", "2", "b", "3")

	if got := h.Names(); !reflect.DeepEqual(got, []string{"B", "a"}) {
		t.Fatalf("names = %v", got)
	}
	if got := h.Values("b"); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("values = %v", got)
	}

	h.Set("A", "x")
	if h.Get("a") != "x" || h.Names()[1] != "a" {
		t.Fatalf("Set should replace in place, got %v %v", h.Names(), h.Values("a"))
	}

	h.Del("B")
	if h.Len() != 1 || h.Has("b") {
		t.Fatalf("Del failed: %v", h.Names())
	}
}

func TestHeaderNilSafeReads(t *testing.T) {
	var h *Header
	if h.Len() != 0 || h.Get("x") != "" || h.Values("x") != nil || h.Has("x") || h.Names() != nil {
		t.Fatalf("nil header reads should be empty")
	}
	if h.Clone().Len() != 0 {
		t.Fatalf("clone of nil should be empty")
	}
}

func TestHeaderCloneIsDeep(t *testing.T) {
	h := NewHeader("X", "1")
	cp := h.Clone()
	cp.Add("X", "2")
	if len(h.Values("X")) != 1 {
		t.Fatalf("clone shares storage")
	}
}

func TestHeaderFromHTTPSortsNames(t *testing.T) {
	h := headerFromHTTP(http.Header{"Z": {"1"}, "A": {"2", "3"}})
	if got := h.Names(); !reflect.DeepEqual(got, []string{"A", "Z"}) {
		t.Fatalf("names = %v", got)
	}
	if got := h.Values("A"); !reflect.DeepEqual(got, []string{"2", "3"}) {
		t.Fatalf("values = %v", got)
	}
}
