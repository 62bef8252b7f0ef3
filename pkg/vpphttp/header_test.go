package vpphttp

import "testing"

func TestHeaderAddGetCaseInsensitive(t *testing.T) {
	var h Header
	if err := h.Add([]byte("Content-Type"), []byte("text/plain")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := string(h.Get([]byte("content-type"))); got != "text/plain" {
		t.Errorf("Get = %q, want %q", got, "text/plain")
	}
	if !h.Has([]byte("CONTENT-TYPE")) {
		t.Error("Has should be case-insensitive")
	}
}

func TestHeaderAddRejectsCRLFInjection(t *testing.T) {
	var h Header
	if err := h.Add([]byte("X-Evil\r\nSet-Cookie"), []byte("x")); err == nil {
		t.Error("Add should reject a header name containing CRLF")
	}
	if err := h.Add([]byte("X-Evil"), []byte("value\r\nSet-Cookie: x")); err == nil {
		t.Error("Add should reject a header value containing CRLF")
	}
}

func TestHeaderCountMatchingDetectsDuplicates(t *testing.T) {
	var h Header
	h.Add([]byte("Host"), []byte("a.example"))
	h.Add([]byte("Host"), []byte("b.example"))
	if got := h.CountMatching([]byte("Host")); got != 2 {
		t.Errorf("CountMatching(Host) = %d, want 2", got)
	}
	if got := h.CountMatching([]byte("Missing")); got != 0 {
		t.Errorf("CountMatching(Missing) = %d, want 0", got)
	}
}

func TestHeaderOverflowBeyondInlineCapacity(t *testing.T) {
	var h Header
	for i := 0; i < MaxHeaders+4; i++ {
		name := []byte{'X', byte('A' + i%26)}
		if err := h.Add(name, []byte("v")); err != nil {
			t.Fatalf("Add #%d failed: %v", i, err)
		}
	}
	if h.Len() != MaxHeaders+4 {
		t.Errorf("Len = %d, want %d", h.Len(), MaxHeaders+4)
	}
}

func TestHeaderResetClearsInlineAndOverflow(t *testing.T) {
	var h Header
	h.Add([]byte("A"), []byte("1"))
	for i := 0; i < MaxHeaders+2; i++ {
		h.Add([]byte{'Y', byte('a' + i)}, []byte("v"))
	}
	h.Reset()
	if h.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", h.Len())
	}
	if h.Has([]byte("A")) {
		t.Error("Has(A) true after Reset")
	}
}

func TestHeaderVisitAllStopsEarly(t *testing.T) {
	var h Header
	h.Add([]byte("A"), []byte("1"))
	h.Add([]byte("B"), []byte("2"))
	h.Add([]byte("C"), []byte("3"))

	visited := 0
	h.VisitAll(func(name, value []byte) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("VisitAll visited %d entries, want exactly 2 before stopping", visited)
	}
}
