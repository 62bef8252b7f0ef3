package vpphttp

import (
	"testing"
)

func TestParseRequestLineSimpleGET(t *testing.T) {
	buf := []byte("GET / HTTP/1.1\r\n\r\n")
	rl, perr := ParseRequestLine(buf)
	if perr != nil {
		t.Fatalf("ParseRequestLine failed: %v", perr)
	}
	if rl.Method != MethodGET {
		t.Errorf("Method = %d, want %d", rl.Method, MethodGET)
	}
	if rl.TargetForm != TargetOrigin {
		t.Errorf("TargetForm = %v, want TargetOrigin", rl.TargetForm)
	}
	// ORIGIN form reports path with its leading slash stripped.
	if got := string(buf[rl.PathOff : rl.PathOff+rl.PathLen]); got != "" {
		t.Errorf("path = %q, want empty", got)
	}
	if rl.Consumed != len("GET / HTTP/1.1\r\n") {
		t.Errorf("Consumed = %d, want %d", rl.Consumed, len("GET / HTTP/1.1\r\n"))
	}
}

func TestParseRequestLineWithQuery(t *testing.T) {
	buf := []byte("GET /search?q=test&limit=10 HTTP/1.1\r\n\r\n")
	rl, perr := ParseRequestLine(buf)
	if perr != nil {
		t.Fatalf("ParseRequestLine failed: %v", perr)
	}
	if got := string(buf[rl.PathOff : rl.PathOff+rl.PathLen]); got != "search" {
		t.Errorf("path = %q, want %q", got, "search")
	}
	if string(buf[rl.QueryOff:rl.QueryOff+rl.QueryLen]) != "q=test&limit=10" {
		t.Errorf("query = %q, want %q", buf[rl.QueryOff:rl.QueryOff+rl.QueryLen], "q=test&limit=10")
	}
}

func TestParseRequestLinePOST(t *testing.T) {
	buf := []byte("POST /api/users HTTP/1.1\r\n\r\n")
	rl, perr := ParseRequestLine(buf)
	if perr != nil {
		t.Fatalf("ParseRequestLine failed: %v", perr)
	}
	if rl.Method != MethodPOST {
		t.Errorf("Method = %d, want %d", rl.Method, MethodPOST)
	}
}

func TestParseRequestLineUnsupportedMethod(t *testing.T) {
	buf := []byte("DELETE / HTTP/1.1\r\n\r\n")
	_, perr := ParseRequestLine(buf)
	if perr == nil {
		t.Fatal("expected error for unsupported method")
	}
	if perr.Status != StatusNotImplemented {
		t.Errorf("Status = %v, want StatusNotImplemented", perr.Status)
	}
}

func TestParseRequestLineBadVersion(t *testing.T) {
	buf := []byte("GET / HTTP/2.0\r\n\r\n")
	_, perr := ParseRequestLine(buf)
	if perr == nil {
		t.Fatal("expected error for unsupported HTTP major version")
	}
	if perr.Status != StatusHTTPVersionNotSupported {
		t.Errorf("Status = %v, want StatusHTTPVersionNotSupported", perr.Status)
	}
}

func TestParseRequestLineIncomplete(t *testing.T) {
	buf := []byte("GET / HTTP/1.1")
	_, perr := ParseRequestLine(buf)
	if perr == nil || perr.Err != ErrIncompleteMessage {
		t.Fatalf("expected ErrIncompleteMessage, got %v", perr)
	}
}

func TestParseRequestLineLeadingCRLF(t *testing.T) {
	// RFC 9112 §2.2 robustness: tolerate exactly one leading empty CRLF.
	buf := []byte("\r\nGET / HTTP/1.1\r\n\r\n")
	rl, perr := ParseRequestLine(buf)
	if perr != nil {
		t.Fatalf("ParseRequestLine failed: %v", perr)
	}
	if rl.Method != MethodGET {
		t.Errorf("Method = %d, want %d", rl.Method, MethodGET)
	}
}

func TestParseStatusLineOK(t *testing.T) {
	buf := []byte("HTTP/1.1 200 OK\r\n\r\n")
	sl, err := ParseStatusLine(buf)
	if err != nil {
		t.Fatalf("ParseStatusLine failed: %v", err)
	}
	if sl.Code != 200 {
		t.Errorf("Code = %d, want 200", sl.Code)
	}
}

func TestParseStatusLineOutOfRange(t *testing.T) {
	buf := []byte("HTTP/1.1 999 Nonsense\r\n\r\n")
	_, err := ParseStatusLine(buf)
	if err != ErrStatusCodeOutOfRange {
		t.Fatalf("err = %v, want ErrStatusCodeOutOfRange", err)
	}
}

func TestFindHeaderBlockEmpty(t *testing.T) {
	buf := []byte("GET / HTTP/1.1\r\n\r\n")
	rl, _ := ParseRequestLine(buf)
	hb, err := FindHeaderBlock(buf, rl.Consumed)
	if err != nil {
		t.Fatalf("FindHeaderBlock failed: %v", err)
	}
	if hb.HeadersLen != 0 {
		t.Errorf("HeadersLen = %d, want 0", hb.HeadersLen)
	}
	if hb.ControlDataLen != rl.Consumed+2 {
		t.Errorf("ControlDataLen = %d, want %d", hb.ControlDataLen, rl.Consumed+2)
	}
}

func TestFindHeaderBlockWithHeaders(t *testing.T) {
	buf := []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")
	rl, _ := ParseRequestLine(buf)
	hb, err := FindHeaderBlock(buf, rl.Consumed)
	if err != nil {
		t.Fatalf("FindHeaderBlock failed: %v", err)
	}
	want := "Host: example.com"
	if got := string(buf[hb.HeadersOff : hb.HeadersOff+hb.HeadersLen]); got != want {
		t.Errorf("headers = %q, want %q", got, want)
	}
}

func TestFindHeaderBlockIncomplete(t *testing.T) {
	buf := []byte("GET / HTTP/1.1\r\nHost: example.com\r\n")
	rl, _ := ParseRequestLine(buf)
	_, err := FindHeaderBlock(buf, rl.Consumed)
	if err != ErrIncompleteMessage {
		t.Fatalf("err = %v, want ErrIncompleteMessage", err)
	}
}

func TestParseBodyInfoContentLengthCaseInsensitive(t *testing.T) {
	block := []byte("content-LENGTH: 42\r\n")
	bi, err := ParseBodyInfo(block)
	if err != nil {
		t.Fatalf("ParseBodyInfo failed: %v", err)
	}
	if bi.BodyLen != 42 || !bi.HasBody {
		t.Errorf("BodyLen = %d, HasBody = %v, want 42/true", bi.BodyLen, bi.HasBody)
	}
}

func TestParseBodyInfoNoContentLength(t *testing.T) {
	block := []byte("Host: example.com\r\n")
	bi, err := ParseBodyInfo(block)
	if err != nil {
		t.Fatalf("ParseBodyInfo failed: %v", err)
	}
	if bi.BodyLen != 0 || bi.HasBody {
		t.Errorf("BodyLen = %d, HasBody = %v, want 0/false", bi.BodyLen, bi.HasBody)
	}
}

func TestParseBodyInfoConflictingContentLength(t *testing.T) {
	block := []byte("Content-Length: 10\r\nContent-Length: 20\r\n")
	_, err := ParseBodyInfo(block)
	if err != ErrContentLengthConflict {
		t.Fatalf("err = %v, want ErrContentLengthConflict", err)
	}
}

func TestParseBodyInfoDuplicateMatchingContentLengthOK(t *testing.T) {
	block := []byte("Content-Length: 10\r\nContent-Length: 10\r\n")
	bi, err := ParseBodyInfo(block)
	if err != nil {
		t.Fatalf("ParseBodyInfo failed: %v", err)
	}
	if bi.BodyLen != 10 {
		t.Errorf("BodyLen = %d, want 10", bi.BodyLen)
	}
}

func TestParseBodyInfoContentLengthWithTransferEncoding(t *testing.T) {
	block := []byte("Content-Length: 10\r\nTransfer-Encoding: chunked\r\n")
	_, err := ParseBodyInfo(block)
	if err != ErrContentLengthWithTE {
		t.Fatalf("err = %v, want ErrContentLengthWithTE", err)
	}
}

func TestParseBodyInfoHostCount(t *testing.T) {
	block := []byte("Host: a.example\r\nHost: b.example\r\n")
	bi, err := ParseBodyInfo(block)
	if err != nil {
		t.Fatalf("ParseBodyInfo failed: %v", err)
	}
	if bi.HostSeen != 2 {
		t.Errorf("HostSeen = %d, want 2", bi.HostSeen)
	}
}

func TestParseBodyInfoInvalidContentLength(t *testing.T) {
	block := []byte("Content-Length: notanumber\r\n")
	_, err := ParseBodyInfo(block)
	if err != ErrInvalidContentLength {
		t.Fatalf("err = %v, want ErrInvalidContentLength", err)
	}
}
