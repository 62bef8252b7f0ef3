package vpphttp

import (
	"strconv"
	"sync/atomic"
	"time"
)

// cachedDate holds the last-formatted RFC 1123 GMT timestamp, refreshed
// at most once a second. Every reply the engine formats, canned error
// responses included, carries a Date header (spec §6: "Date (RFC 1123
// timestamp derived from a shared time base, always in GMT)"); client
// request preambles carry none. Recomputing time.Now on every single
// message would be wasted work under load, so we follow
// the same once-a-second string-cache idiom the teacher's buffer pool
// uses for its own hot counters (buffer_pool_prometheus.go) rather than
// formatting a timestamp per message.
var cachedDate atomic.Value // dateCacheEntry

func dateHeaderValue() string {
	if v := cachedDate.Load(); v != nil {
		s := v.(dateCacheEntry)
		if monotonicNow()-s.stampedAt < int64(time.Second) {
			return s.text
		}
	}
	text := time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05") + " GMT"
	cachedDate.Store(dateCacheEntry{text: text, stampedAt: monotonicNow()})
	return text
}

type dateCacheEntry struct {
	text      string
	stampedAt int64
}

// formatErrorResponse builds the canned server error response (spec
// §4.5, §8 scenario 4/5): status-line with reason phrase, Date,
// Connection: close, Content-Length: 0, terminating CRLFCRLF.
func formatErrorResponse(status StatusClass) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, "HTTP/1.1 "...)
	buf = append(buf, strconv.Itoa(int(status))...)
	buf = append(buf, ' ')
	buf = append(buf, reasonPhrase(status)...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, "Date: "...)
	buf = append(buf, dateHeaderValue()...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, "Connection: close\r\n"...)
	buf = append(buf, "Content-Length: 0\r\n"...)
	buf = append(buf, "\r\n"...)
	return buf
}

// formatReplyHeader builds the server-role reply preamble (spec §4.5
// WAIT_APP_REPLY, §6 wire formats, §8 scenario 1): status-line, Date,
// Server, Content-Length, followed by appHeaders verbatim and the
// final blank-line terminator.
func formatReplyHeader(serverName string, code uint16, bodyLen int64, appHeaders []byte) []byte {
	buf := make([]byte, 0, 192+len(appHeaders))
	buf = append(buf, "HTTP/1.1 "...)
	buf = append(buf, strconv.Itoa(int(code))...)
	buf = append(buf, ' ')
	if cls, ok := ClassOf(code); ok {
		buf = append(buf, reasonPhrase(cls)...)
	}
	buf = append(buf, "\r\n"...)
	buf = append(buf, "Date: "...)
	buf = append(buf, dateHeaderValue()...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, "Server: "...)
	buf = append(buf, serverName...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, "Content-Length: "...)
	buf = append(buf, strconv.FormatInt(bodyLen, 10)...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, appHeaders...)
	buf = append(buf, "\r\n"...)
	return buf
}

// formatRequestHeader builds the client-role request preamble (spec
// §4.5 WAIT_APP_METHOD, §6, §8 scenario 6): request-line, Host,
// User-Agent, and (for POST) Content-Length, followed by appHeaders
// verbatim and the final blank-line terminator.
func formatRequestHeader(clientName string, method uint8, target []byte, host string, bodyLen int64, appHeaders []byte) []byte {
	buf := make([]byte, 0, 192+len(target)+len(host)+len(appHeaders))
	buf = append(buf, MethodBytes(method)...)
	buf = append(buf, ' ')
	buf = append(buf, target...)
	buf = append(buf, " HTTP/1.1\r\n"...)
	buf = append(buf, "Host: "...)
	buf = append(buf, host...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, "User-Agent: "...)
	buf = append(buf, clientName...)
	buf = append(buf, "\r\n"...)
	if method == MethodPOST {
		buf = append(buf, "Content-Length: "...)
		buf = append(buf, strconv.FormatInt(bodyLen, 10)...)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, appHeaders...)
	buf = append(buf, "\r\n"...)
	return buf
}
