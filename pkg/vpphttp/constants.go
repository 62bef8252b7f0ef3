// Package vpphttp implements the core of an embedded HTTP/1.1 protocol
// engine: a transport-layer plug-in that sits between a generic session
// layer (TCP/TLS byte streams and per-connection FIFO queues) and
// application workers exchanging structured HTTP messages.
//
// The package never talks to a socket directly. It drives a state
// machine over two collaborators per connection: a TransportSession (the
// byte stream), handed over at accept/connected time, and a pair of
// FIFOs (the application-side control/body channel) the engine creates
// for the connection. See transport.go and fifo.go for those
// boundaries.
package vpphttp

import "time"

// Method IDs for O(1) switching. Only GET and POST are recognised by
// this engine (spec: request-target parsing accepts exactly GET or
// POST; any other all-uppercase token is a 501, anything else a 400).
const (
	MethodUnknown uint8 = 0
	MethodGET     uint8 = 1
	MethodPOST    uint8 = 2
)

var (
	methodGETBytes  = []byte("GET")
	methodPOSTBytes = []byte("POST")
)

const (
	methodGETString  = "GET"
	methodPOSTString = "POST"
)

// ProtoHTTP11Major and ProtoHTTP11Minor identify the wire protocol
// version this engine emits (HTTP/1.1). The parser accepts any
// HTTP/1.<digit> version token and rejects other majors.
const (
	ProtoHTTP11Major = 1
	ProtoHTTP11Minor = 1
)

var (
	http11Bytes = []byte("HTTP/1.1")
	crlfBytes   = []byte("\r\n")
	colonSpace  = []byte(": ")
)

// Size limits per RFC 7230 recommendations and spec §9 (status-line
// minimum viable length is treated as 12, not the literal 8 the
// original engine used).
const (
	MaxRequestLineSize  = 8192
	MaxHeadersSize      = 8192
	MaxURILength        = 8192
	MinStatusLineLength = 12

	// MaxHeaders is the number of headers storable without a heap
	// allocation; beyond this the Header falls back to overflow storage.
	MaxHeaders     = 32
	MaxHeaderName  = 64
	MaxHeaderValue = 128
)

// Header names the engine inspects directly on the wire path.
var (
	headerContentLength    = []byte("Content-Length")
	headerTransferEncoding = []byte("Transfer-Encoding")
	headerConnection       = []byte("Connection")
	headerClose            = []byte("close")
	headerHost             = []byte("Host")
	headerDate             = []byte("Date")
	headerServer           = []byte("Server")
	headerUserAgent        = []byte("User-Agent")
)

// Configuration surface (spec §6). Values are clamped, never rejected
// outright, matching the teacher's DefaultConfig()-with-clamping idiom.
const (
	MinFirstSegmentSize = 1 << 20   // 1 MiB
	DefaultFirstSegmentSize = 32 << 20 // 32 MiB

	MinAddSegmentSize     = 1 << 20   // 1 MiB
	DefaultAddSegmentSize = 256 << 20 // 256 MiB

	MinFIFOSize     = 4 << 10        // 4 KiB
	MaxFIFOSize     = 2 << 30        // 2 GiB
	DefaultFIFOSize = 512 << 10      // 512 KiB

	// DefaultMaxBurstBytes bounds a single HTTP Buffer drain (spec §4.2).
	DefaultMaxBurstBytes = 64 << 10 // 64 KiB

	// DefaultInactivityTimeout is used when neither connect nor listen
	// supplies an HTTP extension timeout override.
	DefaultInactivityTimeout = 60 * time.Second
)

const (
	defaultClientName = "VPP HTTP client"
	defaultServerName = "VPP server app"
)
