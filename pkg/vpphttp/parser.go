package vpphttp

import (
	"bytes"
)

// ParseError wraps a parser failure with the HTTP status code a server
// should emit for it (spec §4.1, §7 kind 1). Response-side ("server
// protocol error", §7 kind 2) failures use a plain sentinel error
// instead, since a client has no way to answer a malformed reply with a
// status code of its own — it just resets.
type ParseError struct {
	Status StatusClass
	Err    error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(status StatusClass, err error) *ParseError {
	return &ParseError{Status: status, Err: err}
}

// RequestLine holds the result of parsing "METHOD SP target SP
// HTTP/1.<d> CRLF" (spec §4.1). All offsets are absolute into the
// buffer passed to ParseRequestLine.
type RequestLine struct {
	Consumed int // bytes through and including the terminating CRLF
	Method   uint8

	TargetForm TargetForm
	PathOff    int
	PathLen    int
	QueryOff   int
	QueryLen   int
}

// ParseRequestLine recognises "METHOD SP request-target SP HTTP/1.<d>
// CRLF", tolerating exactly one leading empty CRLF per RFC 9112 §2.2
// robustness guidance. buf must start at the connection's current read
// cursor.
func ParseRequestLine(buf []byte) (RequestLine, *ParseError) {
	var rl RequestLine

	start := 0
	if len(buf) >= 2 && buf[0] == '\r' && buf[1] == '\n' {
		start = 2
	}

	rest := buf[start:]
	lineEnd := bytes.Index(rest, crlfBytes)
	if lineEnd == -1 {
		if len(rest) > MaxRequestLineSize {
			return rl, newParseError(StatusURITooLong, ErrLineTooLong)
		}
		return rl, newParseError(0, ErrIncompleteMessage)
	}
	line := rest[:lineEnd]

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		return rl, newParseError(StatusBadRequest, ErrInvalidRequestLine)
	}
	methodTok := line[:sp1]

	methodID := ParseMethodID(methodTok)
	if methodID == MethodUnknown {
		if isAllUppercaseToken(methodTok) {
			return rl, newParseError(StatusNotImplemented, ErrMethodNotAllowed)
		}
		return rl, newParseError(StatusBadRequest, ErrInvalidMethod)
	}
	rl.Method = methodID

	rem := line[sp1+1:]
	sp2 := bytes.IndexByte(rem, ' ')
	if sp2 == -1 {
		return rl, newParseError(StatusBadRequest, ErrInvalidRequestLine)
	}
	targetTok := rem[:sp2]
	if len(targetTok) == 0 || len(targetTok) > MaxURILength {
		return rl, newParseError(StatusBadRequest, ErrInvalidTarget)
	}

	versionTok := rem[sp2+1:]
	status, err := validateHTTPVersionToken(versionTok)
	if err != nil {
		return rl, newParseError(status, err)
	}

	targetStart := start + sp1 + 1
	form := classifyTarget(targetTok)
	switch form {
	case TargetAsterisk:
		rl.TargetForm = form
	case TargetOrigin:
		pathOff, pathLen, qOff, qLen := splitPathQuery(buf, targetStart, len(targetTok), true)
		rl.TargetForm = form
		rl.PathOff, rl.PathLen = pathOff, pathLen
		rl.QueryOff, rl.QueryLen = qOff, qLen
	case TargetAbsolute:
		pathOff, pathLen, qOff, qLen := splitPathQuery(buf, targetStart, len(targetTok), false)
		rl.TargetForm = form
		rl.PathOff, rl.PathLen = pathOff, pathLen
		rl.QueryOff, rl.QueryLen = qOff, qLen
	case TargetAuthority:
		rl.TargetForm = form
		rl.PathOff, rl.PathLen = targetStart, len(targetTok)
	default:
		return rl, newParseError(StatusBadRequest, ErrInvalidTarget)
	}

	rl.Consumed = start + lineEnd + 2
	return rl, nil
}

// validateHTTPVersionToken checks for "HTTP/1.<d>" and maps a non-1
// major digit to 505 and anything else malformed to 400, per spec
// §4.1.
func validateHTTPVersionToken(tok []byte) (StatusClass, error) {
	const prefix = "HTTP/"
	if len(tok) < len(prefix)+3 || string(tok[:len(prefix)]) != prefix {
		return StatusBadRequest, ErrInvalidVersion
	}
	rest := tok[len(prefix):]
	if len(rest) < 3 || rest[1] != '.' {
		return StatusBadRequest, ErrInvalidVersion
	}
	major := rest[0]
	minor := rest[2]
	if major < '0' || major > '9' || minor < '0' || minor > '9' {
		return StatusBadRequest, ErrInvalidVersion
	}
	if major != '1' {
		return StatusHTTPVersionNotSupported, ErrVersionNotSupported
	}
	return 0, nil
}

// StatusLine holds the result of parsing "HTTP/1.<d> SP+ DDD [reason]
// CRLF" (spec §4.1). Reason phrase is discarded; only the numeric code
// is reported.
type StatusLine struct {
	Consumed int
	Code     uint16
}

// ParseStatusLine requires at least MinStatusLineLength bytes before
// attempting to locate the components (spec §9 defensive-length note).
// Any failure here is an opaque parse error: the client has no way to
// answer a malformed reply, so it just resets the connection (spec §7
// kind 2).
func ParseStatusLine(buf []byte) (StatusLine, error) {
	var sl StatusLine

	lineEnd := bytes.Index(buf, crlfBytes)
	if lineEnd == -1 {
		if len(buf) > MaxRequestLineSize {
			return sl, ErrInvalidStatusLine
		}
		return sl, ErrIncompleteMessage
	}
	if lineEnd < MinStatusLineLength-2 {
		return sl, ErrInvalidStatusLine
	}
	line := buf[:lineEnd]

	const prefix = "HTTP/1."
	if len(line) < len(prefix)+1 || string(line[:len(prefix)]) != prefix {
		return sl, ErrInvalidStatusLine
	}
	if line[len(prefix)] < '0' || line[len(prefix)] > '9' {
		return sl, ErrInvalidStatusLine
	}

	rest := line[len(prefix)+1:]
	// one or more spaces
	i := 0
	for i < len(rest) && rest[i] == ' ' {
		i++
	}
	if i == 0 {
		return sl, ErrInvalidStatusLine
	}
	rest = rest[i:]
	if len(rest) < 3 {
		return sl, ErrInvalidStatusLine
	}
	digits := rest[:3]
	var code uint16
	for _, c := range digits {
		if c < '0' || c > '9' {
			return sl, ErrInvalidStatusLine
		}
		code = code*10 + uint16(c-'0')
	}
	if code < 100 || code > 599 {
		return sl, ErrStatusCodeOutOfRange
	}

	sl.Code = code
	sl.Consumed = lineEnd + 2
	return sl, nil
}

// HeaderBlock is the result of locating the CRLFCRLF-terminated header
// section following the request/status line (spec §4.1).
type HeaderBlock struct {
	HeadersOff     int
	HeadersLen     int
	ControlDataLen int // bytes through and including the header terminator
}

// FindHeaderBlock locates the double-CRLF terminator starting at
// lineConsumed (the cursor just past the request/status line). If the
// very next two bytes are CRLF, the header block is empty. The
// header-terminator CRLF is always folded into ControlDataLen, whether
// or not any headers are present (spec §9: unifies the asymmetry the
// original engine had).
func FindHeaderBlock(buf []byte, lineConsumed int) (HeaderBlock, error) {
	rest := buf[lineConsumed:]
	if len(rest) >= 2 && rest[0] == '\r' && rest[1] == '\n' {
		return HeaderBlock{
			HeadersOff:     lineConsumed,
			HeadersLen:     0,
			ControlDataLen: lineConsumed + 2,
		}, nil
	}

	idx := bytes.Index(rest, []byte("\r\n\r\n"))
	if idx == -1 {
		if len(rest) > MaxHeadersSize {
			return HeaderBlock{}, ErrHeadersTooLarge
		}
		return HeaderBlock{}, ErrIncompleteMessage
	}
	return HeaderBlock{
		HeadersOff:     lineConsumed,
		HeadersLen:     idx,
		ControlDataLen: lineConsumed + idx + 4,
	}, nil
}

// headerLine is a single "Name: Value" pair found while scanning a
// header block, with value already trimmed of surrounding OWS.
type headerLine struct {
	name  []byte
	value []byte
}

// scanHeaderLines walks a header block (as returned by FindHeaderBlock,
// HeadersLen bytes starting at HeadersOff) and calls visit for each
// line. Malformed lines (no colon, whitespace before colon, CR/LF
// embedded in name) abort the scan with ErrInvalidHeader.
func scanHeaderLines(block []byte, visit func(headerLine) error) error {
	pos := 0
	for pos < len(block) {
		lineEnd := bytes.Index(block[pos:], crlfBytes)
		if lineEnd == -1 {
			// A block from FindHeaderBlock stops before the last
			// line's CRLF, so an unterminated final line is accepted.
			lineEnd = len(block)
		} else {
			lineEnd += pos
		}
		line := block[pos:lineEnd]

		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			return ErrInvalidHeader
		}
		if colon > 0 && (line[colon-1] == ' ' || line[colon-1] == '\t') {
			return ErrInvalidHeader
		}
		name := line[:colon]
		value := trimOWS(line[colon+1:])

		if bytes.IndexByte(name, ' ') != -1 || bytes.IndexByte(name, '\t') != -1 {
			return ErrInvalidHeader
		}

		if err := visit(headerLine{name: name, value: value}); err != nil {
			return err
		}
		pos = lineEnd + 2
	}
	return nil
}

func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

// BodyInfo is the result of scanning a header block for framing
// information relevant to this engine: Content-Length (case-insensitive
// per spec §9's recommended fix), rejecting the RFC 9112 §5.4/§3.3.3
// ambiguous combinations this engine supplements beyond the distilled
// spec (see SPEC_FULL.md §C), and the Host-header count the server path
// uses to reject a request carrying more than one Host header.
type BodyInfo struct {
	BodyLen  int64
	HasBody  bool
	HostSeen int
}

// ParseBodyInfo searches headerBlock only (never the request/status
// line) for Content-Length, validates it, and rejects the
// Transfer-Encoding / duplicate-Content-Length combinations described
// in SPEC_FULL.md §C. Absence of Content-Length yields BodyLen=0,
// HasBody=false (spec §4.1: "Absence ⇒ body_len = 0").
func ParseBodyInfo(headerBlock []byte) (BodyInfo, error) {
	var info BodyInfo
	var clSeen, teSeen bool
	var clValue int64 = -1

	err := scanHeaderLines(headerBlock, func(h headerLine) error {
		switch {
		case bytesEqualCaseInsensitive(h.name, headerContentLength):
			v, perr := parseUintStrict(h.value)
			if perr != nil {
				return ErrInvalidContentLength
			}
			if clSeen && v != clValue {
				return ErrContentLengthConflict
			}
			clSeen = true
			clValue = v
			info.BodyLen = v
			info.HasBody = v > 0
		case bytesEqualCaseInsensitive(h.name, headerTransferEncoding):
			teSeen = true
		case bytesEqualCaseInsensitive(h.name, headerHost):
			info.HostSeen++
		}
		return nil
	})
	if err != nil {
		return BodyInfo{}, err
	}
	if clSeen && teSeen {
		return BodyInfo{}, ErrContentLengthWithTE
	}
	return info, nil
}

// parseUintStrict parses an unsigned decimal integer with overflow
// detection (spec §4.1: "parsed as an unsigned decimal integer with
// overflow detection"). Empty input is an error.
func parseUintStrict(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, ErrInvalidContentLength
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, ErrInvalidContentLength
		}
		d := uint64(c - '0')
		if n > (1<<63-1-d)/10 {
			return 0, ErrInvalidContentLength
		}
		n = n*10 + d
	}
	return int64(n), nil
}
