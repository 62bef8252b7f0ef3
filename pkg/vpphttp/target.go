package vpphttp

import "bytes"

// TargetForm classifies a request-target per spec §4.1.
type TargetForm uint8

const (
	TargetUnknown TargetForm = iota
	TargetOrigin
	TargetAbsolute
	TargetAuthority
	TargetAsterisk
)

// classifyTarget inspects the raw request-target bytes (between the two
// spaces of the request line, still including any leading '/') and
// returns its form. Callers then use splitPathQuery to separate path
// and query for ORIGIN/ABSOLUTE forms.
//
// Order matters: ASTERISK only for an exact single "*"; ORIGIN requires
// a leading '/'; ABSOLUTE requires "://"; AUTHORITY is the fallback when
// a ':' is immediately followed by a digit and neither of the above
// matched (spec §8 boundary case).
func classifyTarget(target []byte) TargetForm {
	if len(target) == 1 && target[0] == '*' {
		return TargetAsterisk
	}
	if len(target) > 0 && target[0] == '/' {
		return TargetOrigin
	}
	if bytes.Contains(target, []byte("://")) {
		return TargetAbsolute
	}
	if idx := bytes.IndexByte(target, ':'); idx != -1 && idx+1 < len(target) {
		if c := target[idx+1]; c >= '0' && c <= '9' {
			return TargetAuthority
		}
	}
	return TargetUnknown
}

// splitPathQuery splits an ORIGIN or ABSOLUTE form target (relative to
// target's own start, which the caller provides as absolute buffer
// offsets) into path and query offset/length pairs. For ORIGIN, the
// leading '/' is stripped from the reported path offset/length (spec
// §4.1: "ORIGIN strips the leading slash from the reported
// offset/length").
func splitPathQuery(buf []byte, start, length int, stripLeadingSlash bool) (pathOff, pathLen, queryOff, queryLen int) {
	target := buf[start : start+length]
	qIdx := bytes.IndexByte(target, '?')

	pathOff = start
	if stripLeadingSlash && length > 0 && target[0] == '/' {
		pathOff++
	}

	if qIdx == -1 {
		pathLen = start + length - pathOff
		return pathOff, pathLen, 0, 0
	}

	pathLen = start + qIdx - pathOff
	queryOff = start + qIdx + 1
	queryLen = start + length - queryOff
	return pathOff, pathLen, queryOff, queryLen
}
