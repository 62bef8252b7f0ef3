package vpphttp

import (
	"strings"

	"golang.org/x/net/idna"
)

// normalizeHostForWire ASCII-encodes the host portion of an endpoint
// address so it is safe to place verbatim in a Host/User-Agent-adjacent
// wire header (spec §6 "Endpoint extensions", §4.1 AUTHORITY form).
// Pure-ASCII hosts pass through unchanged; a non-ASCII (internationalized)
// host is converted to its Punycode ACE form. Falls back to the original
// string on any idna failure rather than blocking the connect attempt —
// the wire parser on the peer side will reject a malformed Host anyway.
func normalizeHostForWire(addr string) string {
	host, port := splitHostPort(addr)
	if isASCII(host) {
		return addr
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return addr
	}
	if port == "" {
		return ascii
	}
	return ascii + ":" + port
}

// splitHostPort separates a "host" or "host:port" address without the
// stdlib's strict validation (net.SplitHostPort rejects a bare host
// with no port, which is the common case here).
func splitHostPort(addr string) (host, port string) {
	if idx := strings.LastIndexByte(addr, ':'); idx != -1 && !strings.Contains(addr[idx+1:], ":") {
		return addr[:idx], addr[idx+1:]
	}
	return addr, ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
