package vpphttp

// ParseMethodID recognises exactly GET and POST (spec §4.1). Any other
// all-uppercase token is reported separately via isAllUppercaseToken so
// the caller can choose 501 vs. 400.
func ParseMethodID(method []byte) uint8 {
	switch len(method) {
	case 3:
		if method[0] == 'G' && method[1] == 'E' && method[2] == 'T' {
			return MethodGET
		}
	case 4:
		if method[0] == 'P' && method[1] == 'O' && method[2] == 'S' && method[3] == 'T' {
			return MethodPOST
		}
	}
	return MethodUnknown
}

// MethodString returns the canonical string for a method ID, or "" for
// MethodUnknown.
func MethodString(id uint8) string {
	switch id {
	case MethodGET:
		return methodGETString
	case MethodPOST:
		return methodPOSTString
	default:
		return ""
	}
}

// MethodBytes returns the canonical wire bytes for a method ID.
func MethodBytes(id uint8) []byte {
	switch id {
	case MethodGET:
		return methodGETBytes
	case MethodPOST:
		return methodPOSTBytes
	default:
		return nil
	}
}

// isAllUppercaseToken reports whether b looks like an HTTP method token
// (one or more uppercase ASCII letters) even though it isn't one this
// engine implements. Used to distinguish 501 (well-formed but
// unsupported method) from 400 (garbage in the method position).
func isAllUppercaseToken(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
