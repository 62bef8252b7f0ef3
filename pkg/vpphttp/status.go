package vpphttp

// StatusClass is the canonical enumerator a u16 wire status code maps
// to (spec §4.7). Registered codes round-trip to themselves; anything
// else coalesces to its class representative.
type StatusClass uint16

const (
	StatusContinue           StatusClass = 100
	StatusSwitchingProtocols StatusClass = 101

	StatusOK                   StatusClass = 200
	StatusCreated              StatusClass = 201
	StatusAccepted             StatusClass = 202
	StatusNoContent            StatusClass = 204

	StatusMultipleChoices StatusClass = 300
	StatusMovedPermanently StatusClass = 301
	StatusFound            StatusClass = 302
	StatusNotModified      StatusClass = 304

	StatusBadRequest         StatusClass = 400
	StatusUnauthorized       StatusClass = 401
	StatusForbidden          StatusClass = 403
	StatusNotFound           StatusClass = 404
	StatusMethodNotAllowed   StatusClass = 405
	StatusRequestTimeout     StatusClass = 408
	StatusLengthRequired     StatusClass = 411
	StatusPayloadTooLarge    StatusClass = 413
	StatusURITooLong         StatusClass = 414

	StatusInternalServerError StatusClass = 500
	StatusNotImplemented      StatusClass = 501
	StatusBadGateway          StatusClass = 502
	StatusServiceUnavailable  StatusClass = 503
	StatusHTTPVersionNotSupported StatusClass = 505
)

// sc_by_u16: a 600-entry lookup from wire status (0..599) to its
// canonical class, built once at package init. Registered codes are
// fixed points; everything else maps to its class's representative
// (1xx->100, 2xx->200, 3xx->300, 4xx->400, 5xx->500). Entries 0..99 map
// to 0, and values of 600 and above lie outside the table — callers
// must bounds-check before indexing (see ClassOf).
var scByU16 [600]StatusClass

var registeredStatusCodes = []StatusClass{
	StatusContinue, StatusSwitchingProtocols,
	StatusOK, StatusCreated, StatusAccepted, StatusNoContent,
	StatusMultipleChoices, StatusMovedPermanently, StatusFound, StatusNotModified,
	StatusBadRequest, StatusUnauthorized, StatusForbidden, StatusNotFound,
	StatusMethodNotAllowed, StatusRequestTimeout, StatusLengthRequired,
	StatusPayloadTooLarge, StatusURITooLong,
	StatusInternalServerError, StatusNotImplemented, StatusBadGateway,
	StatusServiceUnavailable, StatusHTTPVersionNotSupported,
}

func init() {
	for code := 0; code < 600; code++ {
		scByU16[code] = classRepresentative(uint16(code))
	}
	for _, code := range registeredStatusCodes {
		scByU16[int(code)] = code
	}
}

func classRepresentative(code uint16) StatusClass {
	switch {
	case code >= 100 && code < 200:
		return 100
	case code >= 200 && code < 300:
		return 200
	case code >= 300 && code < 400:
		return 300
	case code >= 400 && code < 500:
		return 400
	case code >= 500 && code < 600:
		return 500
	default:
		return 0
	}
}

// ClassOf maps a wire status code to its canonical enumerator. Codes
// outside [0,599] return (0, false); the state machine never calls this
// with such a code because the status-line parser already rejects
// anything outside [100,599] (spec §4.1).
func ClassOf(code uint16) (StatusClass, bool) {
	if int(code) >= len(scByU16) {
		return 0, false
	}
	return scByU16[code], true
}

// reasonPhrase returns the canonical reason phrase for a registered
// status class representative; used when formatting reply status lines
// and canned error responses (spec §4.5). Client request lines never
// carry one.
func reasonPhrase(c StatusClass) string {
	switch c {
	case StatusContinue:
		return "Continue"
	case StatusSwitchingProtocols:
		return "Switching Protocols"
	case StatusOK:
		return "OK"
	case StatusCreated:
		return "Created"
	case StatusAccepted:
		return "Accepted"
	case StatusNoContent:
		return "No Content"
	case StatusMultipleChoices:
		return "Multiple Choices"
	case StatusMovedPermanently:
		return "Moved Permanently"
	case StatusFound:
		return "Found"
	case StatusNotModified:
		return "Not Modified"
	case StatusBadRequest:
		return "Bad Request"
	case StatusUnauthorized:
		return "Unauthorized"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusRequestTimeout:
		return "Request Timeout"
	case StatusLengthRequired:
		return "Length Required"
	case StatusPayloadTooLarge:
		return "Payload Too Large"
	case StatusURITooLong:
		return "URI Too Long"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusNotImplemented:
		return "Not Implemented"
	case StatusBadGateway:
		return "Bad Gateway"
	case StatusServiceUnavailable:
		return "Service Unavailable"
	case StatusHTTPVersionNotSupported:
		return "HTTP Version Not Supported"
	default:
		return ""
	}
}
