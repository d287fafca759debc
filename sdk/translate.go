package sdk

import (
	"fmt"
	"time"
)

// Status texts used when no response was received
const (
	StatusTextNetworkError = "Network Error"
	StatusTextTimeout      = "Timeout"
)

// translateError converts a transport failure into the uniform *Error and,
// in debug mode, reports it to the debug sink. The returned error is the
// only failure shape Request callers observe.
func (c *Client) translateError(te *TransportError) *Error {
	sdkErr := newErrorFromTransport(te)

	if c.debug {
		safeDebug(c.sink, c.logger, "error",
			fmt.Sprintf("[%d] Type: %s", sdkErr.StatusCode, sdkErr.StatusText),
			debugMessage(sdkErr),
			sdkErr.Data,
		)
	}
	return sdkErr
}

// newErrorFromTransport builds the *Error for te. Failures without a
// response are reported with status 0.
func newErrorFromTransport(te *TransportError) *Error {
	sdkErr := &Error{
		OriginalError: te,
		Timestamp:     time.Now(),
	}

	switch {
	case te.Response != nil:
		sdkErr.StatusCode = te.Response.StatusCode
		sdkErr.StatusText = te.Response.StatusText
		sdkErr.Data = te.Response.Data()
		sdkErr.Type = classifyStatus(te.Response.StatusCode)
	case te.Timeout():
		sdkErr.StatusText = StatusTextTimeout
		sdkErr.Type = ErrorTypeTimeout
	default:
		sdkErr.StatusText = StatusTextNetworkError
		sdkErr.Type = ErrorTypeNetwork
	}

	sdkErr.Message = fmt.Sprintf("Request failed with status %d %s", sdkErr.StatusCode, sdkErr.StatusText)
	if te.Response == nil && te.Err != nil {
		sdkErr.Message += ": " + te.Err.Error()
	}
	return sdkErr
}

// debugMessage is the body line of a debug report: a string payload is
// used verbatim, anything else falls back to the status text.
func debugMessage(e *Error) string {
	if s, ok := e.Data.(string); ok && s != "" {
		return s
	}
	return e.StatusText
}
