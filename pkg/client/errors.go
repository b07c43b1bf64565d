package client

import (
	"fmt"
	"net/url"
)

// RequestError reports a terminal non-success status: anything the client
// does not handle as a refresh (401) or throttle (429) case. It carries the
// request context so callers can log what actually went out.
type RequestError struct {
	Endpoint   string
	Params     url.Values
	StatusCode int
	Reason     string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if len(e.Params) > 0 {
		return fmt.Sprintf("helix request to %q failed (status %d): %s (params: %s)",
			e.Endpoint, e.StatusCode, e.Reason, e.Params.Encode())
	}
	return fmt.Sprintf("helix request to %q failed (status %d): %s",
		e.Endpoint, e.StatusCode, e.Reason)
}
