package httpclient

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrTooManyRedirects indicates the redirect cap was exceeded.
	ErrTooManyRedirects = errors.New("httpclient: too many redirects")

	// ErrInvalidProxy indicates a proxy URL that cannot be used.
	ErrInvalidProxy = errors.New("httpclient: invalid proxy")
)

// IsTimeout reports whether err is a client or context timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
