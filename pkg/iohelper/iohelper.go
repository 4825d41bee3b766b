// Package iohelper provides bounded reads of HTTP response bodies.
package iohelper

import (
	"io"
	"log/slog"
)

// Body size limits.
const (
	// APIMaxBodySize bounds one catalog API page (4MB).
	APIMaxBodySize int64 = 4 * 1024 * 1024

	// PageMaxBodySize bounds one fetched asset page (10MB).
	PageMaxBodySize int64 = 10 * 1024 * 1024

	// drainLimit is how much of an unread body is discarded before close.
	drainLimit int64 = 64 * 1024
)

// ReadBody reads at most maxSize bytes from r. A nil reader yields an
// empty slice.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadPage reads an asset page with PageMaxBodySize. Read errors are logged
// and whatever was read so far is returned.
func ReadPage(r io.Reader, logger *slog.Logger) []byte {
	data, err := ReadBody(r, PageMaxBodySize)
	if err != nil && logger != nil {
		logger.Warn("body read failed", slog.String("error", err.Error()))
	}
	return data
}

// DrainAndClose discards what is left of r (up to 64KB) so the connection
// can be reused, then closes it. Always returns nil so it can be deferred.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
