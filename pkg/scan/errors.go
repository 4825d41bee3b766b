package scan

import "errors"

var (
	// ErrMissingCredentials means the request carried no username or token.
	ErrMissingCredentials = errors.New("scan: username and token are required")

	// ErrScanInProgress means another scan has not finished yet.
	ErrScanInProgress = errors.New("scan: a scan is already in progress")
)
