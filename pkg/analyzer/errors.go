package analyzer

import "errors"

var (
	// ErrSkipped is returned when the final status is not 200. No
	// analysis is produced for the asset.
	ErrSkipped = errors.New("analyzer: non-200 response, analysis skipped")

	// ErrFetch wraps transport failures while fetching the asset.
	ErrFetch = errors.New("analyzer: fetch failed")
)
