package api

import (
	"errors"
	"net/http"

	"github.com/waftester/bountyscout/pkg/catalog"
	"github.com/waftester/bountyscout/pkg/report"
	"github.com/waftester/bountyscout/pkg/scan"
	"github.com/waftester/bountyscout/pkg/store"
)

// ErrBadRequest marks malformed request bodies.
var ErrBadRequest = errors.New("api: malformed request")

// errorBody is the JSON error payload. Details carries the underlying
// cause when the message is a fixed phrase.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps a scan start failure to its response.
func statusFor(err error) (int, errorBody) {
	switch {
	case errors.Is(err, scan.ErrMissingCredentials):
		return http.StatusBadRequest, errorBody{Error: "Username and token are required"}
	case errors.Is(err, ErrBadRequest), errors.Is(err, report.ErrUnknownFormat):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.Is(err, scan.ErrScanInProgress):
		return http.StatusConflict, errorBody{Error: "A scan is already in progress"}
	case errors.Is(err, catalog.ErrNoQualifyingPrograms):
		return http.StatusNotFound, errorBody{Error: "No programs found that meet the specified requirements"}
	case errors.Is(err, catalog.ErrNoPrograms):
		return http.StatusNotFound, errorBody{Error: "No programs found"}
	case errors.Is(err, catalog.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{Error: "Invalid credentials", Details: err.Error()}
	case errors.Is(err, catalog.ErrUpstream):
		return http.StatusInternalServerError, errorBody{Error: "Failed to fetch programs from API", Details: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}
}

func isNoCredentials(err error) bool {
	return errors.Is(err, store.ErrNoCredentials)
}
