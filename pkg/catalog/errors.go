package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPrograms means the catalog returned no programs at all.
	ErrNoPrograms = errors.New("catalog: no programs found")

	// ErrNoQualifyingPrograms means programs were returned but none met
	// the requirements.
	ErrNoQualifyingPrograms = errors.New("catalog: no programs found that meet the specified requirements")

	// ErrUpstream wraps any failure of a program list page.
	ErrUpstream = errors.New("catalog: upstream request failed")

	// ErrUnauthorized is returned for 401 and 403 on the program list.
	ErrUnauthorized = errors.New("catalog: credentials rejected")
)

// StatusError is a non-2xx catalog response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: unexpected status %s", e.Status)
}
