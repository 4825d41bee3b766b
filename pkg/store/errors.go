package store

import "errors"

var (
	// ErrNoCredentials is returned when no credentials were saved yet.
	ErrNoCredentials = errors.New("store: no saved credentials")

	// ErrEmptyHandle is returned when a program or scope has no handle.
	ErrEmptyHandle = errors.New("store: empty program handle")
)
