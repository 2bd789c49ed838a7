package domain

import "errors"

// Sentinel errors shared across the hexagon. Adapters translate their
// backend-specific failures into these so services and drivers can branch
// with errors.Is.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a uniqueness conflict on insert.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the caller supplied arguments that can
	// never succeed, e.g. an inverted offset range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendUnavailable indicates no generation backend could be
	// reached.
	ErrBackendUnavailable = errors.New("generation backend unavailable")

	// ErrEmptyRange indicates an open request that resolved to no stored
	// content.
	ErrEmptyRange = errors.New("no content found for range")

	// ErrUnauthorized indicates a failed admin authentication.
	ErrUnauthorized = errors.New("unauthorized")
)
