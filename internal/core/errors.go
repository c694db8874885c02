package core

import "errors"

// Failure taxonomy surfaced to callers. Every error returned by the service
// layer wraps exactly one of these sentinels; the presentation layer maps
// them to transport responses.
var (
	// ErrNotFound: the addressed entity id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrForbidden: the addressed entity belongs to a different user.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict: the operation is blocked by existing references, e.g. a
	// category subtree still in use.
	ErrConflict = errors.New("conflict")

	// ErrValidation: the request itself is invalid (missing mandatory
	// account, bad category type, nesting depth exhausted, ...).
	ErrValidation = errors.New("invalid request")
)
