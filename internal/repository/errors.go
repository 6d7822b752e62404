// Package repository contains data access logic separated from HTTP
// handlers. This file defines error values reused across multiple
// repositories. These sentinels allow higher layers such as handlers
// to distinguish between different failure scenarios. For example,
// ErrForbidden indicates that the current caller is not authorized to
// act on a resource owned by someone else, while ErrConflict signals
// that an operation cannot proceed due to conflicting state (e.g.
// cancelling a booking whose start time has already passed).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed
// because of conflicting state, such as attempting to cancel a
// booking that has already started. Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
