// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict: a stale version
// on an admin decision, or a decision submitted against a finished task.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates a request that is well-formed but semantically invalid.
var ErrValidation = errors.New("validation failed")

// ErrPermissionDenied indicates a target path outside the agent allow-list.
var ErrPermissionDenied = errors.New("agent permission denied")

// ErrInvalidTransition indicates a decision that is not legal for the task's
// current phase, e.g. "skip" outside a milestone review.
var ErrInvalidTransition = errors.New("invalid transition for current task status")
