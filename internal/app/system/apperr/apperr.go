// Package apperr defines the error taxonomy shared by services, stores and
// HTTP features.
//
// Services wrap a sentinel with a user-facing message:
//
//	return fmt.Errorf("%w: only admins can approve files", apperr.ErrForbidden)
//
// and the HTTP edge maps the sentinel to a status code with errors.Is.
package apperr

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthenticated means no resolvable caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller is known but lacks role or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means a referenced id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTarget means the target exists but is not in the state the
	// operation requires (e.g. approving a non-pending file).
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidState means the record itself is in the wrong state for the
	// transition (e.g. reverting a pending approval).
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput means the request was malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict means a uniqueness rule would be violated.
	ErrConflict = errors.New("conflict")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrUnauthenticated, "unauthenticated"},
	{ErrForbidden, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrInvalidTarget, "invalid_target"},
	{ErrInvalidState, "invalid_state"},
	{ErrInvalidInput, "invalid_input"},
	{ErrConflict, "conflict"},
}

// Kind returns a stable machine-readable name for err, or "internal" when
// err does not wrap any sentinel of this package.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// Message returns the user-facing part of err: the text after the sentinel
// prefix, or the sentinel text itself when nothing was added.
func Message(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			prefix := k.err.Error() + ": "
			if strings.HasPrefix(s, prefix) {
				return strings.TrimPrefix(s, prefix)
			}
			return s
		}
	}
	return s
}
