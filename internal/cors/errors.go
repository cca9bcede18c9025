package cors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the parent of every administrative input error.
	ErrInvalidInput = errors.New("cors: invalid input")
	// ErrInvalidOrigin is returned for empty origin strings.
	ErrInvalidOrigin = fmt.Errorf("%w: origin must not be empty", ErrInvalidInput)
	// ErrNotInitialized is returned by administrative calls made before Init.
	ErrNotInitialized = fmt.Errorf("%w: policy not initialized", ErrInvalidInput)

	// ErrAlreadyInitialized is returned by Init on a live policy.
	ErrAlreadyInitialized = errors.New("cors: policy already initialized")
	// ErrCredentialsWithWildcard is returned when credentials are combined with origin "*".
	ErrCredentialsWithWildcard = errors.New("cors: credentials cannot be allowed with wildcard origin")
	// ErrOriginSetPopulate is returned when an initial origin could not be stored.
	ErrOriginSetPopulate = errors.New("cors: failed to populate origin set")

	// ErrOriginExists is returned by AddOrigin for a configured origin.
	ErrOriginExists = errors.New("cors: origin already allowed")
	// ErrOriginNotFound is returned by RemoveOrigin for an unknown origin.
	ErrOriginNotFound = errors.New("cors: origin not found")
)

// ErrorKind classifies initialization failures.
type ErrorKind string

const (
	// KindConfiguration covers double initialization and credentials+wildcard conflicts.
	KindConfiguration ErrorKind = "configuration"
	// KindResource covers failures to populate the origin set.
	KindResource ErrorKind = "resource"
)

// InitError is returned by Policy.Init. The policy is left uninitialized.
type InitError struct {
	Kind   ErrorKind
	Origin string // offending origin, resource errors only
	Err    error
}

func (e *InitError) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("cors init (%s): %v: %q", e.Kind, e.Err, e.Origin)
	}
	return fmt.Sprintf("cors init (%s): %v", e.Kind, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
