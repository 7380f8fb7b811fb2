package framework

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching against the typed errors below.
var (
	// ErrUnknownFramework is matched by *UnknownFrameworkError.
	ErrUnknownFramework = errors.New("unknown framework")

	// ErrMalformedControlID is matched by *MalformedControlIDError.
	ErrMalformedControlID = errors.New("malformed control id")

	// ErrDuplicateFramework is returned by NewRegistry when two entries share an ID.
	ErrDuplicateFramework = errors.New("duplicate framework id")
)

// UnknownFrameworkError is returned when a framework ID is not registered.
// This is a configuration or programming error and is treated as fatal.
type UnknownFrameworkError struct {
	ID string
}

// Error implements the error interface.
func (e *UnknownFrameworkError) Error() string {
	return fmt.Sprintf("unknown framework %q", e.ID)
}

// Is reports whether target is ErrUnknownFramework.
func (e *UnknownFrameworkError) Is(target error) bool {
	return target == ErrUnknownFramework
}

// MalformedControlIDError is returned when a control ID does not match the
// grammar of its framework family. It carries enough context to locate the
// offending table row.
type MalformedControlIDError struct {
	FrameworkID string
	ControlID   string
	Reason      string
}

// Error implements the error interface.
func (e *MalformedControlIDError) Error() string {
	return fmt.Sprintf("malformed control id %q for framework %q: %s", e.ControlID, e.FrameworkID, e.Reason)
}

// Is reports whether target is ErrMalformedControlID.
func (e *MalformedControlIDError) Is(target error) bool {
	return target == ErrMalformedControlID
}

// malformed is a shorthand used by the resolvers.
func malformed(frameworkID, controlID, format string, args ...any) error {
	return &MalformedControlIDError{
		FrameworkID: frameworkID,
		ControlID:   controlID,
		Reason:      fmt.Sprintf(format, args...),
	}
}
