package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotTranslated reports a host path with no target counterpart.
	ErrPathNotTranslated = errors.New("path cannot be translated to target syntax")

	// ErrUnsupportedBinding reports a port binding that would need a forwarder.
	ErrUnsupportedBinding = errors.New("port forwarder is not implemented")
)

// BindingError describes the port binding that was rejected.
type BindingError struct {
	Kind   string // "target" or "local"
	Target int
	Local  int
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%s port binding target=%d local=%d: %v", e.Kind, e.Target, e.Local, ErrUnsupportedBinding)
}

func (e *BindingError) Unwrap() error { return ErrUnsupportedBinding }

// ExecutionError is returned when a process could not be prepared or spawned.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
