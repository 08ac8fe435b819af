package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInstanceFound reports that the registry holds no instance for a service.
	ErrNoInstanceFound = errors.New("no instance found")
	// ErrInvalidURL reports a virtual URL without scheme or service name.
	ErrInvalidURL = errors.New("invalid virtual url")
)

// NoInstanceFoundError names the service that could not be resolved.
type NoInstanceFoundError struct {
	Service string
}

func (e *NoInstanceFoundError) Error() string {
	return fmt.Sprintf("no instance found for service %q", e.Service)
}

func (e *NoInstanceFoundError) Is(target error) bool { return target == ErrNoInstanceFound }

// RegistryError wraps a failure talking to the registry itself, as opposed to
// the registry answering with zero matches.
type RegistryError struct {
	Op  string
	Err error
}

func (e *RegistryError) Error() string { return fmt.Sprintf("registry %s: %v", e.Op, e.Err) }

func (e *RegistryError) Unwrap() error { return e.Err }
