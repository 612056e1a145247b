package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds the rest of the module classifies against via
// errors.Is. They mirror the taxonomy used throughout the engine: capacity,
// not-found, invariant, and invalid-argument failures are all returned
// synchronously and leave the store unchanged.
var (
	ErrCapacityExceeded = errors.New("graph: capacity exceeded")
	ErrNotFound         = errors.New("graph: not found")
	ErrInvariant        = errors.New("graph: invariant violation")
	ErrInvalidArgument  = errors.New("graph: invalid argument")
)

// InvariantError aggregates every invariant violation found by
// validateConsistency, rather than surfacing only the first. It is used for
// diagnostics and tests, never as part of the steady-state correctness
// contract.
type InvariantError struct {
	Violations []string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("graph: %d invariant violation(s): %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// NotFoundError names the kind ("node" or "edge") and id of the missing
// element.
type NotFoundError struct {
	Kind string // "node" or "edge"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("graph: %s %q not found: %v", e.Kind, e.ID, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// CapacityError names which cap was hit.
type CapacityError struct {
	Limit string // "maxNodes" or "maxEdgesPerNode"
	Value int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("graph: %s exceeded (limit %d): %v", e.Limit, e.Value, ErrCapacityExceeded)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// InvalidArgumentError names the offending field.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("graph: invalid argument %s: %s: %v", e.Field, e.Reason, ErrInvalidArgument)
}

func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}
