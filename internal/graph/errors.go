package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the graph model.
var (
	// ErrDuplicateNode indicates that a node id was added twice.
	ErrDuplicateNode = errors.New("graph: duplicate node id")

	// ErrUnknownNode indicates that an id or index does not name a node.
	ErrUnknownNode = errors.New("graph: unknown node")

	// ErrInvalidLength indicates a negative or non-finite explicit road length.
	ErrInvalidLength = errors.New("graph: invalid edge length")

	// ErrUnknownEdge indicates that an edge index is out of range.
	ErrUnknownEdge = errors.New("graph: unknown edge")

	// ErrTrafficUnderflow indicates a release on an edge that carries no traffic.
	ErrTrafficUnderflow = errors.New("graph: traffic released below zero")
)

// ConfigError reports a malformed topology. Loading must abort on it.
type ConfigError struct {
	Op  string // "add node", "add edge"
	ID  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// InvariantViolation reports an internal contract breach: mismatched
// commit/release calls or a corrupted priority queue. It is a programmer
// error and callers should stop rather than continue on corrupted state.
type InvariantViolation struct {
	Op     string
	Detail string
	Err    error
}

func (e *InvariantViolation) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invariant violation in %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("invariant violation in %s (%s): %v", e.Op, e.Detail, e.Err)
}

func (e *InvariantViolation) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsInvariantViolation reports whether err is, or wraps, an *InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
