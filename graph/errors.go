// Package graph provides the graph definition, compilation, and execution
// engine for stategraph.
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIterationLimitExceeded indicates that a node was about to be revisited
// more times than the configured bound allows. It is reported distinctly from
// a node failure so callers can tell "gave up after looping" from "crashed".
var ErrIterationLimitExceeded = errors.New("iteration limit exceeded")

// ErrUndeclaredOutcome indicates that a router returned an outcome name that
// was not declared in its outcome map. This is a programming error in the
// graph definition, never a recoverable runtime condition.
var ErrUndeclaredOutcome = errors.New("undeclared routing outcome")

// ValidationError reports every problem found while compiling a graph
// definition. Compilation never repairs a malformed graph silently; all
// problems are collected and reported together.
type ValidationError struct {
	// Problems lists each validation failure in a stable order.
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid graph: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid graph: %d problems: %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

// NodeError represents a failure during node execution. It carries the node
// name so Failed results can report which node failed and why.
type NodeError struct {
	// NodeID identifies the node that failed.
	NodeID string

	// Message is a human-readable description of the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}

// RoutingError represents a router returning an outcome outside its declared
// outcome set. Always fatal to the run.
type RoutingError struct {
	// NodeID is the node whose conditional edge misrouted.
	NodeID string

	// Outcome is the undeclared outcome name the router returned.
	Outcome string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("node %s: router returned undeclared outcome %q", e.NodeID, e.Outcome)
}

// Unwrap returns ErrUndeclaredOutcome so errors.Is can classify the failure.
func (e *RoutingError) Unwrap() error {
	return ErrUndeclaredOutcome
}

// IterationLimitError represents a loop-back exceeding its configured bound.
type IterationLimitError struct {
	// NodeID is the node whose revisit count exceeded the bound.
	NodeID string

	// Limit is the configured maximum number of repeat visits.
	Limit int
}

// Error implements the error interface.
func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("node %s: exceeded iteration limit of %d repeat visits", e.NodeID, e.Limit)
}

// Unwrap returns ErrIterationLimitExceeded so errors.Is can classify the failure.
func (e *IterationLimitError) Unwrap() error {
	return ErrIterationLimitExceeded
}
