// Package mlerror defines the typed error taxonomy surfaced by the
// provider facade and its engines.
package mlerror

import "fmt"

// Internal represents an unexpected failure surfaced verbatim to the caller.
type Internal struct {
	Message string
	Cause   error
}

func (e *Internal) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *Internal) Unwrap() error {
	return e.Cause
}

// ContextNotFound indicates an operation referenced an unknown model_id or
// execution context.
type ContextNotFound struct {
	Message string
}

func (e *ContextNotFound) Error() string {
	return fmt.Sprintf("context not found: %s", e.Message)
}

// InvalidMetadata indicates metadata could not be parsed or reconciled.
type InvalidMetadata struct {
	Message string
}

func (e *InvalidMetadata) Error() string {
	return fmt.Sprintf("invalid metadata: %s", e.Message)
}

// Processor indicates an error originated in an external pre-/post-processor.
type Processor struct {
	Message string
}

func (e *Processor) Error() string {
	return fmt.Sprintf("processor error: %s", e.Message)
}

// InvalidEncoding indicates the requested graph encoding maps to no engine.
type InvalidEncoding struct {
	Encoding string
}

func (e *InvalidEncoding) Error() string {
	return fmt.Sprintf("invalid encoding: %s", e.Encoding)
}

// UnsupportedExecutionTarget indicates a non-CPU target was requested from a
// CPU-only engine.
type UnsupportedExecutionTarget struct {
	Target string
}

func (e *UnsupportedExecutionTarget) Error() string {
	return fmt.Sprintf("unsupported execution target: %s", e.Target)
}

// IsInternal reports whether err is an *Internal.
func IsInternal(err error) bool {
	_, ok := err.(*Internal)
	return ok
}

// IsContextNotFound reports whether err is a *ContextNotFound.
func IsContextNotFound(err error) bool {
	_, ok := err.(*ContextNotFound)
	return ok
}

// IsInvalidMetadata reports whether err is an *InvalidMetadata.
func IsInvalidMetadata(err error) bool {
	_, ok := err.(*InvalidMetadata)
	return ok
}

// IsProcessor reports whether err is a *Processor.
func IsProcessor(err error) bool {
	_, ok := err.(*Processor)
	return ok
}

// IsInvalidEncoding reports whether err is an *InvalidEncoding.
func IsInvalidEncoding(err error) bool {
	_, ok := err.(*InvalidEncoding)
	return ok
}

// IsUnsupportedExecutionTarget reports whether err is an
// *UnsupportedExecutionTarget.
func IsUnsupportedExecutionTarget(err error) bool {
	_, ok := err.(*UnsupportedExecutionTarget)
	return ok
}

// Wrap maps an arbitrary error from a subsystem (registry fetch, tar
// decode, engine call) into the MlError taxonomy. An error that already is
// one of the variants above (Internal, ContextNotFound, InvalidMetadata,
// Processor, InvalidEncoding, UnsupportedExecutionTarget) passes through
// unchanged; everything else becomes Internal.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	switch err.(type) {
	case *ContextNotFound, *InvalidMetadata, *Processor, *InvalidEncoding, *UnsupportedExecutionTarget, *Internal:
		return err
	default:
		return &Internal{Message: err.Error(), Cause: err}
	}
}
