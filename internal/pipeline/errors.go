package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind int

const (
	// KindExtraction is any phase failing on a document.
	KindExtraction Kind = iota
	// KindInput means the input is not a readable PDF.
	KindInput
	// KindModelUnavailable means a model could not be initialized.
	KindModelUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindModelUnavailable:
		return "model_unavailable"
	default:
		return "extraction"
	}
}

// Error wraps the failure of one phase.
type Error struct {
	Kind  Kind
	Phase string
	Err   error
}

func (e *Error) Error() string {
	if e.Phase == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, phase string, err error) error {
	return &Error{Kind: kind, Phase: phase, Err: err}
}

// ModelUnavailable reports a model that failed to initialize.
func ModelUnavailable(component string, err error) error {
	return newError(KindModelUnavailable, component, err)
}

// KindOf returns the kind of err, KindExtraction for foreign errors.
func KindOf(err error) Kind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return KindExtraction
}

func IsInput(err error) bool {
	return err != nil && KindOf(err) == KindInput
}

func IsModelUnavailable(err error) bool {
	return err != nil && KindOf(err) == KindModelUnavailable
}
