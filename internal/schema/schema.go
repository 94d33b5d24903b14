// internal/schema/schema.go
//
// Formstate – validator contract.
//
// Context
//   The form engine never inspects schema internals.  It talks to a
//   Validator through three calls: an asynchronous single-field check, a
//   synchronous single-field check, and a whole-form check that can collect
//   every failure instead of stopping at the first.  Failures come back as
//   *ValidationError; anything else is a contract violation the engine logs
//   and ignores.
//
// Workflow
//   •  ValidateField / ValidateFieldSync return nil or a *ValidationError
//      whose Path names the field and whose Messages holds at least one
//      user-facing message.
//   •  ValidateAll returns nil or a *ValidationError whose Inner slice lists
//      one FieldError per failed check, in rule order.
//
//------------------------------------------------------------------------------

package schema

import (
	"context"
	"errors"
	"strings"
)

// Options tunes whole-form validation.
type Options struct {
	// CollectAll keeps validating after the first failure.
	CollectAll bool
}

// Validator is the capability a form needs from a schema.
type Validator interface {
	ValidateField(ctx context.Context, name string, values map[string]any) error
	ValidateFieldSync(name string, values map[string]any) error
	ValidateAll(ctx context.Context, values map[string]any, opts Options) error
}

// FieldError is one failed check on one field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError is the only failure shape the engine understands.
type ValidationError struct {
	Path     string       // field of the first failure
	Messages []string     // messages for Path, or every message on ValidateAll
	Inner    []FieldError // populated by ValidateAll
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case len(e.Messages) == 1:
		return e.Messages[0]
	case len(e.Messages) > 1:
		return strings.Join(e.Messages, "; ")
	default:
		return "validation failed"
	}
}

// AsValidationError extracts a *ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) && ve != nil {
		return ve, true
	}
	return nil, false
}

// fail builds the single-field failure for name.
func fail(name, msg string) *ValidationError {
	return &ValidationError{Path: name, Messages: []string{msg}}
}
