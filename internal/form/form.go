// internal/form/form.go
//
// Formstate – form engine factory.
//
// Context
//   A Form tracks the current field values, one error message per field, and
//   two lifecycle flags (submitting and validating) for a single logical
//   form.  Each piece of state lives in its own observable store so a UI
//   binding can subscribe to exactly what it renders.  Event handlers
//   (HandleChange, HandleInput, HandleBlur, HandleFocus, HandleSubmit) keep
//   the stores in sync and apply the validation policy from Config.
//
// Workflow
//   •  New copies InitialValues structurally, seeds the error map with one
//      empty entry per initial field, and wires the stores together.
//   •  values.go and fielderrors.go hold the value and error containers.
//   •  validate.go drives single-field validation against the schema.
//   •  submit.go runs the submit state machine.
//
// Notes
//   Each Form owns its stores.  Nothing here is package-level state, so any
//   number of forms can live side by side.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/AdeptTravel/formstate/internal/schema"
	"github.com/AdeptTravel/formstate/internal/store"
	"github.com/AdeptTravel/formstate/internal/structural"
)

// Values maps field names to values of any type: strings, numbers, booleans,
// file handles, nested maps, or slices.  Snapshots handed out by a Form are
// never mutated by the Form; callers must not mutate them either.
type Values = map[string]any

// Errors maps field names to an error message.  An empty message, or a
// missing key, means the field has no error.
type Errors = map[string]string

// SubmitFunc is called with the values captured at submit time.  Its error is
// returned from HandleSubmit unchanged.
type SubmitFunc func(ctx context.Context, values Values, h Helpers) error

// Helpers is handed to SubmitFunc so the callback can report server-side
// failures back into the error map.
type Helpers interface {
	SetFieldError(name, message string)
}

// Config is the constructor input for New.
type Config struct {
	// InitialValues is required.  An empty, non-nil map is allowed.
	InitialValues Values

	// Schema validates fields and the whole form.  Optional.
	Schema schema.Validator

	// Auto-validate the changed field on these events.  Default false.
	ValidateOnChange bool
	ValidateOnInput  bool
	ValidateOnBlur   bool

	// OnSubmit is required for HandleSubmit to do anything.
	OnSubmit SubmitFunc

	// Logger receives validator contract violations.  Defaults to zap.S().
	Logger *zap.SugaredLogger
}

// Configuration errors returned by New.
var (
	ErrNilConfig       = errors.New("form: config is required")
	ErrNoInitialValues = errors.New("form: config.InitialValues is required")
)

// Form is one live form.  All methods are safe for concurrent use.
type Form struct {
	cfg     Config
	log     *zap.SugaredLogger
	initial Values

	values *valueStore
	errors *errorStore
	state  *submissionState

	inFlight atomic.Bool
}

// New validates cfg and returns a ready Form.
func New(cfg *Config) (*Form, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if cfg.InitialValues == nil {
		return nil, ErrNoInitialValues
	}

	log := cfg.Logger
	if log == nil {
		log = zap.S()
	}

	initial := structural.Clone(cfg.InitialValues)

	return &Form{
		cfg:     *cfg,
		log:     log,
		initial: initial,
		values:  newValueStore(structural.Clone(initial)),
		errors:  newErrorStore(structural.Fill(initial, "")),
		state:   newSubmissionState(),
	}, nil
}

// -----------------------------------------------------------------------------
// Observables
// -----------------------------------------------------------------------------

// Values is the value-snapshot stream.
func (f *Form) Values() store.Readable[Values] { return store.ReadOnly(f.values.w) }

// Errors is the error-map stream.
func (f *Form) Errors() store.Readable[Errors] { return store.ReadOnly(f.errors.w) }

// IsSubmitting is true for the duration of a submit cycle.
func (f *Form) IsSubmitting() store.Readable[bool] { return store.ReadOnly(f.state.submitting) }

// IsValidating is true while whole-form validation runs inside a submit cycle.
func (f *Form) IsValidating() store.Readable[bool] { return store.ReadOnly(f.state.validating) }

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// Snapshot returns the current values.
func (f *Form) Snapshot() Values { return f.values.get() }

// FieldErrors returns the current error map.
func (f *Form) FieldErrors() Errors { return f.errors.get() }

// InitialValues returns a copy of the values the form was created with.
func (f *Form) InitialValues() Values { return structural.Clone(f.initial) }

// Dirty lists the initial fields whose current value differs from the
// initial one, sorted by name.
func (f *Form) Dirty() []string { return structural.Diff(f.initial, f.values.get()) }

// Checked reports whether name has a settled validation result, as opposed
// to never having been validated.
func (f *Form) Checked(name string) bool { return f.errors.isChecked(name) }

// SetFieldError sets, or with an empty message clears, the error for name.
func (f *Form) SetFieldError(name, message string) { f.errors.setFieldError(name, message) }

// ReplaceValues overwrites every value.  No validation runs.
func (f *Form) ReplaceValues(values Values) { f.values.replaceAll(structural.Clone(values)) }

// ReplaceErrors overwrites the whole error map.
func (f *Form) ReplaceErrors(errs Errors) { f.errors.replaceAll(errs, false) }

// Reset restores the initial values and clears every error.
func (f *Form) Reset() {
	f.values.replaceAll(structural.Clone(f.initial))
	f.errors.reset(structural.Fill(f.initial, ""))
}

// helpers adapts Form to the Helpers handed to SubmitFunc.
type helpers struct{ f *Form }

func (h helpers) SetFieldError(name, message string) { h.f.SetFieldError(name, message) }
