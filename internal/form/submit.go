// internal/form/submit.go
//
// Formstate – submit state machine.
//
// Context
//   Idle → Submitting → (Validating)? → Idle.  HandleSubmit captures the
//   current values, validates the whole form (collecting every failure), and
//   either rewrites the error map or hands the captured values to OnSubmit.
//
// Workflow
//   •  No OnSubmit configured: no-op.
//   •  PreventDefault and StopPropagation are called when the event has them.
//   •  One cycle at a time.  A second call while a cycle is in flight returns
//      ErrSubmitInProgress and changes nothing.
//   •  isSubmitting and isValidating are cleared by defer on every exit path,
//      including a panicking validator or callback.
//   •  Validation failure: ErrorStore replaced, *SubmitError returned,
//      OnSubmit skipped.  Validator contract violation (a failure with no
//      field errors): logged, ErrorStore untouched, submit continues to
//      OnSubmit.  A cancelled or expired ctx is returned as is.
//   •  OnSubmit errors are returned unchanged.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"

	"github.com/AdeptTravel/formstate/internal/metrics"
	"github.com/AdeptTravel/formstate/internal/schema"
)

// Submit errors.
var (
	ErrSubmitInProgress = errors.New("form: submit already in progress")
	ErrValidationFailed = errors.New("form validation failed")
)

// SubmitError is returned when whole-form validation rejects a submit.
// Fields holds one entry per invalid field, in validator order.
type SubmitError struct{ Fields []schema.FieldError }

func (e *SubmitError) Error() string { return ErrValidationFailed.Error() }

// Unwrap lets errors.Is(err, ErrValidationFailed) match.
func (e *SubmitError) Unwrap() error { return ErrValidationFailed }

// IsValidationError reports whether err came from failed whole-form
// validation.
func IsValidationError(err error) bool {
	var se *SubmitError
	return errors.As(err, &se)
}

// HandleSubmit runs one submit cycle.  ev may be nil or any value; only its
// optional PreventDefault and StopPropagation capabilities are used.
func (f *Form) HandleSubmit(ctx context.Context, ev any) error {
	if f.cfg.OnSubmit == nil {
		return nil
	}

	if p, ok := ev.(PreventDefaulter); ok {
		p.PreventDefault()
	}
	if s, ok := ev.(PropagationStopper); ok {
		s.StopPropagation()
	}

	if !f.inFlight.CompareAndSwap(false, true) {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeBusy).Inc()
		return ErrSubmitInProgress
	}
	defer f.inFlight.Store(false)

	current := f.values.get()

	defer enter(f.state.submitting)()

	if f.cfg.Schema != nil {
		if err := f.validateAll(ctx, current); err != nil {
			return err
		}
	}

	if err := f.cfg.OnSubmit(ctx, current, helpers{f}); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeCallbackError).Inc()
		return err
	}

	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeSubmitted).Inc()
	f.log.Debugw("form submitted", "fields", len(current))
	return nil
}

// validateAll runs whole-form validation inside the Validating state.
func (f *Form) validateAll(ctx context.Context, values Values) error {
	defer enter(f.state.validating)()

	err := f.cfg.Schema.ValidateAll(ctx, values, schema.Options{CollectAll: true})
	if err == nil {
		return nil
	}

	if isContextErr(err) {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeCanceled).Inc()
		return err
	}

	fields := firstPerField(err)
	if len(fields) == 0 {
		metrics.MalformedFormValidationsTotal.Inc()
		f.log.Errorw("whole-form validation failed without field errors", "err", err)
		return nil
	}

	errs := make(Errors, len(values)+len(fields))
	for name := range values {
		errs[name] = ""
	}
	for _, fe := range fields {
		errs[fe.Path] = fe.Message
	}
	f.errors.replaceAll(errs, true)

	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
	return &SubmitError{Fields: fields}
}

// isContextErr reports whether err comes from ctx cancellation or deadline.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// firstPerField keeps the first message reported for each path.  A failure
// with no Inner list falls back to its own Path and first message.  A result
// of nil means err is not a usable *schema.ValidationError.
func firstPerField(err error) []schema.FieldError {
	ve, ok := schema.AsValidationError(err)
	if !ok {
		return nil
	}

	inner := ve.Inner
	if len(inner) == 0 && ve.Path != "" && len(ve.Messages) > 0 {
		inner = []schema.FieldError{{Path: ve.Path, Message: ve.Messages[0]}}
	}

	seen := make(map[string]bool, len(inner))
	out := make([]schema.FieldError, 0, len(inner))
	for _, fe := range inner {
		if fe.Path == "" || fe.Message == "" || seen[fe.Path] {
			continue
		}
		seen[fe.Path] = true
		out = append(out, fe)
	}
	return out
}
