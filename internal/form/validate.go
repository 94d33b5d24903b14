// internal/form/validate.go
//
// Formstate – validation orchestration.
//
// Context
//   Field mutation and single-field validation.  SetFieldValue writes a value
//   and, when asked, validates that field synchronously.  ValidateField does
//   the same through the schema's asynchronous path.  Both translate a
//   *schema.ValidationError into an ErrorStore entry; a failure of any other
//   shape is a validator contract violation, which is logged and dropped so
//   it never reaches the caller.  A cancelled ctx leaves the field as it was.
//
// Workflow
//   •  HandleChange / HandleInput / HandleBlur read the event target, coerce
//      number and range values, and call SetFieldValue with the matching
//      ValidateOn* flag.  HandleFocus records the value without validating.
//   •  Overlapping ValidateField calls for one field are not coalesced.
//      Whichever resolves last writes the ErrorStore entry.
//
//------------------------------------------------------------------------------

package form

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/AdeptTravel/formstate/internal/metrics"
	"github.com/AdeptTravel/formstate/internal/schema"
)

// maxParallelValidations caps ValidateFields fan-out.
const maxParallelValidations = 8

// SetFieldValue replaces one field, notifies subscribers, and validates the
// field synchronously when shouldValidate is true and a schema is set.
func (f *Form) SetFieldValue(name string, value any, shouldValidate bool) {
	f.values.set(name, value)

	if shouldValidate && f.cfg.Schema != nil {
		f.ValidateFieldSync(name)
	}
}

// ValidateField validates name against the current values using the
// schema's asynchronous validator.  It blocks until the validator returns.
// Run it in a goroutine for fire-and-forget validation.
func (f *Form) ValidateField(ctx context.Context, name string) {
	if f.cfg.Schema == nil {
		return
	}
	current := f.values.get()
	err := f.cfg.Schema.ValidateField(ctx, name, current)
	f.applyFieldResult(name, err)
}

// ValidateFieldSync is ValidateField through the synchronous validator.
func (f *Form) ValidateFieldSync(name string) {
	if f.cfg.Schema == nil {
		return
	}
	current := f.values.get()
	err := f.cfg.Schema.ValidateFieldSync(name, current)
	f.applyFieldResult(name, err)
}

// ValidateFields validates several fields concurrently and waits for all of
// them.
func (f *Form) ValidateFields(ctx context.Context, names ...string) {
	if f.cfg.Schema == nil || len(names) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(maxParallelValidations)
	for _, name := range names {
		name := name
		g.Go(func() error {
			f.ValidateField(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
}

// applyFieldResult maps a validator result onto the ErrorStore.
func (f *Form) applyFieldResult(name string, err error) {
	if err == nil {
		f.errors.settle(name, "")
		metrics.FieldValidationsTotal.WithLabelValues(metrics.ResultValid).Inc()
		return
	}

	if isContextErr(err) {
		f.log.Debugw("field validation abandoned", "field", name, "err", err)
		return
	}

	ve, ok := schema.AsValidationError(err)
	if !ok || ve.Path == "" || len(ve.Messages) == 0 {
		metrics.FieldValidationsTotal.WithLabelValues(metrics.ResultMalformed).Inc()
		f.log.Errorw("validator returned a failure without a field path and message",
			"field", name, "err", err)
		return
	}

	f.errors.settle(ve.Path, ve.Messages[0])
	metrics.FieldValidationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
}

// -----------------------------------------------------------------------------
// Event handlers
// -----------------------------------------------------------------------------

// HandleChange handles an element's change event.
func (f *Form) HandleChange(ev Event) { f.handle(ev, f.cfg.ValidateOnChange) }

// HandleInput handles an element's input event.
func (f *Form) HandleInput(ev Event) { f.handle(ev, f.cfg.ValidateOnInput) }

// HandleBlur handles an element losing focus.
func (f *Form) HandleBlur(ev Event) { f.handle(ev, f.cfg.ValidateOnBlur) }

// HandleFocus records the element's value without validating it.
func (f *Form) HandleFocus(ev Event) { f.handle(ev, false) }

func (f *Form) handle(ev Event, validate bool) {
	if ev == nil {
		f.log.Warnw("form event without target ignored")
		return
	}
	t := ev.Target()
	f.SetFieldValue(t.Name, InputValue(t), validate)
}
