// internal/form/form_test.go
//
// Unit-tests for the form engine.
//
// Context
// -------
// These tests pin down the engine's observable contract:
//
//   • construction errors, copy-on-construct, and the initial error map,
//   • field mutation, event coercion, and validate-on-event policy,
//   • sync and async single-field validation, including malformed failures,
//   • the submit state machine: callback invocation, event capabilities,
//     error aggregation, flag resets, and the re-entrancy guard.
//
// fakeSchema lets a test script exactly what the validator returns.
//
// Run: go test ./internal/form -v

package form

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AdeptTravel/formstate/internal/schema"
)

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

func person() Values {
	return Values{
		"name":  "Esteban",
		"last":  "Borai",
		"email": "esteban@mail.com",
	}
}

func nameRequired(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Rule{Name: "name", Type: "text", Required: true, Message: "Name is required"},
		schema.Rule{Name: "last", Type: "text", Required: true, Message: "Last is required"},
		schema.Rule{Name: "email", Type: "email"},
	)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

func mustForm(t *testing.T, cfg *Config) *Form {
	t.Helper()
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

// fakeSchema returns scripted results.
type fakeSchema struct {
	field    func(ctx context.Context, name string, values map[string]any) error
	fieldSyn func(name string, values map[string]any) error
	all      func(ctx context.Context, values map[string]any, opts schema.Options) error
}

func (s *fakeSchema) ValidateField(ctx context.Context, name string, v map[string]any) error {
	return s.field(ctx, name, v)
}

func (s *fakeSchema) ValidateFieldSync(name string, v map[string]any) error {
	return s.fieldSyn(name, v)
}

func (s *fakeSchema) ValidateAll(ctx context.Context, v map[string]any, o schema.Options) error {
	return s.all(ctx, v, o)
}

// submitEvent counts capability calls.
type submitEvent struct{ prevented, stopped int }

func (e *submitEvent) PreventDefault()  { e.prevented++ }
func (e *submitEvent) StopPropagation() { e.stopped++ }

// -----------------------------------------------------------------------------
// Construction
// -----------------------------------------------------------------------------

func TestNewConfigErrors(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilConfig) {
		t.Fatalf("nil config: got %v", err)
	}
	if _, err := New(&Config{}); !errors.Is(err, ErrNoInitialValues) {
		t.Fatalf("missing initial values: got %v", err)
	}
	if _, err := New(&Config{InitialValues: Values{}}); err != nil {
		t.Fatalf("empty initial values should be accepted: %v", err)
	}
}

func TestInitialValuesAreCopied(t *testing.T) {
	initial := person()
	initial["tags"] = []any{"a"}
	f := mustForm(t, &Config{InitialValues: initial})

	initial["name"] = "John"
	initial["last"] = "Appleseed"
	initial["tags"].([]any)[0] = "changed"

	var got Values
	f.Values().Subscribe(func(v Values) { got = v })

	if got["name"] != "Esteban" || got["last"] != "Borai" {
		t.Fatalf("engine saw caller mutation: %v", got)
	}
	if got["tags"].([]any)[0] != "a" {
		t.Fatalf("nested slice shared with caller: %v", got["tags"])
	}
	if f.InitialValues()["name"] != "Esteban" {
		t.Fatalf("InitialValues changed: %v", f.InitialValues())
	}
}

func TestInitialErrorsMirrorValueKeys(t *testing.T) {
	f := mustForm(t, &Config{InitialValues: person()})

	want := Errors{"name": "", "last": "", "email": ""}
	if diff := cmp.Diff(want, f.FieldErrors()); diff != "" {
		t.Fatalf("initial errors (-want +got):\n%s", diff)
	}
	if f.Checked("name") {
		t.Fatalf("no field should be checked before validation")
	}
}

// -----------------------------------------------------------------------------
// Field mutation and events
// -----------------------------------------------------------------------------

func TestSetFieldValue(t *testing.T) {
	f := mustForm(t, &Config{InitialValues: person()})

	var notified []Values
	f.Values().Subscribe(func(v Values) { notified = append(notified, v) })

	before := f.Snapshot()
	f.SetFieldValue("name", "Testing!", false)

	got := f.Snapshot()
	want := Values{"name": "Testing!", "last": "Borai", "email": "esteban@mail.com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}
	if before["name"] != "Esteban" {
		t.Fatalf("earlier snapshot was mutated: %v", before)
	}
	if len(notified) != 2 || notified[1]["name"] != "Testing!" {
		t.Fatalf("subscriber not notified synchronously: %v", notified)
	}
	if diff := cmp.Diff([]string{"name"}, f.Dirty()); diff != "" {
		t.Fatalf("dirty (-want +got):\n%s", diff)
	}
}

func TestInputCoercion(t *testing.T) {
	tests := []struct {
		typ   string
		value any
		want  any
	}{
		{"number", "1234", 1234.0},
		{"range", "1234", 1234.0},
		{"number", "  ", 0.0},
		{"text", "testing", "testing"},
		{"checkbox", true, true},
		{"number", 5.0, 5.0},
	}
	for _, tc := range tests {
		t.Run(tc.typ, func(t *testing.T) {
			f := mustForm(t, &Config{InitialValues: Values{"field": nil}})
			f.HandleInput(InputEvent{Name: "field", Type: tc.typ, Value: tc.value})
			if got := f.Snapshot()["field"]; got != tc.want {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}

	f := mustForm(t, &Config{InitialValues: Values{"n": 0}})
	f.HandleChange(InputEvent{Name: "n", Type: "number", Value: "12abc"})
	if v, ok := f.Snapshot()["n"].(float64); !ok || !math.IsNaN(v) {
		t.Fatalf("unparsable number should be NaN, got %#v", f.Snapshot()["n"])
	}
}

func TestValidateOnEventPolicy(t *testing.T) {
	s := nameRequired(t)
	f := mustForm(t, &Config{
		InitialValues:    person(),
		Schema:           s,
		ValidateOnChange: true,
	})

	f.HandleInput(InputEvent{Name: "name", Type: "text", Value: ""})
	if msg := f.FieldErrors()["name"]; msg != "" {
		t.Fatalf("input event validated with ValidateOnInput=false: %q", msg)
	}

	f.HandleChange(InputEvent{Name: "name", Type: "text", Value: ""})
	if msg := f.FieldErrors()["name"]; msg != "Name is required" {
		t.Fatalf("change event should validate, got %q", msg)
	}

	f.HandleFocus(InputEvent{Name: "last", Type: "text", Value: ""})
	if f.Checked("last") {
		t.Fatalf("focus must not validate")
	}
}

func TestNilEventIsIgnored(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := mustForm(t, &Config{InitialValues: person(), Logger: zap.New(core).Sugar()})

	f.HandleChange(nil)

	if diff := cmp.Diff(person(), f.Snapshot()); diff != "" {
		t.Fatalf("values changed (-want +got):\n%s", diff)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}

// -----------------------------------------------------------------------------
// Single-field validation
// -----------------------------------------------------------------------------

func TestValidateField(t *testing.T) {
	f := mustForm(t, &Config{
		InitialValues: Values{"name": "", "last": "", "email": ""},
		Schema:        nameRequired(t),
	})
	ctx := context.Background()

	f.ValidateField(ctx, "name")
	if msg := f.FieldErrors()["name"]; msg != "Name is required" {
		t.Fatalf("expected required message, got %q", msg)
	}

	f.SetFieldValue("name", "Testing!", false)
	f.ValidateField(ctx, "name")
	if msg := f.FieldErrors()["name"]; msg != "" {
		t.Fatalf("expected cleared error, got %q", msg)
	}
	if !f.Checked("name") {
		t.Fatalf("name should be checked after validation")
	}
}

func TestValidateFieldSyncViaSetFieldValue(t *testing.T) {
	f := mustForm(t, &Config{InitialValues: person(), Schema: nameRequired(t)})

	f.SetFieldValue("email", "not-an-email", true)
	if msg := f.FieldErrors()["email"]; msg != "Invalid input." {
		t.Fatalf("expected invalid email, got %q", msg)
	}

	f.SetFieldValue("email", "ok@mail.com", true)
	if msg := f.FieldErrors()["email"]; msg != "" {
		t.Fatalf("expected cleared error, got %q", msg)
	}
}

func TestMalformedFailureIsLoggedAndSwallowed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	bad := &fakeSchema{
		field: func(context.Context, string, map[string]any) error {
			return errors.New("boom")
		},
		fieldSyn: func(string, map[string]any) error {
			return &schema.ValidationError{Messages: []string{"no path"}}
		},
	}
	f := mustForm(t, &Config{
		InitialValues: person(),
		Schema:        bad,
		Logger:        zap.New(core).Sugar(),
	})

	f.ValidateField(context.Background(), "name")
	f.ValidateFieldSync("name")

	if msg := f.FieldErrors()["name"]; msg != "" {
		t.Fatalf("malformed failure reached the error map: %q", msg)
	}
	if f.Checked("name") {
		t.Fatalf("malformed failure must not settle the field")
	}
	if logs.FilterLevelExact(zap.ErrorLevel).Len() != 2 {
		t.Fatalf("expected two error logs, got %d", logs.Len())
	}
}

func TestCancelledValidationIsNotMalformed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := mustForm(t, &Config{
		InitialValues: Values{"name": "", "last": "", "email": ""},
		Schema:        nameRequired(t),
		Logger:        zap.New(core).Sugar(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.ValidateField(ctx, "name")

	if f.FieldErrors()["name"] != "" || f.Checked("name") {
		t.Fatalf("cancelled validation touched the error map")
	}
	if n := logs.FilterLevelExact(zap.ErrorLevel).Len(); n != 0 {
		t.Fatalf("cancellation logged at error level %d times", n)
	}
	if logs.FilterMessage("field validation abandoned").Len() != 1 {
		t.Fatalf("expected one debug entry, got %v", logs.All())
	}
}

func TestValidateFieldLastResolvedWins(t *testing.T) {
	entered := make(chan string, 2)
	release := map[string]chan struct{}{
		"slow": make(chan struct{}),
		"fast": make(chan struct{}),
	}
	s := &fakeSchema{
		field: func(_ context.Context, name string, v map[string]any) error {
			tag := v[name].(string)
			entered <- tag
			<-release[tag]
			return &schema.ValidationError{Path: name, Messages: []string{tag}}
		},
	}
	f := mustForm(t, &Config{InitialValues: Values{"name": ""}, Schema: s})

	slowDone := make(chan struct{})
	f.SetFieldValue("name", "slow", false)
	go func() {
		defer close(slowDone)
		f.ValidateField(context.Background(), "name")
	}()
	<-entered

	fastDone := make(chan struct{})
	f.SetFieldValue("name", "fast", false)
	go func() {
		defer close(fastDone)
		f.ValidateField(context.Background(), "name")
	}()
	<-entered

	close(release["fast"])
	<-fastDone
	if msg := f.FieldErrors()["name"]; msg != "fast" {
		t.Fatalf("after fast resolved: got %q", msg)
	}

	close(release["slow"])
	<-slowDone
	if msg := f.FieldErrors()["name"]; msg != "slow" {
		t.Fatalf("the call that resolves last should win, got %q", msg)
	}
}

func TestValidateFieldsRunsEveryField(t *testing.T) {
	f := mustForm(t, &Config{
		InitialValues: Values{"name": "", "last": "", "email": "x"},
		Schema:        nameRequired(t),
	})

	f.ValidateFields(context.Background(), "name", "last", "email")

	want := Errors{"name": "Name is required", "last": "Last is required", "email": "Invalid input."}
	if diff := cmp.Diff(want, f.FieldErrors()); diff != "" {
		t.Fatalf("errors (-want +got):\n%s", diff)
	}
}

func TestNoSchemaValidationIsNoop(t *testing.T) {
	f := mustForm(t, &Config{InitialValues: person()})
	f.ValidateField(context.Background(), "name")
	f.ValidateFieldSync("name")
	f.SetFieldValue("name", "", true)
	if f.Checked("name") {
		t.Fatalf("validation ran without a schema")
	}
}

// -----------------------------------------------------------------------------
// Submit
// -----------------------------------------------------------------------------

func TestHandleSubmitWithoutCallbackIsNoop(t *testing.T) {
	f := mustForm(t, &Config{InitialValues: person()})
	ev := &submitEvent{}

	if err := f.HandleSubmit(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.prevented != 0 || ev.stopped != 0 {
		t.Fatalf("event touched without OnSubmit: %+v", ev)
	}
}

func TestHandleSubmitCallsCallbackOnce(t *testing.T) {
	for _, withSchema := range []bool{false, true} {
		calls := 0
		var got Values
		cfg := &Config{
			InitialValues: person(),
			OnSubmit: func(_ context.Context, v Values, _ Helpers) error {
				calls++
				got = v
				return nil
			},
		}
		if withSchema {
			cfg.Schema = nameRequired(t)
		}
		f := mustForm(t, cfg)
		ev := &submitEvent{}

		if err := f.HandleSubmit(context.Background(), ev); err != nil {
			t.Fatalf("schema=%v: unexpected error %v", withSchema, err)
		}
		if calls != 1 {
			t.Fatalf("schema=%v: callback called %d times", withSchema, calls)
		}
		if ev.prevented != 1 || ev.stopped != 1 {
			t.Fatalf("schema=%v: capabilities called %+v", withSchema, ev)
		}
		if diff := cmp.Diff(person(), got); diff != "" {
			t.Fatalf("schema=%v: values (-want +got):\n%s", withSchema, diff)
		}
	}
}

func TestHandleSubmitAcceptsEventsWithoutCapabilities(t *testing.T) {
	calls := 0
	f := mustForm(t, &Config{
		InitialValues: person(),
		OnSubmit:      func(context.Context, Values, Helpers) error { calls++; return nil },
	})

	for _, ev := range []any{nil, "submit", InputEvent{Name: "x"}} {
		if err := f.HandleSubmit(context.Background(), ev); err != nil {
			t.Fatalf("%#v: unexpected error %v", ev, err)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestHandleSubmitValidationFailure(t *testing.T) {
	calls := 0
	f := mustForm(t, &Config{
		InitialValues: Values{"name": "", "last": "", "email": "ok@mail.com"},
		Schema:        nameRequired(t),
		OnSubmit:      func(context.Context, Values, Helpers) error { calls++; return nil },
	})

	var validating []bool
	f.IsValidating().Subscribe(func(b bool) { validating = append(validating, b) })

	err := f.HandleSubmit(context.Background(), nil)
	if !IsValidationError(err) || !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("callback called despite validation failure")
	}

	want := Errors{"name": "Name is required", "last": "Last is required", "email": ""}
	if diff := cmp.Diff(want, f.FieldErrors()); diff != "" {
		t.Fatalf("errors (-want +got):\n%s", diff)
	}

	var se *SubmitError
	errors.As(err, &se)
	if len(se.Fields) != 2 {
		t.Fatalf("expected one entry per invalid field, got %v", se.Fields)
	}

	if diff := cmp.Diff([]bool{false, true, false}, validating); diff != "" {
		t.Fatalf("validating transitions (-want +got):\n%s", diff)
	}
	if f.IsSubmitting().Get() || f.IsValidating().Get() {
		t.Fatalf("flags left set after failed submit")
	}
}

func TestHandleSubmitKeepsFirstMessagePerField(t *testing.T) {
	s := &fakeSchema{
		all: func(context.Context, map[string]any, schema.Options) error {
			return &schema.ValidationError{Inner: []schema.FieldError{
				{Path: "name", Message: "first"},
				{Path: "name", Message: "second"},
				{Path: "last", Message: "only"},
			}}
		},
	}
	f := mustForm(t, &Config{
		InitialValues: person(),
		Schema:        s,
		OnSubmit:      func(context.Context, Values, Helpers) error { return nil },
	})

	_ = f.HandleSubmit(context.Background(), nil)

	errs := f.FieldErrors()
	if errs["name"] != "first" || errs["last"] != "only" || errs["email"] != "" {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestHandleSubmitRequestsCollectAll(t *testing.T) {
	var got schema.Options
	s := &fakeSchema{
		all: func(_ context.Context, _ map[string]any, o schema.Options) error {
			got = o
			return nil
		},
	}
	f := mustForm(t, &Config{
		InitialValues: person(),
		Schema:        s,
		OnSubmit:      func(context.Context, Values, Helpers) error { return nil },
	})

	if err := f.HandleSubmit(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.CollectAll {
		t.Fatalf("whole-form validation must collect all failures")
	}
}

func TestHandleSubmitMalformedValidatorFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	var got Values
	f := mustForm(t, &Config{
		InitialValues: person(),
		Schema: &fakeSchema{all: func(context.Context, map[string]any, schema.Options) error {
			return errors.New("boom")
		}},
		OnSubmit: func(_ context.Context, v Values, _ Helpers) error { got = v; return nil },
		Logger:   zap.New(core).Sugar(),
	})
	f.SetFieldError("email", "kept")

	if err := f.HandleSubmit(context.Background(), nil); err != nil {
		t.Fatalf("malformed failure must not reach the caller, got %v", err)
	}
	if diff := cmp.Diff(person(), got); diff != "" {
		t.Fatalf("callback values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Errors{"name": "", "last": "", "email": "kept"}, f.FieldErrors()); diff != "" {
		t.Fatalf("errors changed (-want +got):\n%s", diff)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one error log, got %d", logs.Len())
	}
	if f.IsValidating().Get() || f.IsSubmitting().Get() {
		t.Fatalf("flags left set")
	}
}

func TestHandleSubmitReturnsContextErrors(t *testing.T) {
	calls := 0
	f := mustForm(t, &Config{
		InitialValues: person(),
		Schema: &fakeSchema{all: func(ctx context.Context, _ map[string]any, _ schema.Options) error {
			return ctx.Err()
		}},
		OnSubmit: func(context.Context, Values, Helpers) error { calls++; return nil },
		Logger:   zap.NewNop().Sugar(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.HandleSubmit(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("callback called after cancellation")
	}
	if f.IsSubmitting().Get() {
		t.Fatalf("isSubmitting left set")
	}
}

func TestHandleSubmitCallbackErrorPropagates(t *testing.T) {
	boom := errors.New("upstream down")
	f := mustForm(t, &Config{
		InitialValues: person(),
		OnSubmit:      func(context.Context, Values, Helpers) error { return boom },
	})

	if err := f.HandleSubmit(context.Background(), nil); err != boom {
		t.Fatalf("expected callback error verbatim, got %v", err)
	}
	if f.IsSubmitting().Get() {
		t.Fatalf("isSubmitting left set")
	}
}

func TestHandleSubmitHelpersSetFieldError(t *testing.T) {
	f := mustForm(t, &Config{
		InitialValues: person(),
		OnSubmit: func(_ context.Context, _ Values, h Helpers) error {
			h.SetFieldError("email", "Email already registered")
			return nil
		},
	})

	if err := f.HandleSubmit(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := f.FieldErrors()["email"]; msg != "Email already registered" {
		t.Fatalf("helper did not set error, got %q", msg)
	}
}

func TestHandleSubmitFlagsDuringCallback(t *testing.T) {
	var f *Form
	var submitting, validating bool
	f = mustForm(t, &Config{
		InitialValues: person(),
		Schema:        nameRequired(t),
		OnSubmit: func(context.Context, Values, Helpers) error {
			submitting = f.IsSubmitting().Get()
			validating = f.IsValidating().Get()
			return nil
		},
	})

	if f.IsValidating().Get() {
		t.Fatalf("validating before submit")
	}
	if err := f.HandleSubmit(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !submitting || validating {
		t.Fatalf("inside callback: submitting=%v validating=%v", submitting, validating)
	}
	if f.IsSubmitting().Get() || f.IsValidating().Get() {
		t.Fatalf("flags left set after submit")
	}
}

func TestHandleSubmitRejectsReentry(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	f := mustForm(t, &Config{
		InitialValues: person(),
		OnSubmit: func(context.Context, Values, Helpers) error {
			calls++
			close(entered)
			<-release
			return nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- f.HandleSubmit(context.Background(), nil) }()
	<-entered

	if err := f.HandleSubmit(context.Background(), nil); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one callback, got %d", calls)
	}
}

func TestHandleSubmitResetsFlagsOnPanic(t *testing.T) {
	panicked := false
	f := mustForm(t, &Config{
		InitialValues: person(),
		Schema: &fakeSchema{all: func(context.Context, map[string]any, schema.Options) error {
			if !panicked {
				panicked = true
				panic("validator bug")
			}
			return nil
		}},
		OnSubmit: func(context.Context, Values, Helpers) error { return nil },
	})

	func() {
		defer func() { _ = recover() }()
		_ = f.HandleSubmit(context.Background(), nil)
	}()

	if f.IsValidating().Get() || f.IsSubmitting().Get() {
		t.Fatalf("flags left set after panic")
	}
	if err := f.HandleSubmit(context.Background(), nil); err != nil {
		t.Fatalf("guard not released after panic: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Reset and replace
// -----------------------------------------------------------------------------

func TestResetRestoresInitialState(t *testing.T) {
	f := mustForm(t, &Config{InitialValues: person(), Schema: nameRequired(t)})

	f.SetFieldValue("name", "", true)
	f.ReplaceErrors(Errors{"last": "manual"})
	f.Reset()

	if diff := cmp.Diff(person(), f.Snapshot()); diff != "" {
		t.Fatalf("values after reset (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Errors{"name": "", "last": "", "email": ""}, f.FieldErrors()); diff != "" {
		t.Fatalf("errors after reset (-want +got):\n%s", diff)
	}
	if f.Checked("name") || len(f.Dirty()) != 0 {
		t.Fatalf("reset left state behind")
	}
}

func TestReplaceValuesCopies(t *testing.T) {
	f := mustForm(t, &Config{InitialValues: person()})
	next := Values{"name": "Q"}
	f.ReplaceValues(next)
	next["name"] = "changed"

	if f.Snapshot()["name"] != "Q" {
		t.Fatalf("ReplaceValues kept caller reference")
	}
}

func TestErrorStoreObservers(t *testing.T) {
	f := mustForm(t, &Config{InitialValues: person()})

	var seen []Errors
	unsubscribe := f.Errors().Subscribe(func(e Errors) { seen = append(seen, e) })
	defer unsubscribe()

	f.SetFieldError("email", "Email is taken")
	f.SetFieldError("email", "")
	f.ReplaceErrors(Errors{"name": "bad"})

	want := []Errors{
		{"name": "", "last": "", "email": ""},
		{"name": "", "last": "", "email": "Email is taken"},
		{"name": "", "last": "", "email": ""},
		{"name": "bad"},
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("observed errors (-want +got):\n%s", diff)
	}
	if f.Checked("name") {
		t.Fatalf("ReplaceErrors must not mark fields as checked")
	}
}
