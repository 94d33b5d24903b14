// internal/form/events.go
//
// Formstate – event model.
//
// Context
//   The UI layer (a DOM binding, the HTTP binding in internal/server, a test)
//   forwards element events into the Form.  The engine only needs the
//   originating field's name, input kind, and raw value, so an Event is
//   anything that can report its Target.  Submit events may additionally
//   offer PreventDefault and StopPropagation; both are optional and checked
//   with type assertions before use.
//
//------------------------------------------------------------------------------

package form

import (
	"math"
	"strconv"
	"strings"
)

// Target describes the element an event originated from.
type Target struct {
	Name  string // field name
	Type  string // input kind: text, number, range, checkbox, file, …
	Value any    // raw value as read from the element
}

// Event is a change, input, focus, or blur notification.
type Event interface {
	Target() Target
}

// PreventDefaulter is implemented by events whose default action can be
// suppressed.
type PreventDefaulter interface {
	PreventDefault()
}

// PropagationStopper is implemented by events that bubble.
type PropagationStopper interface {
	StopPropagation()
}

// InputEvent is a plain Event value.
type InputEvent Target

// Target implements Event.
func (e InputEvent) Target() Target { return Target(e) }

// InputValue returns the typed value for t.  number and range inputs holding
// a string are converted to float64 the way a browser's unary plus does: a
// blank string is 0 and anything unparsable is NaN.  Every other value is
// returned unchanged.
func InputValue(t Target) any {
	if t.Type != "number" && t.Type != "range" {
		return t.Value
	}
	raw, ok := t.Value.(string)
	if !ok {
		return t.Value
	}
	return unaryPlus(raw)
}

func unaryPlus(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
