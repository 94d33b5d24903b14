// internal/schema/rules.go
//
// Formstate – rule-based Validator.
//
// Context
//   Schema is the bundled Validator.  Each Rule describes one field: its
//   input type, required flag, length limits, regex pattern, allowed
//   options, an optional go-playground/validator tag, and an optional
//   asynchronous Check for lookups that must leave the process (uniqueness,
//   remote verification).  The checks mirror what the browser enforces from
//   HTML5 attributes so server and client agree.
//
// Workflow
//   •  New compiles patterns once, rejects duplicate or nameless rules, and
//      returns a *Schema safe for concurrent use.
//   •  ValidateFieldSync runs the static checks only.
//   •  ValidateField runs the static checks, then Check with the caller's
//      context.
//   •  ValidateAll walks rules in declaration order, runs both, and stops at
//      the first failure unless Options.CollectAll is set.
//
// Style
//   Default messages are full sentences with two spaces after periods.
//
//------------------------------------------------------------------------------

package schema

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// CheckFunc is an asynchronous, caller-supplied check.  Return a non-nil
// error to fail the field; its text becomes the message unless Rule.Message
// is set.
type CheckFunc func(ctx context.Context, value any, values map[string]any) error

// Rule declares the constraints for one field.
type Rule struct {
	Name      string    // field name.  Required.
	Type      string    // text, textarea, email, password, number, range, date, checkbox, select, radio, file.
	Required  bool      // empty values fail.
	MinLength int       // ≥ 0, 0 means unset.
	MaxLength int       // ≥ 0, 0 means unset.
	Pattern   string    // regular expression the whole value must match.
	Options   []string  // allowed values for select and radio.
	Tag       string    // go-playground/validator tag, e.g. "alphanum,lowercase".
	Message   string    // overrides every default message for this field.
	Check     CheckFunc // async-only check.  Skipped by ValidateFieldSync.
}

// Schema validates form values against an ordered rule list.
type Schema struct {
	rules    []Rule
	index    map[string]int
	patterns map[string]*regexp.Regexp
	validate *validator.Validate
}

// Compile-time check.
var _ Validator = (*Schema)(nil)

// ErrUnknownField is returned (wrapped) when a field has no rule.  It is not
// a *ValidationError, so the engine treats it as a contract violation.
var ErrUnknownField = errors.New("schema: unknown field")

// New builds a Schema from rules.
func New(rules ...Rule) (*Schema, error) {
	s := &Schema{
		rules:    make([]Rule, 0, len(rules)),
		index:    make(map[string]int, len(rules)),
		patterns: make(map[string]*regexp.Regexp),
		validate: validator.New(),
	}

	for _, r := range rules {
		if r.Name == "" {
			return nil, errors.New("schema: rule missing name")
		}
		if _, dup := s.index[r.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate rule for field %q", r.Name)
		}
		if r.MinLength < 0 || r.MaxLength < 0 {
			return nil, fmt.Errorf("schema: field %q minlength/maxlength cannot be negative", r.Name)
		}
		if r.MaxLength > 0 && r.MinLength > r.MaxLength {
			return nil, fmt.Errorf("schema: field %q minlength greater than maxlength", r.Name)
		}
		if r.Pattern != "" {
			re, err := regexp.Compile("^(?:" + r.Pattern + ")$")
			if err != nil {
				return nil, fmt.Errorf("schema: field %q invalid pattern: %w", r.Name, err)
			}
			s.patterns[r.Name] = re
		}
		s.index[r.Name] = len(s.rules)
		s.rules = append(s.rules, r)
	}
	return s, nil
}

// Fields returns the field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Name
	}
	return out
}

// ValidateFieldSync runs the static checks for name.
func (s *Schema) ValidateFieldSync(name string, values map[string]any) error {
	r, ok := s.rule(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, name)
	}
	if msg := s.check(r, values[name]); msg != "" {
		return fail(name, msg)
	}
	return nil
}

// ValidateField runs the static checks and then the rule's Check.
func (s *Schema) ValidateField(ctx context.Context, name string, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, ok := s.rule(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, name)
	}
	msg, err := s.checkAll(ctx, r, values)
	if err != nil {
		return err
	}
	if msg != "" {
		return fail(name, msg)
	}
	return nil
}

// ValidateAll validates every rule in declaration order.
func (s *Schema) ValidateAll(ctx context.Context, values map[string]any, opts Options) error {
	var inner []FieldError
	for i := range s.rules {
		msg, err := s.checkAll(ctx, &s.rules[i], values)
		if err != nil {
			return err
		}
		if msg == "" {
			continue
		}
		inner = append(inner, FieldError{Path: s.rules[i].Name, Message: msg})
		if !opts.CollectAll {
			break
		}
	}
	if len(inner) == 0 {
		return nil
	}

	ve := &ValidationError{Path: inner[0].Path, Inner: inner}
	for _, fe := range inner {
		ve.Messages = append(ve.Messages, fe.Message)
	}
	return ve
}

// -----------------------------------------------------------------------------
// Checks
// -----------------------------------------------------------------------------

func (s *Schema) rule(name string) (*Rule, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return &s.rules[i], true
}

// checkAll runs the static checks, then Check.  A context error aborts the
// pass and is returned as err rather than as a field message.
func (s *Schema) checkAll(ctx context.Context, r *Rule, values map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value := values[r.Name]
	if msg := s.check(r, value); msg != "" {
		return msg, nil
	}
	if r.Check == nil || isEmpty(r.Type, value) {
		return "", nil
	}
	if err := r.Check(ctx, value, values); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", err
		}
		return messageOr(r, err.Error()), nil
	}
	return "", nil
}

// check returns a user-facing message, or "" when value passes.
func (s *Schema) check(r *Rule, value any) string {
	if isEmpty(r.Type, value) {
		if r.Required {
			return messageOr(r, "This field is required.")
		}
		return ""
	}

	switch r.Type {
	case "", "text", "textarea", "password", "email", "search", "tel", "url":
		str, ok := value.(string)
		if !ok {
			return messageOr(r, "Invalid input.")
		}
		if msg := lengthCheck(r, str); msg != "" {
			return msg
		}
		if r.Type == "email" && s.validate.Var(str, "email") != nil {
			return messageOr(r, "Invalid input.")
		}
		if re := s.patterns[r.Name]; re != nil && !re.MatchString(str) {
			return messageOr(r, "Input does not match required format.")
		}

	case "number", "range":
		if _, ok := toNumber(value); !ok {
			return messageOr(r, "Invalid input.")
		}

	case "date":
		str, ok := value.(string)
		if !ok {
			if _, isTime := value.(time.Time); !isTime {
				return messageOr(r, "Invalid input.")
			}
			break
		}
		if _, err := time.Parse("2006-01-02", str); err != nil {
			return messageOr(r, "Invalid input.")
		}

	case "checkbox":
		if _, ok := value.(bool); !ok {
			return messageOr(r, "Invalid input.")
		}

	case "select", "radio":
		str, ok := value.(string)
		if !ok || !slices.Contains(r.Options, str) {
			return messageOr(r, "Invalid input.")
		}

	case "file":
		// Any non-empty handle is accepted; content checks belong to Check.

	default:
		return fmt.Sprintf("Unsupported field type %q.", r.Type)
	}

	if r.Tag != "" {
		if err := s.validate.Var(value, r.Tag); err != nil {
			return messageOr(r, tagMessage(err))
		}
	}
	return ""
}

// isEmpty mirrors browser semantics: missing, nil, blank strings, and an
// unchecked checkbox all count as "no value".
func isEmpty(typ string, v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return typ == "checkbox" && !t
	case []any:
		return len(t) == 0
	}
	return false
}

func lengthCheck(r *Rule, s string) string {
	n := utf8.RuneCountInString(s)
	if r.MinLength > 0 && n < r.MinLength {
		return messageOr(r, fmt.Sprintf("Must be at least %d characters.", r.MinLength))
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		return messageOr(r, fmt.Sprintf("Must be at most %d characters.", r.MaxLength))
	}
	return ""
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func tagMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("Failed the %q rule (%s).", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("Failed the %q rule.", fe.Tag())
	}
	return "Invalid input."
}

func messageOr(r *Rule, def string) string {
	if r.Message != "" {
		return r.Message
	}
	return def
}
