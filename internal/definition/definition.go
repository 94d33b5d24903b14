// internal/definition/definition.go
//
// Formstate – YAML form definitions.
//
// Context
//   A form is declared in one YAML file: its identifier, fields (flat or
//   grouped into steps), which events trigger validation, and the actions to
//   run after a successful submit.  A FormDef turns into the three things a
//   live form needs: a schema.Schema, the initial values, and the
//   validate-on-event policy.
//
// Workflow
//   •  Parse decodes and checks one document.  Load reads it from disk.
//   •  Fields flattens steps so callers never care which layout was used.
//   •  Rules / Schema / InitialValues derive engine inputs from the fields.
//
// Style
//   Error strings name the source file first so a bad deploy is easy to
//   trace.
//
//------------------------------------------------------------------------------

package definition

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/AdeptTravel/formstate/internal/schema"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef is one form definition.
//
// ID is namespaced by directory, e.g. "account/signup".  A form has EITHER a
// flat Fields list OR a Steps list.
type FormDef struct {
	ID       string      `yaml:"id"`
	Title    string      `yaml:"title"`
	Fields   []FieldDef  `yaml:"fields"`
	Steps    []StepDef   `yaml:"steps"`
	Validate ValidateOn  `yaml:"validate"`
	Actions  []ActionDef `yaml:"actions"`
}

// FieldDef describes one input.
type FieldDef struct {
	Name      string   `yaml:"name"`
	Label     string   `yaml:"label"`
	Type      string   `yaml:"type"`
	Required  bool     `yaml:"required"`
	MinLength int      `yaml:"minlength"`
	MaxLength int      `yaml:"maxlength"`
	Pattern   string   `yaml:"pattern"`
	Options   []string `yaml:"options"`
	Tag       string   `yaml:"tag"`   // go-playground/validator tag
	ErrorMsg  string   `yaml:"error"` // overrides default messages
	Default   any      `yaml:"default"`
}

// StepDef groups fields into a wizard step.
type StepDef struct {
	ID     string     `yaml:"id"`
	Title  string     `yaml:"title"`
	Fields []FieldDef `yaml:"fields"`
}

// ValidateOn overrides the process-wide validate-on-event defaults for one
// form.  A nil pointer keeps the default.
type ValidateOn struct {
	Change *bool `yaml:"change"`
	Input  *bool `yaml:"input"`
	Blur   *bool `yaml:"blur"`
}

// ActionDef configures one post-submit action.  Params holds every other key
// of the YAML mapping so action kinds can grow without schema churn.
type ActionDef struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:",inline"`
}

// KnownActions lists the action types internal/action can execute.
var KnownActions = map[string]bool{
	"log":     true,
	"store":   true,
	"webhook": true,
}

var idPattern = regexp.MustCompile(`^[a-z0-9_-]+(/[a-z0-9_-]+)*$`)

// ValidID reports whether id is a well-formed definition ID.  IDs map onto
// file paths, so anything outside [a-z0-9_-] segments is refused.
func ValidID(id string) bool { return idPattern.MatchString(id) }

// -----------------------------------------------------------------------------
// Loader
// -----------------------------------------------------------------------------

// Load reads and parses the definition at path.
func Load(path string) (*FormDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}
	return Parse(raw, path)
}

// Parse decodes one YAML document.  src is used in error messages only.
func Parse(raw []byte, src string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := check(&fd, src); err != nil {
		return nil, err
	}
	return &fd, nil
}

// check enforces the rules YAML tags alone cannot express.
func check(fd *FormDef, src string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", src)
	}
	if !ValidID(fd.ID) {
		return fmt.Errorf("form definition %s: invalid id %q", src, fd.ID)
	}
	if len(fd.Fields) > 0 && len(fd.Steps) > 0 {
		return fmt.Errorf("form definition %s: cannot have both 'fields' and 'steps'", src)
	}
	if len(fd.Fields) == 0 && len(fd.Steps) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields' or 'steps'", src)
	}

	for si := range fd.Steps {
		if fd.Steps[si].ID == "" {
			fd.Steps[si].ID = fmt.Sprintf("step%d", si+1)
		}
	}

	seen := make(map[string]bool)
	for _, f := range fd.AllFields() {
		if f.Name == "" {
			return fmt.Errorf("form %s: field missing 'name'", src)
		}
		if f.Type == "" {
			return fmt.Errorf("form %s: field '%s' missing 'type'", src, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("form %s: duplicate field name '%s'", src, f.Name)
		}
		seen[f.Name] = true
	}

	// Length and pattern checks live in schema.New; surface them here so a
	// broken file fails at load time.
	if _, err := schema.New(fd.Rules()...); err != nil {
		return fmt.Errorf("form %s: %w", src, err)
	}

	for _, ac := range fd.Actions {
		if ac.Type == "" {
			return fmt.Errorf("form %s: action missing 'type'", src)
		}
		if !KnownActions[ac.Type] {
			zap.S().Warnw("unrecognised form action", "form", fd.ID, "type", ac.Type)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Derived engine inputs
// -----------------------------------------------------------------------------

// AllFields returns every field in declaration order, across steps.
func (fd *FormDef) AllFields() []FieldDef {
	if len(fd.Steps) == 0 {
		return fd.Fields
	}
	var out []FieldDef
	for _, s := range fd.Steps {
		out = append(out, s.Fields...)
	}
	return out
}

// Rules converts the fields to schema rules.
func (fd *FormDef) Rules() []schema.Rule {
	fields := fd.AllFields()
	rules := make([]schema.Rule, 0, len(fields))
	for _, f := range fields {
		rules = append(rules, schema.Rule{
			Name:      f.Name,
			Type:      f.Type,
			Required:  f.Required,
			MinLength: f.MinLength,
			MaxLength: f.MaxLength,
			Pattern:   f.Pattern,
			Options:   f.Options,
			Tag:       f.Tag,
			Message:   f.ErrorMsg,
		})
	}
	return rules
}

// Schema compiles the rules.
func (fd *FormDef) Schema() (*schema.Schema, error) {
	s, err := schema.New(fd.Rules()...)
	if err != nil {
		return nil, fmt.Errorf("form %s: %w", fd.ID, err)
	}
	return s, nil
}

// InitialValues returns one entry per field: the declared default, or the
// empty value for the field's type.
func (fd *FormDef) InitialValues() map[string]any {
	fields := fd.AllFields()
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Default != nil {
			out[f.Name] = f.Default
			continue
		}
		out[f.Name] = zeroValue(f.Type)
	}
	return out
}

func zeroValue(typ string) any {
	switch typ {
	case "checkbox":
		return false
	case "number", "range", "file":
		return nil
	default:
		return ""
	}
}

// Policy resolves the validate-on-event flags against process defaults.
func (fd *FormDef) Policy(change, input, blur bool) (onChange, onInput, onBlur bool) {
	return pick(fd.Validate.Change, change), pick(fd.Validate.Input, input), pick(fd.Validate.Blur, blur)
}

func pick(override *bool, def bool) bool {
	if override != nil {
		return *override
	}
	return def
}

// ErrNotFound is returned when no definition exists for an ID.
var ErrNotFound = errors.New("form definition not found")
