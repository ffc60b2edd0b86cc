package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Issue describes one way a value fails its schema.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Issues is a list of schema violations.
type Issues []Issue

func (is Issues) Error() string {
	return strings.Join(is.Strings(), "; ")
}

// Strings renders every issue as "path: message".
func (is Issues) Strings() []string {
	out := make([]string, 0, len(is))
	for _, i := range is {
		out = append(out, i.String())
	}
	return out
}

// resolved caches resolved schemas by node. Nodes are never changed after
// they are built, and a node must not be shared between two parents.
var resolved sync.Map

func resolve(s *Schema) (*jsonschema.Resolved, error) {
	if rs, ok := resolved.Load(s); ok {
		return rs.(*jsonschema.Resolved), nil
	}
	rs, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema: %w", err)
	}
	actual, _ := resolved.LoadOrStore(s, rs)
	return actual.(*jsonschema.Resolved), nil
}

// shallows caches, per node, a copy without its children so that each
// level is checked on its own keywords.
var shallows sync.Map

func shallow(s *Schema) *Schema {
	if c, ok := shallows.Load(s); ok {
		return c.(*Schema)
	}
	c := *s
	c.Properties = nil
	c.Required = nil
	c.Items = nil
	actual, _ := shallows.LoadOrStore(s, &c)
	return actual.(*Schema)
}

// Validate checks value against s and returns every issue found, or nil.
// Each node is checked by the JSON Schema validator and then the whole value
// is checked once more, so a value is accepted only when the validator
// accepts it. Null optional properties count as absent.
func Validate(s *Schema, value any) Issues {
	var issues Issues
	walk(s, "", value, &issues)
	if len(issues) > 0 {
		return issues
	}

	rs, err := resolve(s)
	if err != nil {
		return Issues{{Message: err.Error()}}
	}
	if err := rs.Validate(withoutNullOptionals(s, value)); err != nil {
		return Issues{{Message: cause(err).Error()}}
	}
	return nil
}

func walk(s *Schema, path string, value any, issues *Issues) {
	if s == nil {
		return
	}

	rs, err := resolve(shallow(s))
	if err != nil {
		*issues = append(*issues, Issue{Path: path, Message: err.Error()})
		return
	}
	if err := rs.Validate(value); err != nil {
		*issues = append(*issues, Issue{Path: path, Message: describe(s, value, cause(err))})
		if strings.HasPrefix(cause(err).Error(), "type:") {
			return
		}
	}

	switch v := value.(type) {
	case map[string]any:
		for _, name := range PropertyNames(s) {
			child := join(path, name)
			item, present := v[name]
			required := IsRequired(s, name)
			if !present {
				if required {
					*issues = append(*issues, Issue{Path: child, Message: "required field is missing"})
				}
				continue
			}
			if item == nil && !required {
				continue
			}
			walk(s.Properties[name], child, item, issues)
		}
	case []any:
		for i, item := range v {
			walk(s.Items, fmt.Sprintf("%s[%d]", path, i), item, issues)
		}
	}
}

// describe turns the validator's keyword failure into a message for people
// and models.
func describe(s *Schema, value any, err error) string {
	keyword, _, _ := strings.Cut(err.Error(), ":")
	switch keyword {
	case "type":
		if s.Type == TypeInteger {
			if f, ok := AsFloat(value); ok {
				return fmt.Sprintf("expected integer, got %v", f)
			}
		}
		return fmt.Sprintf("expected %s, got %s", s.Type, TypeName(value))
	case "enum":
		values := make([]string, len(s.Enum))
		for i, e := range s.Enum {
			values[i] = fmt.Sprint(e)
		}
		return fmt.Sprintf("expected one of [%s], got %q", strings.Join(values, ", "), fmt.Sprint(value))
	case "minLength", "pattern":
		return "must not be empty"
	case "maxLength":
		return fmt.Sprintf("expected at most %d characters", deref(s.MaxLength))
	case "minimum":
		f, _ := AsFloat(value)
		return fmt.Sprintf("expected >= %v, got %v", *s.Minimum, f)
	case "maximum":
		f, _ := AsFloat(value)
		return fmt.Sprintf("expected <= %v, got %v", *s.Maximum, f)
	case "minItems":
		arr, _ := value.([]any)
		return fmt.Sprintf("expected at least %d items, got %d", deref(s.MinItems), len(arr))
	case "maxItems":
		arr, _ := value.([]any)
		return fmt.Sprintf("expected at most %d items, got %d", deref(s.MaxItems), len(arr))
	default:
		return err.Error()
	}
}

// cause strips the "validating <schema>:" wrapping the validator adds at every
// level and returns the keyword failure itself.
func cause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// withoutNullOptionals returns value with null optional properties removed,
// at every object level. value itself is not modified.
func withoutNullOptionals(s *Schema, value any) any {
	if s == nil {
		return value
	}
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			child, known := s.Properties[key]
			if !known {
				out[key] = item
				continue
			}
			if item == nil && !IsRequired(s, key) {
				continue
			}
			out[key] = withoutNullOptionals(child, item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = withoutNullOptionals(s.Items, item)
		}
		return out
	default:
		return value
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
