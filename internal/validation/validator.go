// Package validation turns raw model text into schema-valid data. It extracts
// the embedded JSON values, validates them strictly, and when none passes
// applies exactly one bounded coercion pass to the first before validating a
// second and last time.
package validation

import (
	"github.com/spigell/hiring-pipeline/internal/pipeerr"
	"github.com/spigell/hiring-pipeline/internal/schema"
)

// Outcome is the result of a successful validation.
type Outcome struct {
	// Data always satisfies the schema it was validated against.
	Data            map[string]any
	CoercionApplied bool
	// Repairs names the rules that changed the value, in application order.
	Repairs []string
}

// Validator validates model responses against output schemas.
type Validator struct {
	rules []Rule
}

// New creates a Validator with the given coercion rules.
func New(rules ...Rule) *Validator {
	return &Validator{rules: rules}
}

// Default creates a Validator with DefaultRules.
func Default() *Validator {
	return New(DefaultRules()...)
}

// Rules returns the names of the configured rules in application order.
func (v *Validator) Rules() []string {
	names := make([]string, 0, len(v.rules))
	for _, r := range v.rules {
		names = append(names, r.Name())
	}
	return names
}

// Validate parses raw and validates it against s, which must describe an
// object. Every JSON value in raw is tried strictly in Candidates order and the
// first that passes is returned. When none passes, the first candidate is
// coerced and validated once more. Failures are returned as a pipeerr
// OutputValidationError carrying the issues of the first candidate followed by
// those left after coercion.
func (v *Validator) Validate(raw string, s *schema.Schema) (*Outcome, error) {
	candidates, err := Candidates(raw)
	if err != nil {
		return nil, pipeerr.New(pipeerr.KindOutputValidation, "response could not be parsed", err)
	}

	var issues schema.Issues
	for i, candidate := range candidates {
		data, found := check(candidate, s)
		if len(found) == 0 {
			return &Outcome{Data: data}, nil
		}
		if i == 0 {
			issues = found
		}
	}

	coerced, repairs := v.coerce(candidates[0], s)
	if len(repairs) == 0 {
		return nil, outputError("response does not match schema", issues, nil)
	}

	data, remaining := check(coerced, s)
	if len(remaining) == 0 {
		return &Outcome{Data: data, CoercionApplied: true, Repairs: repairs}, nil
	}

	return nil, outputError("response does not match schema after coercion", issues, remaining)
}

// check validates value against s and returns it as an object when it passes.
func check(value any, s *schema.Schema) (map[string]any, schema.Issues) {
	if issues := schema.Validate(s, value); len(issues) > 0 {
		return nil, issues
	}
	data, ok := value.(map[string]any)
	if !ok {
		return nil, schema.Issues{{Message: "expected object, got " + schema.TypeName(value)}}
	}
	return data, nil
}

// coerce runs every rule exactly once over a deep copy of value.
func (v *Validator) coerce(value any, s *schema.Schema) (any, []string) {
	current := deepCopy(value)
	var repairs []string
	for _, rule := range v.rules {
		next, changed := rule.Apply(current, s)
		if changed {
			repairs = append(repairs, rule.Name())
			current = next
		}
	}
	return current, repairs
}

func outputError(msg string, original, remaining schema.Issues) *pipeerr.Error {
	issues := original.Strings()
	for _, i := range remaining {
		issues = append(issues, "after coercion: "+i.String())
	}
	return pipeerr.New(pipeerr.KindOutputValidation, msg, nil).WithIssues(issues)
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}
