package validation

import (
	"math"
	"strconv"
	"strings"

	"github.com/spigell/hiring-pipeline/internal/schema"
)

// Rule is a single structural repair. Apply receives a private copy of the
// value and returns the (possibly) repaired value and whether it changed
// anything. Rules repair shape only and never invent content.
type Rule interface {
	Name() string
	Apply(value any, s *schema.Schema) (any, bool)
}

// Rule names, usable in configuration to disable individual repairs.
const (
	RuleUnwrapEnvelope      = "unwrap_envelope"
	RuleWrapBareArray       = "wrap_bare_array"
	RuleRenameNearMissKeys  = "rename_near_miss_keys"
	RuleScalarToArray       = "scalar_to_array"
	RuleParseNumericStrings = "parse_numeric_strings"
	RuleCanonicalEnum       = "canonical_enum"
	RuleClampNumbers        = "clamp_numbers"
	RuleDefaultMissingArray = "default_missing_arrays"
)

// DefaultRules returns the standard repair set in application order.
func DefaultRules() []Rule {
	return []Rule{
		unwrapEnvelope{},
		wrapBareArray{},
		renameNearMissKeys{},
		scalarToArray{},
		parseNumericStrings{},
		canonicalEnum{},
		clampNumbers{},
		defaultMissingArrays{},
	}
}

// RulesExcept returns the default rules without the named ones.
func RulesExcept(disabled ...string) []Rule {
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[strings.TrimSpace(name)] = true
	}

	rules := make([]Rule, 0, len(DefaultRules()))
	for _, r := range DefaultRules() {
		if !skip[r.Name()] {
			rules = append(rules, r)
		}
	}
	return rules
}

// unwrapEnvelope turns {"result": {...expected keys...}} into {...}.
type unwrapEnvelope struct{}

func (unwrapEnvelope) Name() string { return RuleUnwrapEnvelope }

func (unwrapEnvelope) Apply(value any, s *schema.Schema) (any, bool) {
	if s.Type != schema.TypeObject {
		return value, false
	}
	obj, ok := value.(map[string]any)
	if !ok || len(obj) != 1 {
		return value, false
	}
	if _, expected := s.Properties[schema.SortedKeys(obj)[0]]; expected {
		return value, false
	}

	for _, inner := range obj {
		innerObj, ok := inner.(map[string]any)
		if !ok || !holdsAnyProperty(innerObj, s) {
			return value, false
		}
		return innerObj, true
	}
	return value, false
}

// wrapBareArray turns [...] into {"field": [...]} when the object schema has
// exactly one array property.
type wrapBareArray struct{}

func (wrapBareArray) Name() string { return RuleWrapBareArray }

func (wrapBareArray) Apply(value any, s *schema.Schema) (any, bool) {
	if s.Type != schema.TypeObject {
		return value, false
	}
	arr, ok := value.([]any)
	if !ok {
		return value, false
	}

	var target string
	for name, ps := range s.Properties {
		if ps.Type != schema.TypeArray {
			continue
		}
		if target != "" {
			return value, false
		}
		target = name
	}
	if target == "" {
		return value, false
	}
	return map[string]any{target: arr}, true
}

// renameNearMissKeys moves "Questions" or "focusAreas" onto the expected
// "questions"/"focus_areas" key, at every object level.
type renameNearMissKeys struct{}

func (renameNearMissKeys) Name() string { return RuleRenameNearMissKeys }

func (renameNearMissKeys) Apply(value any, s *schema.Schema) (any, bool) {
	return walkObjects(value, s, func(obj map[string]any, os *schema.Schema) bool {
		changed := false
		for _, name := range schema.PropertyNames(os) {
			if _, present := obj[name]; present {
				continue
			}
			want := schema.Normalize(name)
			for _, key := range schema.SortedKeys(obj) {
				if _, expected := os.Properties[key]; expected {
					continue
				}
				if schema.Normalize(key) == want {
					obj[name] = obj[key]
					delete(obj, key)
					changed = true
					break
				}
			}
		}
		return changed
	})
}

// scalarToArray wraps a lone scalar or object where an array is expected.
type scalarToArray struct{}

func (scalarToArray) Name() string { return RuleScalarToArray }

func (scalarToArray) Apply(value any, s *schema.Schema) (any, bool) {
	return walkObjects(value, s, func(obj map[string]any, os *schema.Schema) bool {
		changed := false
		for _, name := range schema.PropertyNames(os) {
			if os.Properties[name].Type != schema.TypeArray {
				continue
			}
			v, present := obj[name]
			if !present || v == nil {
				continue
			}
			if _, isArr := v.([]any); isArr {
				continue
			}
			if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
				continue
			}
			obj[name] = []any{v}
			changed = true
		}
		return changed
	})
}

// parseNumericStrings turns "4", "0.8" or "true" into their typed values
// where the schema expects numbers or booleans.
type parseNumericStrings struct{}

func (parseNumericStrings) Name() string { return RuleParseNumericStrings }

func (parseNumericStrings) Apply(value any, s *schema.Schema) (any, bool) {
	return walkScalars(value, s, func(v any, ss *schema.Schema) (any, bool) {
		str, ok := v.(string)
		if !ok {
			return v, false
		}
		trimmed := strings.TrimSpace(str)
		switch ss.Type {
		case schema.TypeNumber, schema.TypeInteger:
			f, err := strconv.ParseFloat(trimmed, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return v, false
			}
			return f, true
		case schema.TypeBoolean:
			b, err := strconv.ParseBool(strings.ToLower(trimmed))
			if err != nil {
				return v, false
			}
			return b, true
		}
		return v, false
	})
}

// canonicalEnum replaces "Strong Hire" with the declared "strong_hire".
type canonicalEnum struct{}

func (canonicalEnum) Name() string { return RuleCanonicalEnum }

func (canonicalEnum) Apply(value any, s *schema.Schema) (any, bool) {
	return walkScalars(value, s, func(v any, ss *schema.Schema) (any, bool) {
		str, ok := v.(string)
		if !ok || len(ss.Enum) == 0 {
			return v, false
		}
		want := schema.Normalize(str)
		for _, e := range ss.Enum {
			candidate, ok := e.(string)
			if !ok {
				continue
			}
			if candidate == str {
				return v, false
			}
			if schema.Normalize(candidate) == want {
				return candidate, true
			}
		}
		return v, false
	})
}

// clampNumbers pulls out-of-range numbers to the nearest bound and rounds
// non-integral values of integer fields.
type clampNumbers struct{}

func (clampNumbers) Name() string { return RuleClampNumbers }

func (clampNumbers) Apply(value any, s *schema.Schema) (any, bool) {
	return walkScalars(value, s, func(v any, ss *schema.Schema) (any, bool) {
		if ss.Type != schema.TypeNumber && ss.Type != schema.TypeInteger {
			return v, false
		}
		f, ok := schema.AsFloat(v)
		if !ok {
			return v, false
		}
		orig := f
		if ss.Type == schema.TypeInteger {
			f = math.Round(f)
		}
		if ss.Minimum != nil && f < *ss.Minimum {
			f = *ss.Minimum
		}
		if ss.Maximum != nil && f > *ss.Maximum {
			f = *ss.Maximum
		}
		if f == orig {
			return v, false
		}
		return f, true
	})
}

// defaultMissingArrays sets absent or null array properties to [].
type defaultMissingArrays struct{}

func (defaultMissingArrays) Name() string { return RuleDefaultMissingArray }

func (defaultMissingArrays) Apply(value any, s *schema.Schema) (any, bool) {
	return walkObjects(value, s, func(obj map[string]any, os *schema.Schema) bool {
		changed := false
		for _, name := range schema.PropertyNames(os) {
			if os.Properties[name].Type != schema.TypeArray {
				continue
			}
			if v, present := obj[name]; present && v != nil {
				continue
			}
			obj[name] = []any{}
			changed = true
		}
		return changed
	})
}

// walkObjects calls fn for every object in value that is described by an
// object schema, parents before children.
func walkObjects(value any, s *schema.Schema, fn func(map[string]any, *schema.Schema) bool) (any, bool) {
	if s == nil {
		return value, false
	}

	switch s.Type {
	case schema.TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return value, false
		}
		changed := fn(obj, s)
		for _, name := range schema.PropertyNames(s) {
			child, present := obj[name]
			if !present {
				continue
			}
			if next, c := walkObjects(child, s.Properties[name], fn); c {
				obj[name] = next
				changed = true
			}
		}
		return obj, changed
	case schema.TypeArray:
		arr, ok := value.([]any)
		if !ok {
			return value, false
		}
		changed := false
		for i, item := range arr {
			if next, c := walkObjects(item, s.Items, fn); c {
				arr[i] = next
				changed = true
			}
		}
		return arr, changed
	}
	return value, false
}

// walkScalars calls fn for every non-container value whose schema is a scalar
// type, replacing it with the result.
func walkScalars(value any, s *schema.Schema, fn func(any, *schema.Schema) (any, bool)) (any, bool) {
	if s == nil || value == nil {
		return value, false
	}

	switch s.Type {
	case schema.TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return value, false
		}
		changed := false
		for _, name := range schema.PropertyNames(s) {
			child, present := obj[name]
			if !present {
				continue
			}
			if next, c := walkScalars(child, s.Properties[name], fn); c {
				obj[name] = next
				changed = true
			}
		}
		return obj, changed
	case schema.TypeArray:
		arr, ok := value.([]any)
		if !ok {
			return value, false
		}
		changed := false
		for i, item := range arr {
			if next, c := walkScalars(item, s.Items, fn); c {
				arr[i] = next
				changed = true
			}
		}
		return arr, changed
	default:
		return fn(value, s)
	}
}

func holdsAnyProperty(obj map[string]any, s *schema.Schema) bool {
	for key := range obj {
		want := schema.Normalize(key)
		for name := range s.Properties {
			if schema.Normalize(name) == want {
				return true
			}
		}
	}
	return false
}
