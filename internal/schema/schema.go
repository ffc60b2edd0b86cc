// Package schema describes the structural shape of operation inputs and
// model outputs as JSON Schema documents and validates decoded JSON values
// against them.
//
// Values are the generic forms produced by encoding/json: map[string]any,
// []any, string, float64, bool and nil.
package schema

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema is a JSON Schema (draft 2020-12) node.
type Schema = jsonschema.Schema

// JSON types a schema accepts.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// nonBlank rejects strings made only of whitespace.
const nonBlank = `\S`

// Property is a named member of an object schema.
type Property struct {
	Name     string
	Schema   *Schema
	Required bool
}

// Required declares a required property.
func Required(name string, s *Schema) Property {
	return Property{Name: name, Schema: s, Required: true}
}

// Optional declares an optional property. A null value counts as absent.
func Optional(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

// Option adjusts a schema while it is built.
type Option func(*Schema)

// Object builds an object schema from the given properties.
func Object(props ...Property) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(props))}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// String builds a string schema.
func String(opts ...Option) *Schema { return build(&Schema{Type: TypeString}, opts) }

// Text builds a string schema that rejects empty and blank values.
func Text(opts ...Option) *Schema {
	return build(&Schema{Type: TypeString, MinLength: jsonschema.Ptr(1), Pattern: nonBlank}, opts)
}

// Enum builds a string schema restricted to values.
func Enum(values ...string) *Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &Schema{Type: TypeString, Enum: enum}
}

// Number builds a number schema.
func Number(opts ...Option) *Schema { return build(&Schema{Type: TypeNumber}, opts) }

// Integer builds an integer schema.
func Integer(opts ...Option) *Schema { return build(&Schema{Type: TypeInteger}, opts) }

// Boolean builds a boolean schema.
func Boolean() *Schema { return &Schema{Type: TypeBoolean} }

// Array builds an array schema of items.
func Array(items *Schema, opts ...Option) *Schema {
	return build(&Schema{Type: TypeArray, Items: items}, opts)
}

func build(s *Schema, opts []Option) *Schema {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Between sets an inclusive numeric range.
func Between(lo, hi float64) Option {
	return func(s *Schema) {
		s.Minimum = jsonschema.Ptr(lo)
		s.Maximum = jsonschema.Ptr(hi)
	}
}

// AtLeast sets an inclusive lower numeric bound.
func AtLeast(lo float64) Option {
	return func(s *Schema) { s.Minimum = jsonschema.Ptr(lo) }
}

// Len bounds the number of array elements. A zero max leaves it unbounded.
func Len(minItems, maxItems int) Option {
	return func(s *Schema) {
		s.MinItems = jsonschema.Ptr(minItems)
		if maxItems > 0 {
			s.MaxItems = jsonschema.Ptr(maxItems)
		}
	}
}

// NonEmpty requires at least one array element or one non-blank string rune.
func NonEmpty() Option {
	return func(s *Schema) {
		switch s.Type {
		case TypeArray:
			s.MinItems = jsonschema.Ptr(1)
		case TypeString:
			s.MinLength = jsonschema.Ptr(1)
			s.Pattern = nonBlank
		}
	}
}

// MaxLen bounds the rune length of a string.
func MaxLen(n int) Option {
	return func(s *Schema) { s.MaxLength = jsonschema.Ptr(n) }
}

// PropertyNames lists the properties of an object schema: required ones in
// declaration order, then optional ones sorted by name.
func PropertyNames(s *Schema) []string {
	if s == nil {
		return nil
	}
	names := slices.Clone(s.Required)
	var optional []string
	for name := range s.Properties {
		if !slices.Contains(s.Required, name) {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	return append(names, optional...)
}

// IsRequired reports whether name is a required property of s.
func IsRequired(s *Schema, name string) bool {
	return s != nil && slices.Contains(s.Required, name)
}

// TypeName names the JSON type of a decoded value.
func TypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, float32, int, int32, int64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// AsFloat returns value as a float64 when it holds any Go numeric type.
func AsFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Outline renders a compact, stable outline of s, used to tell the model
// which JSON shape to return.
func Outline(s *Schema) string {
	var b strings.Builder
	outline(&b, s)
	return b.String()
}

func outline(b *strings.Builder, s *Schema) {
	if s == nil {
		b.WriteString("any")
		return
	}
	switch s.Type {
	case TypeObject:
		b.WriteString("{")
		for i, name := range PropertyNames(s) {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%q", name)
			if !IsRequired(s, name) {
				b.WriteString("?")
			}
			b.WriteString(": ")
			outline(b, s.Properties[name])
		}
		b.WriteString("}")
	case TypeArray:
		b.WriteString("[")
		outline(b, s.Items)
		b.WriteString("]")
		minItems := deref(s.MinItems)
		switch {
		case s.MaxItems != nil:
			fmt.Fprintf(b, " (%d-%d items)", minItems, *s.MaxItems)
		case minItems > 0:
			fmt.Fprintf(b, " (at least %d)", minItems)
		}
	case TypeString:
		if len(s.Enum) > 0 {
			quoted := make([]string, len(s.Enum))
			for i, v := range s.Enum {
				quoted[i] = fmt.Sprintf("%q", v)
			}
			b.WriteString(strings.Join(quoted, " | "))
			return
		}
		b.WriteString("string")
	case TypeNumber, TypeInteger:
		b.WriteString(s.Type)
		switch {
		case s.Minimum != nil && s.Maximum != nil:
			fmt.Fprintf(b, " %v-%v", *s.Minimum, *s.Maximum)
		case s.Minimum != nil:
			fmt.Fprintf(b, " >= %v", *s.Minimum)
		case s.Maximum != nil:
			fmt.Fprintf(b, " <= %v", *s.Maximum)
		}
	default:
		b.WriteString(s.Type)
	}
}

// Normalize folds a key or enum value for near-miss comparison: case,
// underscores, hyphens and spaces are ignored.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
