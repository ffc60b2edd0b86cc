// Package prompt renders operation inputs into model prompts.
//
// Rendering is pure: every string reaching the template is sanitised first,
// and a required variable that is missing is reported as a TemplateRenderError.
package prompt

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"text/template"

	"github.com/spigell/hiring-pipeline/internal/pipeerr"
)

// Template is a parsed prompt template with the variables it cannot render without.
type Template struct {
	name     string
	tmpl     *template.Template
	required []string
	trusted  map[string]string
}

// Parse parses text as a prompt template named name.
func Parse(name, text string, required ...string) (*Template, error) {
	tmpl, err := template.New(name).
		Option("missingkey=default").
		Funcs(funcs()).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl, required: append([]string(nil), required...)}, nil
}

// MustParse is like Parse but panics on error. It is meant for embedded templates.
func MustParse(name, text string, required ...string) *Template {
	t, err := Parse(name, text, required...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Name() string { return t.name }

// WithTrusted sets a value that is rendered verbatim under key, bypassing
// sanitisation. It is for text owned by the program, such as response formats.
func (t *Template) WithTrusted(key, value string) *Template {
	if t.trusted == nil {
		t.trusted = make(map[string]string)
	}
	t.trusted[key] = value
	return t
}

// Required returns the variables that must be present and non-empty.
func (t *Template) Required() []string {
	return append([]string(nil), t.required...)
}

// Build renders t with input using DefaultMaxFieldRunes.
func Build(t *Template, input map[string]any) (string, error) {
	return t.Render(input, DefaultMaxFieldRunes)
}

// Render sanitises input and executes the template.
func (t *Template) Render(input map[string]any, maxFieldRunes int) (string, error) {
	if t == nil || t.tmpl == nil {
		return "", pipeerr.New(pipeerr.KindTemplateRender, "prompt template is not defined", nil)
	}

	var missing []string
	for _, name := range t.required {
		if isEmpty(input[name]) {
			missing = append(missing, name+": required template variable is missing")
		}
	}
	if len(missing) > 0 {
		return "", pipeerr.New(pipeerr.KindTemplateRender, "render "+t.name, nil).WithIssues(missing)
	}

	data := make(map[string]any, len(input))
	for k, v := range input {
		data[k] = sanitizeValue(v, maxFieldRunes)
	}
	for k, v := range t.trusted {
		data[k] = v
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", pipeerr.New(pipeerr.KindTemplateRender, "render "+t.name, err)
	}

	return strings.TrimSpace(buf.String()) + "\n", nil
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"default": func(fallback any, value any) any {
			if isEmpty(value) {
				return fallback
			}
			return value
		},
		"list": func(items any) string {
			values := stringsOf(items)
			if len(values) == 0 {
				return ""
			}
			return "- " + strings.Join(values, "\n- ")
		},
		"join": func(sep string, items any) string {
			return strings.Join(stringsOf(items), sep)
		},
		"upper": func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
		"lower": func(v any) string { return strings.ToLower(fmt.Sprint(v)) },
	}
}

func stringsOf(items any) []string {
	if items == nil {
		return nil
	}
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		s := strings.TrimSpace(fmt.Sprint(items))
		if s == "" {
			return nil
		}
		return []string{s}
	}

	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s := strings.TrimSpace(fmt.Sprint(rv.Index(i).Interface()))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
