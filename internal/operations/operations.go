// Package operations is the registry of generation operations. The set is
// closed: every operation is a Name constant with a descriptor built once at
// package initialisation.
package operations

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/hiring-pipeline/internal/prompt"
	"github.com/spigell/hiring-pipeline/internal/schema"
)

// Name identifies an operation. It is also the endpoint recorded in call logs.
type Name string

const (
	GenerateJobDescription   Name = "generate-job-description"
	GenerateHiringStrategy   Name = "generate-hiring-strategy"
	GenerateCandidateProfile Name = "generate-candidate-profile"
	GenerateStages           Name = "generate-stages"
	GenerateQuestions        Name = "generate-questions"
	AnalyzeCoverage          Name = "analyze-coverage"
	SynthesizeFeedback       Name = "synthesize-feedback"
)

// ErrUnknownOperation is returned for names outside the registry.
var ErrUnknownOperation = errors.New("unknown operation")

// responseFormatKey is the template variable holding the output outline.
const responseFormatKey = "response_format"

//go:embed templates/*.md
var templates embed.FS

func (n Name) String() string { return string(n) }

// Descriptor is the static definition of one operation.
type Descriptor struct {
	Name        Name
	Description string
	Input       *schema.Schema
	Output      *schema.Schema
	Template    *prompt.Template
}

type definition struct {
	name        Name
	description string
	input       *schema.Schema
	output      *schema.Schema
}

var (
	order    []Name
	registry = map[Name]Descriptor{}
)

func init() {
	for _, def := range definitions() {
		register(def)
	}
}

func register(def definition) {
	text, err := templates.ReadFile("templates/" + string(def.name) + ".md")
	if err != nil {
		panic(fmt.Sprintf("operations: template for %s: %v", def.name, err))
	}

	tmpl := prompt.MustParse(string(def.name), string(text), def.input.Required...).
		WithTrusted(responseFormatKey, schema.Outline(def.output))

	order = append(order, def.name)
	registry[def.name] = Descriptor{
		Name:        def.name,
		Description: def.description,
		Input:       def.input,
		Output:      def.output,
		Template:    tmpl,
	}
}

// Parse resolves a user-supplied operation name.
func Parse(s string) (Name, error) {
	name := Name(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := registry[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
	return name, nil
}

// Lookup returns the descriptor for name.
func Lookup(name Name) (Descriptor, error) {
	d, ok := registry[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownOperation, string(name))
	}
	return d, nil
}

// All returns every descriptor in declaration order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(order))
	for _, name := range order {
		out = append(out, registry[name])
	}
	return out
}

// Names returns every operation name in declaration order.
func Names() []Name {
	return append([]Name(nil), order...)
}
