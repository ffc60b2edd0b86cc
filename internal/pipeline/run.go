package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/hiring-pipeline/internal/operations"
	"github.com/spigell/hiring-pipeline/internal/pipeerr"
	"github.com/spigell/hiring-pipeline/internal/schema"
)

// Run executes a typed operation. The input is validated against the
// operation's input schema first; a mismatch is an InputValidationError and
// never reaches the model or the call log. Data that validates but does not
// decode into Out is recorded and returned as an OutputValidationError.
func Run[In, Out any](ctx context.Context, p *Pipeline, op operations.Op[In, Out], in In) (*Result[Out], error) {
	d := op.Descriptor()

	input, err := toMap(in)
	if err != nil {
		return nil, pipeerr.New(pipeerr.KindInputValidation, "input could not be encoded", err).WithOperation(string(d.Name))
	}
	if issues := schema.Validate(d.Input, input); len(issues) > 0 {
		return nil, pipeerr.New(pipeerr.KindInputValidation, "input does not match schema", nil).
			WithOperation(string(d.Name)).
			WithIssues(issues.Strings())
	}

	var out Out
	res, err := p.execute(ctx, d, input, func(data map[string]any) error {
		return Decode(data, &out)
	})
	if err != nil {
		return nil, err
	}

	return &Result[Out]{Data: out, Metadata: res.Metadata}, nil
}

// Decode copies validated data into a struct using its json tags.
func Decode(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	return decoder.Decode(data)
}

func toMap(in any) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
