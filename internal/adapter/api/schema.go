package api

import (
	"embed"
	"encoding/json"
	"slices"

	"github.com/kaptinlin/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"mcp-gateway/internal/domain/entity"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator checks inbound envelopes against the bundled JSON schemas before
// they are decoded.
type Validator struct {
	request *jsonschema.Schema
	batch   *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	request, err := compileSchema(compiler, "schemas/request.json")
	if err != nil {
		return nil, err
	}
	batch, err := compileSchema(compiler, "schemas/batch_request.json")
	if err != nil {
		return nil, err
	}
	return &Validator{request: request, batch: batch}, nil
}

func compileSchema(compiler *jsonschema.Compiler, name string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read schema", goerr.V("schema", name))
	}
	schema, err := compiler.Compile(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile schema", goerr.V("schema", name))
	}
	return schema, nil
}

func (v *Validator) ValidateRequest(body []byte) error {
	return validate(v.request, body)
}

func (v *Validator) ValidateBatch(body []byte) error {
	return validate(v.batch, body)
}

func validate(schema *jsonschema.Schema, body []byte) error {
	if !json.Valid(body) {
		return entity.NewInvalidRequestError("request body is not valid JSON")
	}

	result := schema.ValidateJSON(body)
	if result.IsValid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors))
	for keyword, e := range result.Errors {
		violations = append(violations, keyword+": "+e.Error())
	}
	slices.Sort(violations)

	return entity.NewInvalidRequestError("request body does not match schema").
		With("violations", violations)
}
