// Package schema compiles and applies the JSON schemas attached to
// AI-extraction steps, so step outputs can be checked against the shape
// the test author asked the vision model for.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

// Compile parses and compiles a JSON schema document. name is used as the
// schema resource URL in diagnostics.
func Compile(name, schemaJSON string) (*sjsonschema.Schema, error) {
	doc, err := sjsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// CheckCompiles reports whether a schema document is usable, without
// retaining the compiled form. Used by authoring-time lint.
func CheckCompiles(name, schemaJSON string) error {
	_, err := Compile(name, schemaJSON)
	return err
}

// Validate checks a value against a compiled schema and returns one
// message per violation. An empty slice means the value conforms.
func Validate(sch *sjsonschema.Schema, v types.Value) []string {
	data, err := v.MarshalJSON()
	if err != nil {
		return []string{fmt.Sprintf("marshal value for schema validation: %v", err)}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []string{fmt.Sprintf("unmarshal value for schema validation: %v", err)}
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil
	}

	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	var msgs []string
	for _, cause := range flatten(ve) {
		loc := "/" + strings.Join(cause.InstanceLocation, "/")
		msgs = append(msgs, fmt.Sprintf("%s: %v", loc, cause.ErrorKind))
	}
	return msgs
}

// ValidateDocument compiles schemaJSON and validates v in one call.
// A schema that does not compile is itself reported as a violation.
func ValidateDocument(name, schemaJSON string, v types.Value) []string {
	sch, err := Compile(name, schemaJSON)
	if err != nil {
		return []string{err.Error()}
	}
	return Validate(sch, v)
}

// flatten recursively collects all leaf validation errors.
func flatten(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flatten(cause)...)
	}
	return flat
}
