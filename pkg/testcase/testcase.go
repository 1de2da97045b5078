// Package testcase loads YAML test-case definitions and lints their
// variable references before any execution exists.
package testcase

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxSourceSize is the maximum test-case source size in bytes (256 KB).
const MaxSourceSize = 256 * 1024

// TestCase is an authored sequence of UI test steps.
type TestCase struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Step is one action forwarded to the browser automation layer. Params
// may contain ${...} references to outputs of earlier steps. A step with
// OutputVariable binds its result into the execution context.
type Step struct {
	Action           string                 `yaml:"action"`
	Description      string                 `yaml:"description,omitempty"`
	Params           map[string]interface{} `yaml:"params,omitempty"`
	OutputVariable   string                 `yaml:"output_variable,omitempty"`
	ExtractionQuery  string                 `yaml:"extraction_query,omitempty"`
	ExtractionSchema string                 `yaml:"extraction_schema,omitempty"`
}

// ParseError represents an error encountered during test-case parsing.
type ParseError struct {
	Message  string
	Location string // e.g., "steps[2]"
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Parse parses a YAML test-case definition. Unknown fields are rejected
// so typos in step keys surface at load time.
func Parse(source []byte) (*TestCase, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("source size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	dec := yaml.NewDecoder(bytes.NewReader(source))
	dec.KnownFields(true)

	var tc TestCase
	if err := dec.Decode(&tc); err != nil {
		if err == io.EOF {
			return nil, &ParseError{Message: "empty test case definition"}
		}
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if tc.Name == "" {
		return nil, &ParseError{Message: "test case requires a name"}
	}
	if len(tc.Steps) == 0 {
		return nil, &ParseError{Message: "test case requires at least one step"}
	}
	for i, s := range tc.Steps {
		if s.Action == "" {
			return nil, &ParseError{
				Message:  "step requires an action",
				Location: fmt.Sprintf("steps[%d]", i),
			}
		}
	}
	return &tc, nil
}

// LoadFile reads and parses a test-case file.
func LoadFile(path string) (*TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading test case: %w", err)
	}
	return Parse(data)
}
