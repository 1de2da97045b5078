package testcase

import (
	"fmt"

	"github.com/pollyan/intent-test-tools-sub001/pkg/ref"
	"github.com/pollyan/intent-test-tools-sub001/pkg/schema"
)

// Issue is a single lint finding with location context.
type Issue struct {
	Path     string `json:"path"` // e.g., "steps[2].params.text"
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (i *Issue) Error() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Lint checks a test case's variable references without an execution:
// output bindings must be valid identifiers, references must parse, and a
// reference may only name a variable bound by an earlier step. A name no
// step binds is a warning (it may come from outside the test case); a
// forward reference is an error.
func Lint(tc *TestCase) []*Issue {
	var issues []*Issue

	// First pass: collect output bindings and where they first appear.
	boundAt := make(map[string]int)
	for i, s := range tc.Steps {
		if s.OutputVariable == "" {
			if s.ExtractionQuery != "" {
				issues = append(issues, &Issue{
					Path:     fmt.Sprintf("steps[%d]", i),
					Message:  "step has an extraction_query but no output_variable; the extracted value will be discarded",
					Severity: "warning",
				})
			}
			continue
		}
		if !ref.IsIdentifier(s.OutputVariable) {
			issues = append(issues, &Issue{
				Path:     fmt.Sprintf("steps[%d].output_variable", i),
				Message:  fmt.Sprintf("invalid variable name %q: must match [A-Za-z_][A-Za-z0-9_]*", s.OutputVariable),
				Severity: "error",
			})
			continue
		}
		if prev, ok := boundAt[s.OutputVariable]; ok {
			issues = append(issues, &Issue{
				Path:     fmt.Sprintf("steps[%d].output_variable", i),
				Message:  fmt.Sprintf("variable %q overwrites the binding from steps[%d]", s.OutputVariable, prev),
				Severity: "warning",
			})
			continue
		}
		boundAt[s.OutputVariable] = i
	}

	// Second pass: check schemas and every reference in string params.
	for i, s := range tc.Steps {
		if s.ExtractionSchema != "" {
			name := fmt.Sprintf("steps[%d].schema.json", i)
			if err := schema.CheckCompiles(name, s.ExtractionSchema); err != nil {
				issues = append(issues, &Issue{
					Path:     fmt.Sprintf("steps[%d].extraction_schema", i),
					Message:  err.Error(),
					Severity: "error",
				})
			}
		}

		for key, val := range s.Params {
			path := fmt.Sprintf("steps[%d].params.%s", i, key)
			issues = append(issues, lintParamValue(path, val, i, boundAt)...)
		}
	}

	return issues
}

// lintParamValue walks a parameter value and lints every string leaf.
func lintParamValue(path string, val interface{}, stepIndex int, boundAt map[string]int) []*Issue {
	switch v := val.(type) {
	case string:
		return lintText(path, v, stepIndex, boundAt)
	case []interface{}:
		var issues []*Issue
		for i, item := range v {
			issues = append(issues, lintParamValue(fmt.Sprintf("%s[%d]", path, i), item, stepIndex, boundAt)...)
		}
		return issues
	case map[string]interface{}:
		var issues []*Issue
		for k, item := range v {
			issues = append(issues, lintParamValue(path+"."+k, item, stepIndex, boundAt)...)
		}
		return issues
	default:
		return nil
	}
}

func lintText(path, text string, stepIndex int, boundAt map[string]int) []*Issue {
	var issues []*Issue
	for _, r := range ref.FindReferences(text) {
		if r.Err != nil {
			issues = append(issues, &Issue{
				Path:     path,
				Message:  r.Err.Error(),
				Severity: "error",
			})
			continue
		}
		src, ok := boundAt[r.Root]
		if !ok {
			issues = append(issues, &Issue{
				Path:     path,
				Message:  fmt.Sprintf("no step binds variable %q; it will resolve only if provided externally", r.Root),
				Severity: "warning",
			})
			continue
		}
		if src >= stepIndex {
			issues = append(issues, &Issue{
				Path:     path,
				Message:  fmt.Sprintf("reference %s names a variable bound by steps[%d], which runs after this step", r.Raw, src),
				Severity: "error",
			})
		}
	}
	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []*Issue) bool {
	for _, i := range issues {
		if i.Severity == "error" {
			return true
		}
	}
	return false
}
