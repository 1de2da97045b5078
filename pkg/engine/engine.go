// Package engine is the facade over the resolution subsystem: the step
// executor feeds it step outputs and asks it to resolve parameters, the
// editing UI asks it to validate references and rank suggestions. All
// heavy lifting lives in the leaf packages; the engine owns wiring, step
// scoping, and ingestion-time checks.
package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/pollyan/intent-test-tools-sub001/pkg/ref"
	"github.com/pollyan/intent-test-tools-sub001/pkg/resolver"
	"github.com/pollyan/intent-test-tools-sub001/pkg/schema"
	"github.com/pollyan/intent-test-tools-sub001/pkg/store"
	"github.com/pollyan/intent-test-tools-sub001/pkg/suggest"
	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
	"github.com/pollyan/intent-test-tools-sub001/pkg/validator"
)

// Config tunes the engine. Zero values select defaults.
type Config struct {
	SuggestLimit int // max entries per suggestion query (default 10)
}

// Engine ties the context store to the resolver, validator, and
// suggestion service.
type Engine struct {
	store   *store.Store
	suggest *suggest.Service
}

// New creates an engine with a fresh store.
func New(cfg Config) *Engine {
	s := store.New()
	return &Engine{
		store:   s,
		suggest: suggest.New(s, cfg.SuggestLimit),
	}
}

// Store exposes the underlying context store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// StepOutput describes one completed step's output binding.
type StepOutput struct {
	ExecutionID      string
	StepIndex        int
	VariableName     string
	Value            types.Value
	ExtractionQuery  string
	ExtractionSchema string
}

// OnStepOutput stores a step's output as a variable. The variable name
// must be a valid identifier. When the output carries an extraction
// schema, the value is checked against it; violations are recorded on the
// variable and logged, but do not reject the output.
func (e *Engine) OnStepOutput(out StepOutput) (store.Variable, error) {
	if !ref.IsIdentifier(out.VariableName) {
		return store.Variable{}, types.NewSyntaxError(
			out.VariableName,
			fmt.Sprintf("invalid variable name %q: must match [A-Za-z_][A-Za-z0-9_]*", out.VariableName),
		)
	}

	v := store.Variable{
		Name:             out.VariableName,
		Value:            out.Value,
		DataType:         out.Value.Type().String(),
		SourceStepIndex:  out.StepIndex,
		CreatedAt:        time.Now(),
		ExtractionQuery:  out.ExtractionQuery,
		ExtractionSchema: out.ExtractionSchema,
	}

	if out.ExtractionSchema != "" {
		name := fmt.Sprintf("%s/step-%d/%s.schema.json", out.ExecutionID, out.StepIndex, out.VariableName)
		for _, msg := range schema.ValidateDocument(name, out.ExtractionSchema, out.Value) {
			v.SchemaWarnings = append(v.SchemaWarnings, msg)
			log.Printf("execution %s step %d: output %q violates extraction schema: %s",
				out.ExecutionID, out.StepIndex, out.VariableName, msg)
		}
	}

	if err := e.store.Put(out.ExecutionID, v); err != nil {
		return store.Variable{}, err
	}
	stored, _ := e.store.Get(out.ExecutionID, out.VariableName)
	return stored, nil
}

// OnStepComplete marks the end of a step completion. The executor sends
// it when a step finishes, pass or fail, so that rerunning the same step
// index afterwards overwrites its bindings instead of tripping duplicate
// detection.
func (e *Engine) OnStepComplete(executionID string) {
	e.store.CompleteStep(executionID)
}

// OnExecutionTerminal drops the execution's context. Idempotent; the
// executor owns the timing.
func (e *Engine) OnExecutionTerminal(executionID string) {
	e.store.Cleanup(executionID)
}

// ResolveStepParameters resolves every reference in a step's parameter
// map against the execution's current variables. Missing-root and
// malformed references come back as warnings with the original text kept;
// any structural failure aborts with that error.
func (e *Engine) ResolveStepParameters(executionID string, params map[string]types.Value) (map[string]types.Value, []*types.ReferenceError, error) {
	snap := e.store.Snapshot(executionID)
	resolved, warnings, err := resolver.ResolveParams(params, snap)
	for _, w := range warnings {
		log.Printf("execution %s: %v (reference kept verbatim)", executionID, w)
	}
	return resolved, warnings, err
}

// ValidateReference validates one reference. With an empty executionID
// only the syntax tier runs. stepIndex >= 0 restricts visible variables
// to those produced by earlier steps.
func (e *Engine) ValidateReference(reference, executionID string, stepIndex int) validator.Result {
	if executionID == "" {
		return validator.ValidateSyntax(reference)
	}
	return validator.Validate(reference, e.scope(executionID, stepIndex))
}

// ValidateText validates every reference in a text against one snapshot
// of the execution's variables.
func (e *Engine) ValidateText(text, executionID string, stepIndex int) validator.TextResult {
	if executionID == "" {
		return validator.ValidateText(text, nil)
	}
	return validator.ValidateText(text, e.scope(executionID, stepIndex))
}

// VariableSummary is the report-view projection of a stored variable.
type VariableSummary struct {
	Name            string    `json:"name"`
	DataType        string    `json:"data_type"`
	Preview         string    `json:"preview"`
	SourceStepIndex int       `json:"source_step_index"`
	CreatedAt       time.Time `json:"created_at"`
	SchemaWarnings  []string  `json:"schema_warnings,omitempty"`
}

// ListVariables returns summaries of all variables in an execution,
// ordered by source step then insertion.
func (e *Engine) ListVariables(executionID string) []VariableSummary {
	vars := e.store.List(executionID)
	out := make([]VariableSummary, len(vars))
	for i, v := range vars {
		out[i] = VariableSummary{
			Name:            v.Name,
			DataType:        v.DataType,
			Preview:         validator.Preview(v.Value, validator.PreviewLimit),
			SourceStepIndex: v.SourceStepIndex,
			CreatedAt:       v.CreatedAt,
			SchemaWarnings:  v.SchemaWarnings,
		}
	}
	return out
}

// SuggestVariables returns ranked name completions. stepIndex >= 0 limits
// candidates to variables from earlier steps.
func (e *Engine) SuggestVariables(executionID, prefix string, stepIndex int) []suggest.VariableSuggestion {
	return e.suggest.Variables(executionID, prefix, stepIndex)
}

// SuggestProperties returns one level of property or index completions
// for a variable.
func (e *Engine) SuggestProperties(executionID, variableName, propertyPrefix string) ([]suggest.PropertySuggestion, error) {
	return e.suggest.Properties(executionID, variableName, propertyPrefix)
}

// scope builds the validator view: the execution snapshot, optionally
// filtered to variables bound by steps before stepIndex.
func (e *Engine) scope(executionID string, stepIndex int) validator.Scope {
	snap := e.store.Snapshot(executionID)
	if stepIndex < 0 {
		return snap
	}
	return &stepScope{snap: snap, beforeStep: stepIndex}
}

// stepScope hides variables produced at or after a given step, enforcing
// the "earlier steps only" reference policy during authoring.
type stepScope struct {
	snap       *store.Snapshot
	beforeStep int
}

func (s *stepScope) Lookup(name string) (types.Value, bool) {
	v, ok := s.snap.Variable(name)
	if !ok || v.SourceStepIndex >= s.beforeStep {
		return types.Null, false
	}
	return v.Value, true
}

func (s *stepScope) Names() []string {
	var names []string
	for _, v := range s.snap.Variables() {
		if v.SourceStepIndex < s.beforeStep {
			names = append(names, v.Name)
		}
	}
	return names
}
