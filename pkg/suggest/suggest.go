// Package suggest ranks variable and property completions for the editing
// UI. Every query is a single read against the execution context store;
// debouncing belongs to the caller.
package suggest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pollyan/intent-test-tools-sub001/pkg/store"
	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
	"github.com/pollyan/intent-test-tools-sub001/pkg/validator"
)

// DefaultLimit caps suggestion lists unless configured otherwise.
const DefaultLimit = 10

// Service answers completion queries against a store.
type Service struct {
	store *store.Store
	limit int
}

// New creates a suggestion service. limit <= 0 selects DefaultLimit.
func New(s *store.Store, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{store: s, limit: limit}
}

// VariableSuggestion is one candidate variable name.
type VariableSuggestion struct {
	Name            string `json:"name"`
	DataType        string `json:"data_type"`
	Preview         string `json:"preview"`
	SourceStepIndex int    `json:"source_step_index"`
}

// PropertySuggestion is one candidate property or index of a variable.
type PropertySuggestion struct {
	Name     string `json:"name"`
	DataType string `json:"type"`
	Preview  string `json:"value_preview"`
}

// match ranks: exact-prefix beats substring-only; ties order by source
// step, then insertion order (already the snapshot order).
const (
	rankPrefix    = 0
	rankSubstring = 1
)

// Variables returns ranked variable-name completions for a prefix.
// Matching is case-insensitive; an empty prefix matches everything.
// beforeStep limits candidates to variables produced by earlier steps;
// pass a negative value for no limit.
func (s *Service) Variables(executionID, prefix string, beforeStep int) []VariableSuggestion {
	lp := strings.ToLower(prefix)

	type ranked struct {
		rank int
		pos  int
		sug  VariableSuggestion
	}
	var matches []ranked

	for i, v := range s.store.Snapshot(executionID).Variables() {
		if beforeStep >= 0 && v.SourceStepIndex >= beforeStep {
			continue
		}
		ln := strings.ToLower(v.Name)
		rank := -1
		switch {
		case lp == "" || strings.HasPrefix(ln, lp):
			rank = rankPrefix
		case strings.Contains(ln, lp):
			rank = rankSubstring
		}
		if rank < 0 {
			continue
		}
		matches = append(matches, ranked{
			rank: rank,
			pos:  i,
			sug: VariableSuggestion{
				Name:            v.Name,
				DataType:        v.DataType,
				Preview:         validator.Preview(v.Value, validator.PreviewLimit),
				SourceStepIndex: v.SourceStepIndex,
			},
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].pos < matches[j].pos
	})

	if len(matches) > s.limit {
		matches = matches[:s.limit]
	}
	out := make([]VariableSuggestion, len(matches))
	for i, m := range matches {
		out[i] = m.sug
	}
	return out
}

// Properties returns completions for one level of a variable's children:
// object keys, or index positions for arrays. A second query against the
// chosen child goes one level deeper.
func (s *Service) Properties(executionID, variableName, propertyPrefix string) ([]PropertySuggestion, error) {
	v, ok := s.store.Get(executionID, variableName)
	if !ok {
		return nil, types.NewVariableNotFoundError("${"+variableName+"}", variableName)
	}

	switch v.Value.Type() {
	case types.TypeObject:
		return s.objectProperties(v.Value, propertyPrefix), nil
	case types.TypeArray:
		return s.arrayIndices(v.Value, propertyPrefix), nil
	default:
		return nil, &types.ReferenceError{
			Kind:      types.KindTypeMismatch,
			Message:   fmt.Sprintf("variable %q is a %s and has no properties", variableName, v.Value.Type()),
			Reference: "${" + variableName + "}",
		}
	}
}

func (s *Service) objectProperties(v types.Value, prefix string) []PropertySuggestion {
	lp := strings.ToLower(prefix)
	obj := v.AsObject()

	var out []PropertySuggestion
	for _, k := range obj.Keys() {
		if lp != "" && !strings.Contains(strings.ToLower(k), lp) {
			continue
		}
		child, _ := obj.Get(k)
		out = append(out, PropertySuggestion{
			Name:     k,
			DataType: child.Type().String(),
			Preview:  validator.Preview(child, validator.PreviewLimit),
		})
		if len(out) == s.limit {
			break
		}
	}
	return out
}

func (s *Service) arrayIndices(v types.Value, prefix string) []PropertySuggestion {
	var out []PropertySuggestion
	for i, child := range v.AsArray() {
		name := "[" + strconv.Itoa(i) + "]"
		if prefix != "" && !strings.Contains(strconv.Itoa(i), prefix) {
			continue
		}
		out = append(out, PropertySuggestion{
			Name:     name,
			DataType: child.Type().String(),
			Preview:  validator.Preview(child, validator.PreviewLimit),
		})
		if len(out) == s.limit {
			break
		}
	}
	return out
}
