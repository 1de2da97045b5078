// Package validator checks ${...} references for the editing UI: a
// syntax-only tier usable before any execution exists, and a context-aware
// tier that walks the referenced value without substituting it. The
// validator never returns a Go error; every outcome is a structured result.
package validator

import (
	"fmt"
	"strings"

	"github.com/pollyan/intent-test-tools-sub001/pkg/ref"
	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

// PreviewLimit caps the length of resolved-value previews.
const PreviewLimit = 60

// Scope is the read-only variable view context-aware validation runs
// against. A store snapshot satisfies it.
type Scope interface {
	Lookup(name string) (types.Value, bool)
	Names() []string
}

// Result is the outcome of validating one reference.
type Result struct {
	Reference  string                `json:"reference"`
	IsValid    bool                  `json:"is_valid"`
	Preview    string                `json:"preview,omitempty"`
	DataType   string                `json:"data_type,omitempty"`
	Error      *types.ReferenceError `json:"-"`
	ErrorKind  string                `json:"error,omitempty"`
	ErrorText  string                `json:"message,omitempty"`
	Suggestion string                `json:"suggestion,omitempty"`
}

// TextResult is the outcome of validating every reference in a text.
type TextResult struct {
	References []string `json:"references"`
	AllValid   bool     `json:"all_valid"`
	Results    []Result `json:"results"`
}

// ValidateSyntax checks a single reference against the grammar only. It
// accepts either a full "${...}" token or a bare path.
func ValidateSyntax(reference string) Result {
	path := strings.TrimSpace(reference)
	if strings.HasPrefix(path, "${") && strings.HasSuffix(path, "}") {
		path = path[2 : len(path)-1]
	}

	if _, _, err := ref.ParsePath(path); err != nil {
		return failure(reference, types.NewSyntaxError(reference, err.Error()), "")
	}
	return Result{Reference: reference, IsValid: true}
}

// Validate checks a single reference against an execution context. With a
// nil scope it degrades to syntax-only validation.
func Validate(reference string, scope Scope) Result {
	res := ValidateSyntax(reference)
	if !res.IsValid || scope == nil {
		return res
	}

	path := strings.TrimSpace(reference)
	if strings.HasPrefix(path, "${") && strings.HasSuffix(path, "}") {
		path = path[2 : len(path)-1]
	}
	root, accessors, _ := ref.ParsePath(path)

	rootVal, ok := scope.Lookup(root)
	if !ok {
		err := types.NewVariableNotFoundError(reference, root)
		return failure(reference, err, suggestName(root, scope.Names()))
	}

	val, werr := ref.Walk(rootVal, accessors, reference)
	if werr != nil {
		return failure(reference, werr, suggestAccessor(rootVal, accessors, werr))
	}

	return Result{
		Reference: reference,
		IsValid:   true,
		Preview:   Preview(val, PreviewLimit),
		DataType:  val.Type().String(),
	}
}

// ValidateText finds every reference in text and validates each one
// against the same scope. Result order matches the order the references
// appear in the text; the scope is consulted per name without re-fetching
// any store.
func ValidateText(text string, scope Scope) TextResult {
	refs := ref.FindReferences(text)

	out := TextResult{AllValid: true}
	for _, r := range refs {
		out.References = append(out.References, r.Raw)

		var res Result
		if r.Err != nil {
			res = failure(r.Raw, r.Err, "")
		} else if scope == nil {
			res = Result{Reference: r.Raw, IsValid: true}
		} else {
			res = Validate(r.Raw, scope)
		}
		if !res.IsValid {
			out.AllValid = false
		}
		out.Results = append(out.Results, res)
	}
	return out
}

// Preview renders a value for inline display, truncated to limit runes.
func Preview(v types.Value, limit int) string {
	s := v.String()
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func failure(reference string, err *types.ReferenceError, suggestion string) Result {
	return Result{
		Reference:  reference,
		IsValid:    false,
		Error:      err,
		ErrorKind:  string(err.Kind),
		ErrorText:  err.Message,
		Suggestion: suggestion,
	}
}

// suggestName proposes the closest existing variable name for a missing
// root. Best effort: prefix match first, then small edit distance.
func suggestName(missing string, candidates []string) string {
	if c := closest(missing, candidates); c != "" {
		return fmt.Sprintf("did you mean %q?", c)
	}
	return ""
}

// suggestAccessor proposes the closest key when a property lookup failed.
// It re-walks the path up to the failing accessor to find the object whose
// keys are the candidates.
func suggestAccessor(root types.Value, path ref.PropertyPath, werr *types.ReferenceError) string {
	if werr.Kind != types.KindPropertyNotFound {
		return ""
	}

	current := root
	for _, acc := range path {
		if acc.IsIndex {
			if current.Type() != types.TypeArray || acc.Index >= len(current.AsArray()) {
				return ""
			}
			current = current.AsArray()[acc.Index]
			continue
		}
		if current.Type() != types.TypeObject {
			return ""
		}
		next, ok := current.AsObject().Get(acc.Key)
		if !ok {
			// This is the failing accessor: suggest among the keys here.
			if c := closest(acc.Key, current.AsObject().Keys()); c != "" {
				return fmt.Sprintf("did you mean %q?", "."+c)
			}
			return ""
		}
		current = next
	}
	return ""
}

// closest returns the candidate with the smallest edit distance to s,
// provided the distance is small relative to the name length. Case folds.
func closest(s string, candidates []string) string {
	ls := strings.ToLower(s)
	best := ""
	bestDist := len(s)/2 + 1 // anything further is not a plausible typo

	for _, c := range candidates {
		lc := strings.ToLower(c)
		if strings.HasPrefix(lc, ls) && lc != ls {
			return c
		}
		if d := editDistance(ls, lc); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
