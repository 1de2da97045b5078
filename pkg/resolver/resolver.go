// Package resolver substitutes ${...} references in step parameter text
// with the display form of the values they address.
//
// Failures split two ways. A malformed reference or a missing root
// variable is recoverable: the token stays in the text verbatim and comes
// back as a warning, so one typo cannot mask the real step failure.
// Property, index, and type failures are fatal, because substituting a
// partially resolved parameter would silently change what the step does.
package resolver

import (
	"sort"
	"strings"

	"github.com/pollyan/intent-test-tools-sub001/pkg/ref"
	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

// Scope is the read-only variable view resolution runs against. A store
// snapshot satisfies it.
type Scope interface {
	Lookup(name string) (types.Value, bool)
}

// Resolve substitutes every reference in text, left to right. A missing
// root variable or a malformed reference leaves the original token in
// place and is returned as a warning; property, index, and type failures
// abort resolution of the text with the error.
func Resolve(text string, scope Scope) (string, []*types.ReferenceError, error) {
	refs := ref.FindReferences(text)
	if len(refs) == 0 {
		return text, nil, nil
	}

	var sb strings.Builder
	var warnings []*types.ReferenceError
	last := 0

	for _, r := range refs {
		sb.WriteString(text[last:r.Start])
		last = r.End

		if r.Err != nil {
			warnings = append(warnings, r.Err)
			sb.WriteString(r.Raw)
			continue
		}

		root, ok := scope.Lookup(r.Root)
		if !ok {
			warnings = append(warnings, types.NewVariableNotFoundError(r.Raw, r.Root))
			sb.WriteString(r.Raw)
			continue
		}

		val, werr := ref.Walk(root, r.Path, r.Raw)
		if werr != nil {
			return "", warnings, werr
		}
		sb.WriteString(val.Display())
	}
	sb.WriteString(text[last:])

	return sb.String(), warnings, nil
}

// ResolveValue resolves references inside a structured parameter value:
// string leaves are resolved, arrays and objects are walked recursively,
// and non-string scalars pass through untouched.
func ResolveValue(v types.Value, scope Scope) (types.Value, []*types.ReferenceError, error) {
	switch v.Type() {
	case types.TypeString:
		resolved, warnings, err := Resolve(v.AsString(), scope)
		if err != nil {
			return types.Null, warnings, err
		}
		return types.NewString(resolved), warnings, nil
	case types.TypeArray:
		var warnings []*types.ReferenceError
		items := v.AsArray()
		out := make([]types.Value, len(items))
		for i, item := range items {
			r, w, err := ResolveValue(item, scope)
			warnings = append(warnings, w...)
			if err != nil {
				return types.Null, warnings, err
			}
			out[i] = r
		}
		return types.NewArray(out), warnings, nil
	case types.TypeObject:
		var warnings []*types.ReferenceError
		obj := v.AsObject()
		out := types.NewOrderedMap()
		for _, k := range obj.Keys() {
			item, _ := obj.Get(k)
			r, w, err := ResolveValue(item, scope)
			warnings = append(warnings, w...)
			if err != nil {
				return types.Null, warnings, err
			}
			out.Set(k, r)
		}
		return types.NewObject(out), warnings, nil
	default:
		return v, nil, nil
	}
}

// ResolveParams resolves each entry of a step's parameter map. The first
// fatal error aborts the whole map; warnings from all entries resolved so
// far are returned either way.
func ResolveParams(params map[string]types.Value, scope Scope) (map[string]types.Value, []*types.ReferenceError, error) {
	resolved := make(map[string]types.Value, len(params))
	var warnings []*types.ReferenceError

	// Stable iteration keeps warning order deterministic.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, w, err := ResolveValue(params[k], scope)
		warnings = append(warnings, w...)
		if err != nil {
			return nil, warnings, err
		}
		resolved[k] = v
	}
	return resolved, warnings, nil
}
