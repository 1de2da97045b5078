package ref

import "github.com/pollyan/intent-test-tools-sub001/pkg/types"

// Walk evaluates a property path against a root value. It either fully
// succeeds or fails with one typed error naming the failing accessor;
// there is no partial result. raw is the reference text used in errors.
func Walk(root types.Value, path PropertyPath, raw string) (types.Value, *types.ReferenceError) {
	current := root
	for _, acc := range path {
		if acc.IsIndex {
			if current.Type() != types.TypeArray {
				return types.Null, types.NewTypeMismatchError(raw, acc.String(), current.Type())
			}
			items := current.AsArray()
			if acc.Index < 0 || acc.Index >= len(items) {
				return types.Null, types.NewIndexOutOfRangeError(raw, acc.Index, len(items))
			}
			current = items[acc.Index]
			continue
		}

		if current.Type() != types.TypeObject {
			return types.Null, types.NewTypeMismatchError(raw, acc.String(), current.Type())
		}
		val, ok := current.AsObject().Get(acc.Key)
		if !ok {
			return types.Null, types.NewPropertyNotFoundError(raw, acc.Key)
		}
		current = val
	}
	return current, nil
}
