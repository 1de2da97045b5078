package ref

import (
	"testing"

	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

func walkRoot(t *testing.T) types.Value {
	t.Helper()
	v, err := types.DecodeJSON([]byte(`{
		"name": "iPhone 15",
		"price": 999,
		"tags": ["phone", "apple"],
		"specs": {"storage": "256GB"}
	}`))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return v
}

func TestWalk(t *testing.T) {
	root := walkRoot(t)

	tests := []struct {
		path string
		want string // Display form of the result
	}{
		{path: "x", want: `{"name":"iPhone 15","price":999,"tags":["phone","apple"],"specs":{"storage":"256GB"}}`},
		{path: "x.name", want: "iPhone 15"},
		{path: "x.price", want: "999"},
		{path: "x.tags[0]", want: "phone"},
		{path: "x.tags[1]", want: "apple"},
		{path: "x.specs.storage", want: "256GB"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, path, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, werr := Walk(root, path, "${"+tt.path+"}")
			if werr != nil {
				t.Fatalf("walk: %v", werr)
			}
			if got.Display() != tt.want {
				t.Errorf("got %q, want %q", got.Display(), tt.want)
			}
		})
	}
}

func TestWalkErrors(t *testing.T) {
	root := walkRoot(t)

	tests := []struct {
		path     string
		wantKind types.ErrorKind
	}{
		{path: "x.missing", wantKind: types.KindPropertyNotFound},
		{path: "x.specs.missing", wantKind: types.KindPropertyNotFound},
		{path: "x.tags[5]", wantKind: types.KindIndexOutOfRange},
		{path: "x.name[0]", wantKind: types.KindTypeMismatch},
		{path: "x.name.length", wantKind: types.KindTypeMismatch},
		{path: "x.price.value", wantKind: types.KindTypeMismatch},
		{path: "x.tags.first", wantKind: types.KindTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, path, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			raw := "${" + tt.path + "}"
			_, werr := Walk(root, path, raw)
			if werr == nil {
				t.Fatal("expected error")
			}
			if werr.Kind != tt.wantKind {
				t.Errorf("kind: got %s, want %s", werr.Kind, tt.wantKind)
			}
			if werr.Reference != raw {
				t.Errorf("reference: got %q, want %q", werr.Reference, raw)
			}
			if werr.Accessor == "" {
				t.Error("error should name the failing accessor")
			}
		})
	}
}
