package validator

import (
	"strings"
	"testing"

	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

type mapScope struct {
	vars  map[string]types.Value
	names []string
}

func (m *mapScope) Lookup(name string) (types.Value, bool) {
	v, ok := m.vars[name]
	return v, ok
}

func (m *mapScope) Names() []string { return m.names }

func testScope(t *testing.T) *mapScope {
	t.Helper()
	product, err := types.DecodeJSON([]byte(`{"name":"iPhone 15","price":999,"tags":["phone"]}`))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return &mapScope{
		vars: map[string]types.Value{
			"username":     types.NewString("alice"),
			"user_count":   types.NewInt(42),
			"product_info": product,
		},
		names: []string{"username", "user_count", "product_info"},
	}
}

func TestValidateSyntax(t *testing.T) {
	tests := []struct {
		reference string
		valid     bool
	}{
		{"${username}", true},
		{"${a.b.c}", true},
		{"${items[0].name}", true},
		{"username", true},
		{"a.b[2]", true},
		{"${}", false},
		{"${123}", false},
		{"${a..b}", false},
		{"${a[}", false},
		{"${a b}", false},
	}

	for _, tt := range tests {
		t.Run(tt.reference, func(t *testing.T) {
			res := ValidateSyntax(tt.reference)
			if res.IsValid != tt.valid {
				t.Errorf("IsValid = %v, want %v (%+v)", res.IsValid, tt.valid, res)
			}
			if !tt.valid && res.ErrorKind != string(types.KindSyntax) {
				t.Errorf("error kind: %q", res.ErrorKind)
			}
		})
	}
}

func TestValidateNilScopeIsSyntaxOnly(t *testing.T) {
	res := Validate("${completely_unknown}", nil)
	if !res.IsValid {
		t.Errorf("syntax-only validation should accept unknown names: %+v", res)
	}
}

func TestValidateWithContext(t *testing.T) {
	scope := testScope(t)

	tests := []struct {
		reference    string
		valid        bool
		wantKind     types.ErrorKind
		wantPreview  string
		wantDataType string
	}{
		{reference: "${username}", valid: true, wantPreview: `"alice"`, wantDataType: "string"},
		{reference: "${user_count}", valid: true, wantPreview: "42", wantDataType: "number"},
		{reference: "${product_info.price}", valid: true, wantPreview: "999", wantDataType: "number"},
		{reference: "${product_info.tags[0]}", valid: true, wantPreview: `"phone"`, wantDataType: "string"},
		{reference: "${missing_var}", wantKind: types.KindVariableNotFound},
		{reference: "${product_info.color}", wantKind: types.KindPropertyNotFound},
		{reference: "${product_info.tags[9]}", wantKind: types.KindIndexOutOfRange},
		{reference: "${username.length}", wantKind: types.KindTypeMismatch},
		{reference: "${not valid}", wantKind: types.KindSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.reference, func(t *testing.T) {
			res := Validate(tt.reference, scope)
			if res.IsValid != tt.valid {
				t.Fatalf("IsValid = %v, want %v (%+v)", res.IsValid, tt.valid, res)
			}
			if tt.valid {
				if res.Preview != tt.wantPreview {
					t.Errorf("preview: got %q, want %q", res.Preview, tt.wantPreview)
				}
				if res.DataType != tt.wantDataType {
					t.Errorf("data type: got %q, want %q", res.DataType, tt.wantDataType)
				}
				return
			}
			if res.ErrorKind != string(tt.wantKind) {
				t.Errorf("error kind: got %q, want %q", res.ErrorKind, tt.wantKind)
			}
			if res.ErrorText == "" {
				t.Error("invalid result should carry a message")
			}
		})
	}
}

func TestValidateSuggestions(t *testing.T) {
	scope := testScope(t)

	res := Validate("${user_name}", scope)
	if res.IsValid {
		t.Fatal("expected invalid")
	}
	if !strings.Contains(res.Suggestion, "username") {
		t.Errorf("suggestion %q should mention username", res.Suggestion)
	}

	res = Validate("${product_info.nam}", scope)
	if res.IsValid {
		t.Fatal("expected invalid")
	}
	if !strings.Contains(res.Suggestion, ".name") {
		t.Errorf("suggestion %q should mention .name", res.Suggestion)
	}
}

func TestValidateText(t *testing.T) {
	scope := testScope(t)

	out := ValidateText("hi ${username}, ${missing} and ${123bad}", scope)
	if out.AllValid {
		t.Error("text with failures should not be all valid")
	}
	wantRefs := []string{"${username}", "${missing}", "${123bad}"}
	if len(out.Results) != len(wantRefs) {
		t.Fatalf("got %d results, want %d", len(out.Results), len(wantRefs))
	}
	for i, want := range wantRefs {
		if out.References[i] != want {
			t.Errorf("references[%d] = %q, want %q", i, out.References[i], want)
		}
		if out.Results[i].Reference != want {
			t.Errorf("results[%d].Reference = %q, want %q", i, out.Results[i].Reference, want)
		}
	}
	if !out.Results[0].IsValid || out.Results[1].IsValid || out.Results[2].IsValid {
		t.Errorf("validity flags wrong: %+v", out.Results)
	}
	if out.Results[1].ErrorKind != string(types.KindVariableNotFound) {
		t.Errorf("results[1] kind: %q", out.Results[1].ErrorKind)
	}
	if out.Results[2].ErrorKind != string(types.KindSyntax) {
		t.Errorf("results[2] kind: %q", out.Results[2].ErrorKind)
	}
}

func TestValidateTextNoReferences(t *testing.T) {
	out := ValidateText("nothing to see here", testScope(t))
	if !out.AllValid {
		t.Error("text without references is trivially valid")
	}
	if len(out.Results) != 0 {
		t.Errorf("results: %+v", out.Results)
	}
}

func TestPreviewTruncation(t *testing.T) {
	long := types.NewString(strings.Repeat("x", 200))
	got := Preview(long, 20)
	if len([]rune(got)) != 20 {
		t.Errorf("preview length: %d, want 20", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated preview should end with ellipsis: %q", got)
	}

	short := types.NewString("ok")
	if Preview(short, 20) != `"ok"` {
		t.Errorf("short preview: %q", Preview(short, 20))
	}
}
