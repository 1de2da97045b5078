package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

func TestPutGetReadYourWrites(t *testing.T) {
	s := New()

	err := s.Put("exec-1", Variable{
		Name:            "username",
		Value:           types.NewString("alice"),
		SourceStepIndex: 0,
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	v, ok := s.Get("exec-1", "username")
	if !ok {
		t.Fatal("variable not visible after put")
	}
	if v.Value.AsString() != "alice" {
		t.Errorf("value: got %q", v.Value.AsString())
	}
	if v.DataType != "string" {
		t.Errorf("data type: got %q, want string", v.DataType)
	}
	if v.CreatedAt.IsZero() {
		t.Error("created-at should be set on put")
	}
}

func TestGetUnknown(t *testing.T) {
	s := New()
	if _, ok := s.Get("nope", "x"); ok {
		t.Error("unknown execution should report not found")
	}

	s.Put("exec-1", Variable{Name: "a", Value: types.NewInt(1)})
	if _, ok := s.Get("exec-1", "b"); ok {
		t.Error("unknown variable should report not found")
	}
}

func TestExecutionIsolation(t *testing.T) {
	s := New()
	s.Put("exec-1", Variable{Name: "token", Value: types.NewString("one")})
	s.Put("exec-2", Variable{Name: "token", Value: types.NewString("two")})

	v1, _ := s.Get("exec-1", "token")
	v2, _ := s.Get("exec-2", "token")
	if v1.Value.AsString() != "one" || v2.Value.AsString() != "two" {
		t.Errorf("contexts leaked: %q / %q", v1.Value.AsString(), v2.Value.AsString())
	}
}

func TestOverwriteAcrossSteps(t *testing.T) {
	s := New()
	s.Put("exec-1", Variable{Name: "status", Value: types.NewString("pending"), SourceStepIndex: 1})
	if err := s.Put("exec-1", Variable{Name: "status", Value: types.NewString("done"), SourceStepIndex: 3}); err != nil {
		t.Fatalf("overwrite from a later step should succeed: %v", err)
	}

	v, _ := s.Get("exec-1", "status")
	if v.Value.AsString() != "done" {
		t.Errorf("got %q, want done", v.Value.AsString())
	}
	if v.SourceStepIndex != 3 {
		t.Errorf("source step: got %d, want 3", v.SourceStepIndex)
	}
}

func TestDuplicateStepBinding(t *testing.T) {
	s := New()
	s.Put("exec-1", Variable{Name: "result", Value: types.NewInt(1), SourceStepIndex: 2})

	err := s.Put("exec-1", Variable{Name: "result", Value: types.NewInt(2), SourceStepIndex: 2})
	if err == nil {
		t.Fatal("rebinding within one step with a different value should fail")
	}
	var re *types.ReferenceError
	if !errors.As(err, &re) || re.Kind != types.KindDuplicateStepBinding {
		t.Fatalf("got %v, want DuplicateStepBindingError", err)
	}

	// First value is kept.
	v, _ := s.Get("exec-1", "result")
	if v.Value.AsInt() != 1 {
		t.Errorf("value after rejected rebind: got %d, want 1", v.Value.AsInt())
	}

	// Rebinding with an equal value is a no-fail idempotent write.
	if err := s.Put("exec-1", Variable{Name: "result", Value: types.NewInt(1), SourceStepIndex: 2}); err != nil {
		t.Errorf("equal rebind in same step should succeed: %v", err)
	}

	// A rerun of the same step index later (after another step wrote) may
	// overwrite freely.
	s.Put("exec-1", Variable{Name: "other", Value: types.NewInt(0), SourceStepIndex: 3})
	if err := s.Put("exec-1", Variable{Name: "result", Value: types.NewInt(9), SourceStepIndex: 2}); err != nil {
		t.Errorf("rerun overwrite should succeed: %v", err)
	}
}

func TestRerunOverwritesAfterCompleteStep(t *testing.T) {
	s := New()

	// A retried step is the common case where no other variable is written
	// between the two binds: steps without output bindings never write.
	s.Put("exec-1", Variable{Name: "price", Value: types.NewInt(999), SourceStepIndex: 2})
	s.CompleteStep("exec-1")

	if err := s.Put("exec-1", Variable{Name: "price", Value: types.NewInt(899), SourceStepIndex: 2}); err != nil {
		t.Fatalf("rerun after completion should overwrite: %v", err)
	}
	v, _ := s.Get("exec-1", "price")
	if v.Value.AsInt() != 899 {
		t.Errorf("value after rerun: got %d, want 899", v.Value.AsInt())
	}

	// The rerun opens its own completion, so a conflicting rebind inside
	// it is still caught.
	if err := s.Put("exec-1", Variable{Name: "price", Value: types.NewInt(1), SourceStepIndex: 2}); err == nil {
		t.Error("conflicting rebind within the rerun should fail")
	}
}

func TestCompleteStepIdempotent(t *testing.T) {
	s := New()
	s.CompleteStep("never-existed")

	s.Put("exec-1", Variable{Name: "a", Value: types.NewInt(1), SourceStepIndex: 0})
	s.CompleteStep("exec-1")
	s.CompleteStep("exec-1")

	if err := s.Put("exec-1", Variable{Name: "a", Value: types.NewInt(2), SourceStepIndex: 0}); err != nil {
		t.Errorf("overwrite after completion: %v", err)
	}
}

func TestListOrder(t *testing.T) {
	s := New()
	s.Put("exec-1", Variable{Name: "c", Value: types.NewInt(3), SourceStepIndex: 2})
	s.Put("exec-1", Variable{Name: "a", Value: types.NewInt(1), SourceStepIndex: 0})
	s.Put("exec-1", Variable{Name: "b", Value: types.NewInt(2), SourceStepIndex: 0})

	got := s.List("exec-1")
	wantNames := []string{"a", "b", "c"}
	if len(got) != len(wantNames) {
		t.Fatalf("got %d variables, want %d", len(got), len(wantNames))
	}
	for i, want := range wantNames {
		if got[i].Name != want {
			t.Errorf("list[%d] = %q, want %q", i, got[i].Name, want)
		}
	}
}

func TestCleanupIdempotent(t *testing.T) {
	s := New()
	s.Put("exec-1", Variable{Name: "a", Value: types.NewInt(1)})

	s.Cleanup("exec-1")
	if _, ok := s.Get("exec-1", "a"); ok {
		t.Error("variable survived cleanup")
	}
	if got := s.List("exec-1"); len(got) != 0 {
		t.Errorf("list after cleanup: %v", got)
	}

	// Second cleanup of the same execution is a no-op.
	s.Cleanup("exec-1")
	s.Cleanup("never-existed")
}

func TestExecutions(t *testing.T) {
	s := New()
	s.Put("exec-b", Variable{Name: "x", Value: types.NewInt(1)})
	s.Put("exec-a", Variable{Name: "x", Value: types.NewInt(1)})

	ids := s.Executions()
	if len(ids) != 2 || ids[0] != "exec-a" || ids[1] != "exec-b" {
		t.Errorf("got %v", ids)
	}
}

func TestSnapshotIsPointInTime(t *testing.T) {
	s := New()
	s.Put("exec-1", Variable{Name: "a", Value: types.NewInt(1), SourceStepIndex: 0})

	snap := s.Snapshot("exec-1")
	s.Put("exec-1", Variable{Name: "b", Value: types.NewInt(2), SourceStepIndex: 1})

	if _, ok := snap.Lookup("b"); ok {
		t.Error("snapshot should not see writes made after it was taken")
	}
	if names := snap.Names(); len(names) != 1 || names[0] != "a" {
		t.Errorf("names: %v", names)
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("var_%d", i)
			s.Put("exec-1", Variable{Name: name, Value: types.NewInt(int64(i)), SourceStepIndex: i})
		}(i)
	}
	wg.Wait()

	if got := len(s.List("exec-1")); got != 20 {
		t.Errorf("got %d variables, want 20", got)
	}
}
