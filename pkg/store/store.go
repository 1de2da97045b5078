// Package store provides in-memory storage for execution contexts: the
// variables produced by completed test steps, keyed by execution ID.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

// Variable is a named, typed value produced by a completed step.
type Variable struct {
	Name             string
	Value            types.Value
	DataType         string
	SourceStepIndex  int
	CreatedAt        time.Time
	ExtractionQuery  string   // AI query that produced the value, if any
	ExtractionSchema string   // JSON schema the value was extracted against, if any
	SchemaWarnings   []string // schema violations observed at ingestion

	seq int // insertion order within the execution
}

// executionContext holds all variables for one execution. Writes are
// serialized by the context mutex; reads take the same lock so a Put that
// has returned is visible to every subsequent Get or List.
type executionContext struct {
	mu          sync.RWMutex
	executionID string
	vars        map[string]*Variable
	nextSeq     int

	// pending holds the names bound since the current step completion
	// opened. CompleteStep closes it; a write from a different step index
	// closes it implicitly.
	pending     map[string]struct{}
	pendingStep int
}

// Store is a thread-safe registry of execution contexts. Contexts for
// different execution IDs are fully independent.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*executionContext
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		contexts: make(map[string]*executionContext),
	}
}

// context returns the context for an execution, creating it on first use.
func (s *Store) context(executionID string) *executionContext {
	s.mu.RLock()
	ctx, ok := s.contexts[executionID]
	s.mu.RUnlock()
	if ok {
		return ctx
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx, ok = s.contexts[executionID]; ok {
		return ctx
	}
	ctx = &executionContext{
		executionID: executionID,
		vars:        make(map[string]*Variable),
		pendingStep: -1,
	}
	s.contexts[executionID] = ctx
	return ctx
}

// Put inserts or overwrites the variable with that name. Overwrite-by-name
// is allowed across step completions and reruns; binding the same name
// twice with a different value within one step completion returns
// DuplicateStepBindingError. The executor marks completion boundaries with
// CompleteStep; a write from a different step index also closes the open
// completion, so the signal is only required before rerunning the same
// step index.
func (s *Store) Put(executionID string, v Variable) error {
	ctx := s.context(executionID)

	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if v.SourceStepIndex != ctx.pendingStep || ctx.pending == nil {
		ctx.pending = make(map[string]struct{})
		ctx.pendingStep = v.SourceStepIndex
	}

	if _, open := ctx.pending[v.Name]; open {
		if existing := ctx.vars[v.Name]; existing != nil && !existing.Value.Equal(v.Value) {
			return types.NewDuplicateStepBindingError(v.Name, v.SourceStepIndex)
		}
	}

	if v.DataType == "" {
		v.DataType = v.Value.Type().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	v.seq = ctx.nextSeq
	ctx.nextSeq++
	ctx.pending[v.Name] = struct{}{}

	stored := v
	ctx.vars[v.Name] = &stored
	return nil
}

// CompleteStep closes the open step completion for an execution. After the
// signal, a write to the same step index counts as a rerun and may
// overwrite any name. Idempotent; unknown executions are a no-op.
func (s *Store) CompleteStep(executionID string) {
	s.mu.RLock()
	ctx, ok := s.contexts[executionID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	ctx.mu.Lock()
	ctx.pending = nil
	ctx.pendingStep = -1
	ctx.mu.Unlock()
}

// Get retrieves a variable by name. The second result is false when the
// execution or the variable is unknown.
func (s *Store) Get(executionID, name string) (Variable, bool) {
	s.mu.RLock()
	ctx, ok := s.contexts[executionID]
	s.mu.RUnlock()
	if !ok {
		return Variable{}, false
	}

	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	v, ok := ctx.vars[name]
	if !ok {
		return Variable{}, false
	}
	return *v, true
}

// List returns all variables for an execution ordered by source step index,
// then insertion order.
func (s *Store) List(executionID string) []Variable {
	s.mu.RLock()
	ctx, ok := s.contexts[executionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	ctx.mu.RLock()
	result := make([]Variable, 0, len(ctx.vars))
	for _, v := range ctx.vars {
		result = append(result, *v)
	}
	ctx.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].SourceStepIndex != result[j].SourceStepIndex {
			return result[i].SourceStepIndex < result[j].SourceStepIndex
		}
		return result[i].seq < result[j].seq
	})
	return result
}

// Cleanup removes all variables for an execution. Idempotent.
func (s *Store) Cleanup(executionID string) {
	s.mu.Lock()
	delete(s.contexts, executionID)
	s.mu.Unlock()
}

// Executions returns the IDs of all live execution contexts, sorted.
func (s *Store) Executions() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.contexts))
	for id := range s.contexts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Snapshot is a point-in-time read-only view of one execution's variables.
// Batch consumers (text validation, parameter resolution) take one snapshot
// instead of hitting the store per reference.
type Snapshot struct {
	vars    map[string]Variable
	ordered []Variable
}

// Snapshot captures the current variables of an execution. An unknown
// execution yields an empty snapshot.
func (s *Store) Snapshot(executionID string) *Snapshot {
	ordered := s.List(executionID)
	vars := make(map[string]Variable, len(ordered))
	for _, v := range ordered {
		vars[v.Name] = v
	}
	return &Snapshot{vars: vars, ordered: ordered}
}

// Lookup returns the value of a variable by name.
func (sn *Snapshot) Lookup(name string) (types.Value, bool) {
	v, ok := sn.vars[name]
	if !ok {
		return types.Null, false
	}
	return v.Value, true
}

// Variable returns the full variable record by name.
func (sn *Snapshot) Variable(name string) (Variable, bool) {
	v, ok := sn.vars[name]
	return v, ok
}

// Names returns the variable names in (source step, insertion) order.
func (sn *Snapshot) Names() []string {
	names := make([]string, len(sn.ordered))
	for i, v := range sn.ordered {
		names[i] = v.Name
	}
	return names
}

// Variables returns the snapshot's variables in (source step, insertion) order.
func (sn *Snapshot) Variables() []Variable {
	out := make([]Variable, len(sn.ordered))
	copy(out, sn.ordered)
	return out
}
