// Package workflow implements the provenance graph engine: every sub-window's
// data is modeled as a directed acyclic graph of steps (file reads, command
// executions, user modifications), supporting lazy re-computation,
// serialization to the session format, and parametrization into reusable
// callables.
//
// The graph is acyclic by construction: a step can only reference node ids
// that already existed when it was created, and WithStep rejects steps whose
// parents are not present.
package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "himena/workflow"

// Workflow is an ordered collection of steps. Insertion order is a valid
// topological numbering: every step's parents appear earlier by construction.
//
// Workflows are copy-on-append: WithStep and Concat never mutate the receiver,
// so a workflow may be referenced from multiple windows concurrently as long
// as steps are never mutated in place.
type Workflow struct {
	steps []Step
	cache *modelCache

	// aliases maps replaced node ids to their replacements. Populated only on
	// workflows built by a Caller invocation: steps recorded before the
	// replacement still reference the captured id, which resolves to the
	// fresh replacement step through this table.
	aliases map[uuid.UUID]uuid.UUID
}

// canonical follows the alias table, so references to a replaced step resolve
// to its replacement.
func (w *Workflow) canonical(id uuid.UUID) uuid.UUID {
	if w.aliases != nil {
		if alias, ok := w.aliases[id]; ok {
			return alias
		}
	}
	return id
}

// modelCache holds per-compute-pass memoized models. Filter copies share the
// cache reference so that one top-level resolution evaluates each node at most
// once even across filtered sub-graphs.
type modelCache struct {
	enabled bool
	models  map[uuid.UUID]*DataModel
}

// New creates a workflow from the given steps. The caller is responsible for
// topological validity; use WithStep to have parent presence enforced.
func New(steps ...Step) *Workflow {
	return &Workflow{
		steps: steps,
		cache: &modelCache{models: make(map[uuid.UUID]*DataModel)},
	}
}

// Steps returns the underlying step list. Callers must not mutate it.
func (w *Workflow) Steps() []Step { return w.steps }

// Len returns the number of steps.
func (w *Workflow) Len() int { return len(w.steps) }

// At returns the step at the given index.
func (w *Workflow) At(i int) Step { return w.steps[i] }

// IDToIndexMap maps each node id to its index in the step list.
func (w *Workflow) IDToIndexMap() map[uuid.UUID]int {
	m := make(map[uuid.UUID]int, len(w.steps))
	for i, step := range w.steps {
		m[step.ID()] = i
	}
	return m
}

func (w *Workflow) indexOf(id uuid.UUID) (int, bool) {
	id = w.canonical(id)
	for i, step := range w.steps {
		if step.ID() == id {
			return i, true
		}
	}
	return 0, false
}

// Last returns the head step (the window's current view), or nil if empty.
func (w *Workflow) Last() Step {
	if len(w.steps) == 0 {
		return nil
	}
	return w.steps[len(w.steps)-1]
}

// LastID returns the head step's id.
func (w *Workflow) LastID() (uuid.UUID, error) {
	if step := w.Last(); step != nil {
		return step.ID(), nil
	}
	return uuid.Nil, ErrEmptyWorkflow
}

// Filter returns the induced sub-graph consisting of the given node and all of
// its transitive ancestors, preserving relative order. The result shares the
// receiver's step objects and model cache.
func (w *Workflow) Filter(target uuid.UUID) (*Workflow, error) {
	idToIndex := w.IDToIndexMap()
	index, ok := idToIndex[w.canonical(target)]
	if !ok {
		return nil, fmt.Errorf("filter target %s: %w", target, ErrNodeNotFound)
	}

	indices := map[int]struct{}{index: {}}
	queue := []Step{w.steps[index]}
	for len(queue) > 0 {
		current := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, parent := range current.Parents() {
			idx, ok := idToIndex[w.canonical(parent)]
			if !ok {
				return nil, fmt.Errorf("parent %s of %s: %w", parent, current.ID(), ErrDanglingReference)
			}
			if _, seen := indices[idx]; seen {
				continue
			}
			indices[idx] = struct{}{}
			queue = append(queue, w.steps[idx])
		}
	}

	// Stable by original index, not discovery order.
	sorted := make([]int, 0, len(indices))
	for idx := range indices {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	steps := make([]Step, len(sorted))
	for i, idx := range sorted {
		steps[i] = w.steps[idx]
	}
	return &Workflow{steps: steps, cache: w.cache, aliases: w.aliases}, nil
}

// WithStep returns a new workflow with step appended. Every parent id the step
// declares must already be present, which keeps the graph acyclic and
// self-contained.
func (w *Workflow) WithStep(step Step) (*Workflow, error) {
	idToIndex := w.IDToIndexMap()
	for _, parent := range step.Parents() {
		if _, ok := idToIndex[parent]; !ok {
			return nil, fmt.Errorf("appending %s: parent %s: %w", step.ID(), parent, ErrNodeNotFound)
		}
	}
	steps := make([]Step, len(w.steps), len(w.steps)+1)
	copy(steps, w.steps)
	return New(append(steps, step)...), nil
}

// ModelForID materializes the node with the given id. During a top-level
// GetModel pass results are memoized so each node is evaluated at most once.
func (w *Workflow) ModelForID(ctx context.Context, env *Env, id uuid.UUID) (*DataModel, error) {
	id = w.canonical(id)
	if model, ok := w.cache.models[id]; ok {
		return model, nil
	}
	for _, step := range w.steps {
		if step.ID() != id {
			continue
		}
		model, err := step.resolve(ctx, env, w)
		if err != nil {
			return nil, err
		}
		model.Workflow = w
		if w.cache.enabled {
			w.cache.models[id] = model
		}
		return model, nil
	}
	return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
}

// GetModel computes the head node's model. A cache scope is established for
// the duration of the call: shared ancestors of a diamond-shaped dependency
// are resolved exactly once, which matters when commands have side effects.
// The cache is cleared on exit, so a second call re-executes every node.
func (w *Workflow) GetModel(ctx context.Context, env *Env) (*DataModel, error) {
	head := w.Last()
	if head == nil {
		return nil, ErrEmptyWorkflow
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "workflow.compute")
	span.SetAttributes(
		attribute.Int("workflow.steps", len(w.steps)),
		attribute.String("workflow.head_id", head.ID().String()),
		attribute.String("workflow.head_type", head.Type()),
	)
	defer span.End()

	wasEnabled := w.cache.enabled
	w.cache.enabled = true
	defer func() {
		w.cache.enabled = wasEnabled
		w.cache.models = make(map[uuid.UUID]*DataModel)
	}()

	model, err := w.ModelForID(ctx, env, head.ID())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("computing step %s (%s): %w", head.ID(), head.Type(), err)
	}
	return model, nil
}

// Concat merges multiple workflows into one, deduplicating steps by id. The
// first occurrence wins and first-seen order is preserved.
func Concat(workflows []*Workflow) *Workflow {
	var steps []Step
	seen := make(map[uuid.UUID]struct{})
	for _, wf := range workflows {
		if wf == nil {
			continue
		}
		for _, step := range wf.steps {
			if _, ok := seen[step.ID()]; ok {
				continue
			}
			seen[step.ID()] = struct{}{}
			steps = append(steps, step)
		}
	}
	return New(steps...)
}
