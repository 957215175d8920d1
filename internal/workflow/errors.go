package workflow

import "errors"

// Structural errors: programmer or plugin bugs, surfaced immediately.
var (
	// ErrNodeNotFound indicates a referenced node id is absent from a workflow.
	ErrNodeNotFound = errors.New("workflow node not found")

	// ErrEmptyWorkflow indicates an operation that needs a head step was called
	// on a workflow with no steps.
	ErrEmptyWorkflow = errors.New("workflow is empty")

	// ErrDuplicateArgument indicates a caller argument name was registered twice.
	ErrDuplicateArgument = errors.New("duplicate argument name")

	// ErrInvalidStepType indicates a step cannot be parametrized the requested way.
	ErrInvalidStepType = errors.New("invalid step type for parametrization")

	// ErrStepNotFound indicates a parametrized step id is absent from the
	// caller's captured workflow.
	ErrStepNotFound = errors.New("step not found in workflow")
)

// Provenance errors: environment or data issues, surfaced per window.
var (
	// ErrCommandResultType indicates a command did not produce a data model.
	ErrCommandResultType = errors.New("command did not return a data model")

	// ErrDanglingReference indicates a user-modification step references a node
	// that is absent from the workflow (corrupt or foreign session data).
	ErrDanglingReference = errors.New("dangling step reference")

	// ErrNotReproducible indicates a step has no recorded provenance and cannot
	// be materialized again.
	ErrNotReproducible = errors.New("step origin is not reproducible")
)
