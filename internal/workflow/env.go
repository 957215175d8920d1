package workflow

import "context"

// ReaderRunner reads files through the registered reader providers.
// Implemented by the providers package.
type ReaderRunner interface {
	// Run reads the given paths with the named plugin, or the best-priority
	// provider that claims the paths when plugin is empty.
	Run(ctx context.Context, paths []string, plugin string) (*DataModel, error)
}

// CommandRequest carries the resolved arguments of a command dispatch.
type CommandRequest struct {
	// WindowContext is the model whose window the command acts on, if any.
	WindowContext *DataModel

	// ModelContext is the model the command acts on, if any.
	ModelContext *DataModel

	// Params maps parameter names to resolved values (literals or models).
	Params map[string]any
}

// CommandRunner dispatches a named command with resolved arguments.
// Implemented by the command package.
type CommandRunner interface {
	Exec(ctx context.Context, commandID string, req CommandRequest) (*DataModel, error)
}

// Env bundles the external registries a compute pass needs. It is passed
// explicitly into compute entry points instead of living in ambient globals so
// that multiple independent engine instances can coexist in one process.
type Env struct {
	Readers  ReaderRunner
	Commands CommandRunner
}
