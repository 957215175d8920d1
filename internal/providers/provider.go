// Package providers implements the reader/writer provider registry: plugins
// register functions that can materialize files into data models or write
// models back out, and the store picks the best candidate per request.
package providers

import (
	"errors"

	"github.com/himena-app/himena/internal/workflow"
)

var (
	// ErrReaderNotFound is returned when no registered reader claims a path.
	ErrReaderNotFound = errors.New("no reader provider found")

	// ErrWriterNotFound is returned when no registered writer claims a model.
	ErrWriterNotFound = errors.New("no writer provider found")
)

// ReaderProvider turns files into data models.
type ReaderProvider struct {
	// Plugin is the fully qualified provider id, e.g. "builtins:csv".
	Plugin string

	// Priority breaks ties between claiming providers; highest wins.
	Priority int

	// OutputModelType is the model type this reader produces.
	OutputModelType string

	// CanRead reports whether the provider claims the path.
	CanRead func(path string) bool

	// Read materializes the paths into a model.
	Read func(paths []string) (*workflow.DataModel, error)
}

// WriterProvider writes data models back to files.
type WriterProvider struct {
	Plugin   string
	Priority int

	// CanWrite reports whether the provider can persist the model to path.
	CanWrite func(model *workflow.DataModel, path string) bool

	// Write persists the model.
	Write func(model *workflow.DataModel, path string) error
}
