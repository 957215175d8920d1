package workflow

// DataModel is the typed value + metadata envelope produced by readers and
// commands and displayed in sub-windows. The engine treats Value opaquely; only
// Type and the attached provenance graph are interpreted here.
type DataModel struct {
	// Value is the materialized data (array, table, text, ...).
	Value any

	// Type is the hierarchical model type, e.g. "table" or "text.plain".
	Type string

	// Title is the display title of the model.
	Title string

	// Metadata carries widget-specific state, opaque to the engine.
	Metadata any

	// Extensions lists file extensions this model can be written to.
	Extensions []string

	// ExtensionDefault is the preferred extension when writing a copy.
	ExtensionDefault string

	// Workflow is the provenance graph that produced this model.
	Workflow *Workflow
}

// WithSource attaches a single-step read provenance to the model if it does not
// already carry one. Readers call this so that freshly read models know where
// they came from.
func (m *DataModel) WithSource(paths []string, plugin string) *DataModel {
	if m.Workflow != nil && m.Workflow.Len() > 0 {
		return m
	}
	step := NewLocalReaderMethod(paths, plugin)
	m.Workflow = New(step)
	return m
}
