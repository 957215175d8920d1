package app

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/himena-app/himena/internal/model"
	"github.com/himena-app/himena/internal/workflow"
)

// Window is one sub-window of the workspace: a data model plus display state.
type Window struct {
	id       uuid.UUID
	title    string
	rect     model.WindowRect
	state    model.WindowState
	anchor   model.Anchor
	editable bool
	stale    bool
	model    *workflow.DataModel

	// Where the window was last saved, if anywhere.
	savePath   string
	savePlugin string
}

func newWindow(m *workflow.DataModel) *Window {
	title := m.Title
	if title == "" {
		title = "Untitled"
	}
	return &Window{
		id:       uuid.New(),
		title:    title,
		state:    model.StateNormal,
		anchor:   model.NoAnchor(),
		editable: true,
		model:    m,
	}
}

func (w *Window) ID() uuid.UUID              { return w.id }
func (w *Window) Title() string              { return w.title }
func (w *Window) Model() *workflow.DataModel { return w.model }
func (w *Window) Rect() model.WindowRect     { return w.rect }
func (w *Window) State() model.WindowState   { return w.state }
func (w *Window) Anchor() model.Anchor       { return w.anchor }
func (w *Window) Editable() bool             { return w.editable }
func (w *Window) Stale() bool                { return w.stale }

func (w *Window) SetTitle(title string)        { w.title = title }
func (w *Window) SetRect(r model.WindowRect)   { w.rect = r }
func (w *Window) SetState(s model.WindowState) { w.state = s }
func (w *Window) SetAnchor(a model.Anchor)     { w.anchor = a }
func (w *Window) SetEditable(editable bool)    { w.editable = editable }
func (w *Window) markStale()                   { w.stale = true }

// RestoreID adopts an identifier from a saved session, so references recorded
// before the save still point at this window.
func (w *Window) RestoreID(id uuid.UUID) { w.id = id }

// SavedTo records where the window's model was last written.
func (w *Window) SavedTo(path, plugin string) {
	w.savePath = path
	w.savePlugin = plugin
}

// SavePath returns the last save destination and plugin, if any.
func (w *Window) SavePath() (string, string) { return w.savePath, w.savePlugin }

// ReadFrom reports the on-disk source behind the window: the single local read
// at the root, provided every later step is a user edit. Windows holding
// computed results are not file-backed.
func (w *Window) ReadFrom() (paths []string, plugin string, ok bool) {
	wf := w.model.Workflow
	if wf == nil || wf.Len() == 0 {
		return nil, "", false
	}
	read, isRead := wf.At(0).(*workflow.LocalReaderMethod)
	if !isRead {
		return nil, "", false
	}
	for i := 1; i < wf.Len(); i++ {
		if _, isMod := wf.At(i).(*workflow.UserModification); !isMod {
			return nil, "", false
		}
	}
	return read.Paths(), read.Plugin(), true
}

// SetModified replaces the window's value with a user edit, appending a
// modification step to the provenance graph. For text values the step carries
// the actual patch; for anything else the edit is recorded without one.
func (w *Window) SetModified(newValue any) error {
	wf := w.model.Workflow
	if wf == nil || wf.Len() == 0 {
		wf = workflow.New(workflow.NewProgrammaticMethod())
	}
	parent, err := wf.LastID()
	if err != nil {
		return err
	}

	patch := ""
	if oldText, ok := w.model.Value.(string); ok {
		if newText, ok := newValue.(string); ok {
			dmp := diffmatchpatch.New()
			patch = dmp.PatchToText(dmp.PatchMake(oldText, newText))
		}
	}

	next, err := wf.WithStep(workflow.NewUserModification(parent, patch))
	if err != nil {
		return fmt.Errorf("recording modification of %s: %w", w.title, err)
	}

	updated := *w.model
	updated.Value = newValue
	updated.Workflow = next
	w.model = &updated
	w.stale = false
	return nil
}
