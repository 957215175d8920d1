// Package session implements saving and restoring workspace state. A session
// records every window's display properties plus the provenance needed to
// rebuild its data: a snapshot read of the source file, a materialized copy
// inside the session archive, or the full command chain to recompute it.
package session

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/himena-app/himena/internal/app"
	"github.com/himena-app/himena/internal/model"
	"github.com/himena-app/himena/internal/workflow"
)

// Version is written into saved sessions for forward-compatibility checks.
const Version = "0.1.0"

// Session file kinds, stored under the top-level "session" key.
const (
	kindMain = "main"
	kindTab  = "tab"
)

var (
	// ErrInvalidSession is returned for files that are not session documents.
	ErrInvalidSession = errors.New("invalid session file")

	// ErrNotRestorable is returned when a window can neither be re-read from
	// disk nor recomputed nor copied into the session.
	ErrNotRestorable = errors.New("window data cannot be restored later")

	// ErrPartialRestore marks a load that skipped some windows but restored
	// the rest. The workspace is usable; the error is advisory.
	ErrPartialRestore = errors.New("session restored partially")
)

// Profile identifies the plugin environment a session was saved under.
type Profile struct {
	Name    string   `yaml:"name"`
	Plugins []string `yaml:"plugins"`
	Theme   string   `yaml:"theme"`
}

// WindowDescription captures one window's state and provenance.
type WindowDescription struct {
	Title      string
	Rect       model.WindowRect
	State      model.WindowState
	Anchor     model.Anchor
	IsEditable bool
	ID         uuid.UUID

	// ShortWorkflow is the snapshot read used to restore the window quickly:
	// a single reader step, or nil when the window must be recomputed or
	// loaded from a stored copy.
	ShortWorkflow workflow.Step

	// Workflow is the full provenance graph, kept for lineage even when the
	// snapshot read is used to restore.
	Workflow *workflow.Workflow

	ModelType      string
	WidgetPluginID string
}

// TabSession is one tab's windows and focus.
type TabSession struct {
	Name         string              `yaml:"name"`
	Windows      []WindowDescription `yaml:"windows"`
	CurrentIndex int                 `yaml:"current_index"`
}

// AppSession is the whole workspace.
type AppSession struct {
	Version      string           `yaml:"version"`
	Profile      Profile          `yaml:"profile"`
	Tabs         []TabSession     `yaml:"tabs"`
	CurrentIndex int              `yaml:"current_index"`
	Rect         model.WindowRect `yaml:"rect"`
}

// Options controls how window data is persisted.
type Options struct {
	// SaveCopies materializes every window's data inside the session archive
	// regardless of whether the source file still exists.
	SaveCopies bool

	// AllowCalculate lists command ids whose outputs are safe and cheap to
	// recompute on load instead of storing a copy.
	AllowCalculate []string
}

// calculable reports whether the workflow's head is a whitelisted command
// execution, so the window may be saved as "replay this chain on load".
func (o Options) calculable(wf *workflow.Workflow) bool {
	if wf == nil {
		return false
	}
	cmd, ok := wf.Last().(*workflow.CommandExecution)
	if !ok {
		return false
	}
	return slices.Contains(o.AllowCalculate, cmd.CommandID())
}

// describeWindow builds a WindowDescription. When requireSource is set, a
// window that is neither file-backed nor calculable is an error; directory
// and zip dumps pass false because they store a copy instead.
func describeWindow(win *app.Window, opts Options, requireSource bool) (WindowDescription, error) {
	m := win.Model()
	desc := WindowDescription{
		Title:          win.Title(),
		Rect:           win.Rect(),
		State:          win.State(),
		Anchor:         win.Anchor(),
		IsEditable:     win.Editable(),
		ID:             win.ID(),
		Workflow:       m.Workflow,
		ModelType:      m.Type,
		WidgetPluginID: "",
	}
	if desc.Workflow == nil {
		desc.Workflow = workflow.New()
	}

	if paths, plugin, ok := win.ReadFrom(); ok {
		desc.ShortWorkflow = workflow.NewLocalReaderMethod(paths, plugin)
		return desc, nil
	}
	if opts.calculable(m.Workflow) || !requireSource {
		return desc, nil
	}
	return desc, fmt.Errorf("window %q (%s): %w", win.Title(), m.Type, ErrNotRestorable)
}

// FromTab snapshots one tab.
func FromTab(tab *app.Tab, opts Options, requireSource bool) (*TabSession, error) {
	ts := &TabSession{Name: tab.Name(), CurrentIndex: tab.CurrentIndex()}
	for _, win := range tab.Windows() {
		desc, err := describeWindow(win, opts, requireSource)
		if err != nil {
			return nil, err
		}
		ts.Windows = append(ts.Windows, desc)
	}
	return ts, nil
}

// FromMainWindow snapshots the whole workspace.
func FromMainWindow(mw *app.MainWindow, opts Options, requireSource bool) (*AppSession, error) {
	s := &AppSession{
		Version:      Version,
		Profile:      Profile{Name: "default"},
		CurrentIndex: mw.CurrentIndex(),
		Rect:         mw.Rect(),
	}
	for _, tab := range mw.Tabs() {
		ts, err := FromTab(tab, opts, requireSource)
		if err != nil {
			return nil, err
		}
		s.Tabs = append(s.Tabs, *ts)
	}
	return s, nil
}

// windowDoc is the serialized form of a WindowDescription.
type windowDoc struct {
	Title          string             `yaml:"title"`
	Rect           model.WindowRect   `yaml:"rect"`
	State          string             `yaml:"state"`
	Anchor         model.Anchor       `yaml:"anchor"`
	IsEditable     bool               `yaml:"is_editable"`
	ID             string             `yaml:"id"`
	ShortWorkflow  *yaml.Node         `yaml:"short_workflow,omitempty"`
	Workflow       *workflow.Workflow `yaml:"workflow"`
	ModelType      string             `yaml:"model_type"`
	WidgetPluginID string             `yaml:"widget_plugin_id,omitempty"`
}

// MarshalYAML serializes the description with the step codec for the snapshot
// read.
func (d WindowDescription) MarshalYAML() (any, error) {
	doc := windowDoc{
		Title:          d.Title,
		Rect:           d.Rect,
		State:          string(d.State),
		Anchor:         d.Anchor,
		IsEditable:     d.IsEditable,
		ID:             d.ID.String(),
		Workflow:       d.Workflow,
		ModelType:      d.ModelType,
		WidgetPluginID: d.WidgetPluginID,
	}
	if d.ShortWorkflow != nil {
		enc, err := workflow.MarshalStep(d.ShortWorkflow)
		if err != nil {
			return nil, fmt.Errorf("window %q snapshot: %w", d.Title, err)
		}
		var node yaml.Node
		if err := node.Encode(enc); err != nil {
			return nil, fmt.Errorf("window %q snapshot: %w", d.Title, err)
		}
		doc.ShortWorkflow = &node
	}
	return doc, nil
}

// UnmarshalYAML reconstructs the description, validating ids and the step
// document.
func (d *WindowDescription) UnmarshalYAML(node *yaml.Node) error {
	var doc windowDoc
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("decoding window description: %w", err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return fmt.Errorf("window %q id: %w", doc.Title, err)
	}
	state, err := model.ParseWindowState(doc.State)
	if err != nil {
		return fmt.Errorf("window %q: %w", doc.Title, err)
	}

	*d = WindowDescription{
		Title:          doc.Title,
		Rect:           doc.Rect,
		State:          state,
		Anchor:         doc.Anchor,
		IsEditable:     doc.IsEditable,
		ID:             id,
		Workflow:       doc.Workflow,
		ModelType:      doc.ModelType,
		WidgetPluginID: doc.WidgetPluginID,
	}
	if d.Workflow == nil {
		d.Workflow = workflow.New()
	}
	if doc.ShortWorkflow != nil {
		step, err := workflow.UnmarshalStep(doc.ShortWorkflow)
		if err != nil {
			return fmt.Errorf("window %q snapshot: %w", doc.Title, err)
		}
		d.ShortWorkflow = step
	}
	return nil
}

// marshalTagged renders the session document with the "session" kind as the
// first key, the way session files identify themselves.
func marshalTagged(kind string, payload any) ([]byte, error) {
	var body yaml.Node
	if err := body.Encode(payload); err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	body.Content = append([]*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "session"},
		{Kind: yaml.ScalarNode, Value: kind},
	}, body.Content...)
	return yaml.Marshal(&body)
}

// FromYAML loads a session file, returning *AppSession or *TabSession
// depending on the document's kind.
func FromYAML(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	return parseSession(data)
}

func parseSession(data []byte) (any, error) {
	var probe struct {
		Session string `yaml:"session"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	switch probe.Session {
	case kindMain:
		var s AppSession
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing session: %w", err)
		}
		return &s, nil
	case kindTab:
		var s TabSession
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing session: %w", err)
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSession, probe.Session)
	}
}
