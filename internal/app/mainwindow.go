// Package app implements the headless workspace: a main window holding tabs
// of sub-windows, each backed by a data model with provenance. The session
// layer serializes this structure; the CLI drives it without any rendering.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/himena-app/himena/internal/log"
	"github.com/himena-app/himena/internal/model"
	"github.com/himena-app/himena/internal/pubsub"
	"github.com/himena-app/himena/internal/watcher"
	"github.com/himena-app/himena/internal/workflow"
)

// WindowEvent is published when a window's source file changes on disk.
type WindowEvent struct {
	Window *Window
	Path   string
}

// Tab is a named group of windows.
type Tab struct {
	name         string
	windows      []*Window
	currentIndex int
}

func (t *Tab) Name() string        { return t.name }
func (t *Tab) SetName(name string) { t.name = name }
func (t *Tab) Windows() []*Window  { return t.windows }
func (t *Tab) Len() int            { return len(t.windows) }

// AddDataModel wraps the model in a new window and makes it current.
func (t *Tab) AddDataModel(m *workflow.DataModel) *Window {
	win := newWindow(m)
	t.windows = append(t.windows, win)
	t.currentIndex = len(t.windows) - 1
	return win
}

// CurrentWindow returns the focused window, or nil for an empty tab.
func (t *Tab) CurrentWindow() *Window {
	if t.currentIndex < 0 || t.currentIndex >= len(t.windows) {
		return nil
	}
	return t.windows[t.currentIndex]
}

// CurrentIndex returns the focused window's index.
func (t *Tab) CurrentIndex() int { return t.currentIndex }

// SetCurrentIndex focuses the window at i if it exists.
func (t *Tab) SetCurrentIndex(i int) {
	if i >= 0 && i < len(t.windows) {
		t.currentIndex = i
	}
}

// MainWindow is the workspace root: tabs, geometry, the injected compute
// environment, and the optional source-file watcher.
type MainWindow struct {
	tabs         []*Tab
	currentIndex int
	rect         model.WindowRect

	env    *workflow.Env
	events *pubsub.Broker[WindowEvent]
	watch  *watcher.Watcher
}

// NewMainWindow creates an empty workspace bound to the given environment.
func NewMainWindow(env *workflow.Env) *MainWindow {
	return &MainWindow{
		rect:   model.WindowRect{Width: 1200, Height: 800},
		env:    env,
		events: pubsub.NewBroker[WindowEvent](),
	}
}

// Env returns the compute environment windows resolve against.
func (m *MainWindow) Env() *workflow.Env { return m.env }

func (m *MainWindow) Rect() model.WindowRect     { return m.rect }
func (m *MainWindow) SetRect(r model.WindowRect) { m.rect = r }

// Tabs returns the tab list.
func (m *MainWindow) Tabs() []*Tab { return m.tabs }

// AddTab appends a new tab and makes it current.
func (m *MainWindow) AddTab(name string) *Tab {
	if name == "" {
		name = fmt.Sprintf("Tab-%d", len(m.tabs))
	}
	tab := &Tab{name: name, currentIndex: -1}
	m.tabs = append(m.tabs, tab)
	m.currentIndex = len(m.tabs) - 1
	return tab
}

// CurrentTab returns the focused tab, or nil for an empty workspace.
func (m *MainWindow) CurrentTab() *Tab {
	if m.currentIndex < 0 || m.currentIndex >= len(m.tabs) {
		return nil
	}
	return m.tabs[m.currentIndex]
}

// CurrentIndex returns the focused tab's index.
func (m *MainWindow) CurrentIndex() int { return m.currentIndex }

// SetCurrentIndex focuses the tab at i if it exists.
func (m *MainWindow) SetCurrentIndex(i int) {
	if i >= 0 && i < len(m.tabs) {
		m.currentIndex = i
	}
}

// CurrentWindow returns the focused window of the focused tab.
func (m *MainWindow) CurrentWindow() *Window {
	tab := m.CurrentTab()
	if tab == nil {
		return nil
	}
	return tab.CurrentWindow()
}

// EachWindow calls fn for every window in tab order.
func (m *MainWindow) EachWindow(fn func(tab *Tab, win *Window)) {
	for _, tab := range m.tabs {
		for _, win := range tab.windows {
			fn(tab, win)
		}
	}
}

// Events exposes the window-event broker for subscribers.
func (m *MainWindow) Events() pubsub.Subscriber[WindowEvent] { return m.events }

// WatchSources starts watching the on-disk files behind file-backed windows;
// when one changes externally the window is marked stale and an event is
// published. Runs until ctx is cancelled.
func (m *MainWindow) WatchSources(ctx context.Context, w *watcher.Watcher) error {
	m.watch = w
	onChange := w.Start()

	count := 0
	var firstErr error
	m.EachWindow(func(_ *Tab, win *Window) {
		paths, _, ok := win.ReadFrom()
		if !ok {
			return
		}
		for _, path := range paths {
			if err := w.Watch(path); err != nil && firstErr == nil {
				firstErr = err
				continue
			}
			count++
		}
	})
	if firstErr != nil {
		return firstErr
	}
	log.Info(log.CatWatch, "watching window sources", "files", count)

	go func() {
		for {
			select {
			case path, ok := <-onChange:
				if !ok {
					return
				}
				m.markStaleByPath(path)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (m *MainWindow) markStaleByPath(changed string) {
	m.EachWindow(func(_ *Tab, win *Window) {
		paths, _, ok := win.ReadFrom()
		if !ok {
			return
		}
		for _, path := range paths {
			abs, err := filepath.Abs(path)
			if err != nil || abs != changed {
				continue
			}
			win.markStale()
			m.events.Publish(pubsub.KindSourceChanged, WindowEvent{Window: win, Path: changed})
			log.Info(log.CatWatch, "source changed", "window", win.Title(), "path", changed)
		}
	})
}

// Close releases the event broker and any attached watcher.
func (m *MainWindow) Close() {
	if m.watch != nil {
		_ = m.watch.Stop()
	}
	m.events.Close()
}
