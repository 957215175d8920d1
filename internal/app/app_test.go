package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himena-app/himena/internal/watcher"
	"github.com/himena-app/himena/internal/workflow"
)

func textModel(title, value string, paths ...string) *workflow.DataModel {
	m := &workflow.DataModel{Value: value, Type: "text", Title: title}
	if len(paths) > 0 {
		m.WithSource(paths, "builtins:text")
	}
	return m
}

func TestMainWindow_TabsAndFocus(t *testing.T) {
	mw := NewMainWindow(&workflow.Env{})
	assert.Nil(t, mw.CurrentTab())
	assert.Nil(t, mw.CurrentWindow())

	first := mw.AddTab("data")
	second := mw.AddTab("")

	assert.Equal(t, "data", first.Name())
	assert.Equal(t, "Tab-1", second.Name())
	assert.Same(t, second, mw.CurrentTab(), "AddTab focuses the new tab")

	mw.SetCurrentIndex(0)
	assert.Same(t, first, mw.CurrentTab())
	mw.SetCurrentIndex(99)
	assert.Same(t, first, mw.CurrentTab(), "out-of-range focus is ignored")
}

func TestTab_AddDataModel(t *testing.T) {
	mw := NewMainWindow(&workflow.Env{})
	tab := mw.AddTab("data")
	assert.Nil(t, tab.CurrentWindow())

	a := tab.AddDataModel(textModel("a.txt", "aaa"))
	b := tab.AddDataModel(&workflow.DataModel{Value: "bbb", Type: "text"})

	assert.Equal(t, 2, tab.Len())
	assert.Same(t, b, tab.CurrentWindow())
	assert.Equal(t, "a.txt", a.Title())
	assert.Equal(t, "Untitled", b.Title(), "untitled models get a default title")
	assert.Same(t, b, mw.CurrentWindow())
}

func TestWindow_ReadFrom(t *testing.T) {
	t.Run("file-backed window", func(t *testing.T) {
		win := newWindow(textModel("a.txt", "aaa", "a.txt"))
		paths, plugin, ok := win.ReadFrom()
		require.True(t, ok)
		assert.Equal(t, []string{"a.txt"}, paths)
		assert.Equal(t, "builtins:text", plugin)
	})

	t.Run("still file-backed after user edits", func(t *testing.T) {
		win := newWindow(textModel("a.txt", "aaa", "a.txt"))
		require.NoError(t, win.SetModified("bbb"))
		_, _, ok := win.ReadFrom()
		assert.True(t, ok)
	})

	t.Run("computed result is not file-backed", func(t *testing.T) {
		read := workflow.NewLocalReaderMethod([]string{"a.csv"}, "")
		cmd := workflow.NewCommandExecution("table-to-text", nil,
			[]workflow.CommandParameter{workflow.ModelParameter{Name: "model", Value: read.ID()}})
		m := &workflow.DataModel{Value: "derived", Type: "text", Workflow: workflow.New(read, cmd)}
		_, _, ok := newWindow(m).ReadFrom()
		assert.False(t, ok)
	})

	t.Run("no provenance", func(t *testing.T) {
		_, _, ok := newWindow(&workflow.DataModel{Value: "x", Type: "text"}).ReadFrom()
		assert.False(t, ok)
	})
}

func TestWindow_SetModified(t *testing.T) {
	t.Run("appends modification with text patch", func(t *testing.T) {
		win := newWindow(textModel("a.txt", "hello world", "a.txt"))
		require.NoError(t, win.SetModified("hello himena"))

		assert.Equal(t, "hello himena", win.Model().Value)
		wf := win.Model().Workflow
		require.Equal(t, 2, wf.Len())

		mod, ok := wf.At(1).(*workflow.UserModification)
		require.True(t, ok)
		assert.Equal(t, wf.At(0).ID(), mod.Original())
		assert.NotEmpty(t, mod.Patch())
	})

	t.Run("non-text edit recorded without patch", func(t *testing.T) {
		m := &workflow.DataModel{Value: [][]string{{"a"}}, Type: "table"}
		m.WithSource([]string{"a.csv"}, "")
		win := newWindow(m)
		require.NoError(t, win.SetModified([][]string{{"b"}}))

		mod, ok := win.Model().Workflow.At(1).(*workflow.UserModification)
		require.True(t, ok)
		assert.Empty(t, mod.Patch())
	})

	t.Run("model without provenance gets a programmatic root", func(t *testing.T) {
		win := newWindow(&workflow.DataModel{Value: "v0", Type: "text"})
		require.NoError(t, win.SetModified("v1"))

		wf := win.Model().Workflow
		require.Equal(t, 2, wf.Len())
		_, ok := wf.At(0).(*workflow.ProgrammaticMethod)
		assert.True(t, ok)
	})

	t.Run("consecutive edits chain", func(t *testing.T) {
		win := newWindow(textModel("a.txt", "v0", "a.txt"))
		require.NoError(t, win.SetModified("v1"))
		require.NoError(t, win.SetModified("v2"))
		assert.Equal(t, 3, win.Model().Workflow.Len())
	})
}

func TestMainWindow_WatchSources(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("v0"), 0644))

	mw := NewMainWindow(&workflow.Env{})
	defer mw.Close()
	tab := mw.AddTab("data")
	win := tab.AddDataModel(textModel("notes.txt", "v0", src))
	tab.AddDataModel(&workflow.DataModel{Value: "scratch", Type: "text"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := mw.Events().Subscribe(ctx)

	w, err := watcher.New(watcher.Config{DebounceDur: 30 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, mw.WatchSources(ctx, w))

	require.NoError(t, os.WriteFile(src, []byte("changed externally"), 0644))

	select {
	case ev := <-events:
		assert.Same(t, win, ev.Payload.Window)
		assert.True(t, win.Stale())
	case <-time.After(2 * time.Second):
		t.Fatal("expected stale notification")
	}

	// An in-app edit clears the stale flag.
	require.NoError(t, win.SetModified("reloaded"))
	assert.False(t, win.Stale())
}
