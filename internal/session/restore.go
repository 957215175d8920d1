package session

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/himena-app/himena/internal/app"
	"github.com/himena-app/himena/internal/log"
	"github.com/himena-app/himena/internal/providers"
	"github.com/himena-app/himena/internal/workflow"
)

// prepWorkflow picks the cheapest way to rebuild a window's model: a stored
// copy override, the snapshot read, or the full provenance chain. Bare local
// reads get the best available plugin re-picked by the recorded model type,
// since the plugin that wrote the session may be gone.
func prepWorkflow(desc WindowDescription, override *workflow.Workflow, store *providers.Store) *workflow.Workflow {
	wf := override
	if wf == nil {
		if desc.ShortWorkflow != nil {
			wf = workflow.New(desc.ShortWorkflow)
		} else {
			wf = desc.Workflow
		}
	}

	if wf.Len() == 1 {
		if read, ok := wf.At(0).(*workflow.LocalReaderMethod); ok && read.Plugin() == "" {
			if p, err := store.PickReaderForType(read.Paths(), desc.ModelType); err == nil {
				wf = workflow.New(workflow.NewLocalReaderMethod(read.Paths(), p.Plugin))
			}
		}
	}
	return wf
}

// restoreWindow computes the model and attaches it to the tab with the stored
// display properties. The recorded full provenance replaces the snapshot read
// on the restored model.
func restoreWindow(ctx context.Context, tab *app.Tab, env *workflow.Env, store *providers.Store, desc WindowDescription, override *workflow.Workflow) error {
	wf := prepWorkflow(desc, override, store)
	m, err := wf.GetModel(ctx, env)
	if err != nil {
		return fmt.Errorf("restoring window %q: %w", desc.Title, err)
	}
	if m.Type == "" {
		m.Type = desc.ModelType
	}
	m.Workflow = desc.Workflow

	win := tab.AddDataModel(m)
	win.SetTitle(desc.Title)
	win.SetRect(desc.Rect)
	win.SetState(desc.State)
	win.SetAnchor(desc.Anchor)
	win.SetEditable(desc.IsEditable)
	win.RestoreID(desc.ID)
	if read, ok := desc.ShortWorkflow.(*workflow.LocalReaderMethod); ok {
		win.SavedTo(read.Paths()[0], read.Plugin())
	}
	return nil
}

// Restore applies a saved workspace to mw. Overrides map global window index
// (across tabs, in order) to replacement workflows for stored data copies.
//
// Failures are per-window: a window whose data cannot be rebuilt is logged
// and skipped, the rest of the session still loads, and the returned error
// aggregates what was lost. Focus indices are clamped to what survived.
func Restore(ctx context.Context, mw *app.MainWindow, store *providers.Store, s *AppSession, overrides map[int]*workflow.Workflow) error {
	env := mw.Env()
	var failures []error

	index := 0
	for _, ts := range s.Tabs {
		tab := mw.AddTab(ts.Name)
		for _, desc := range ts.Windows {
			err := restoreWindow(ctx, tab, env, store, desc, overrides[index])
			index++
			if err != nil {
				log.ErrorErr(log.CatSession, "window restore failed", err, "title", desc.Title)
				failures = append(failures, err)
				continue
			}
		}
		clampFocus(tab, ts.CurrentIndex)
	}

	mw.SetCurrentIndex(s.CurrentIndex)
	mw.SetRect(s.Rect)

	return partialRestoreError(failures)
}

// partialRestoreError wraps per-window failures in ErrPartialRestore. Callers
// that can live with a partially restored workspace should check for the
// sentinel and carry on.
func partialRestoreError(failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d missing window(s): %w", ErrPartialRestore, len(failures), errors.Join(failures...))
}

// RestoreTab applies a single-tab session to mw.
func RestoreTab(ctx context.Context, mw *app.MainWindow, store *providers.Store, ts *TabSession, overrides map[int]*workflow.Workflow) error {
	env := mw.Env()
	var failures []error

	tab := mw.AddTab(ts.Name)
	for i, desc := range ts.Windows {
		if err := restoreWindow(ctx, tab, env, store, desc, overrides[i]); err != nil {
			log.ErrorErr(log.CatSession, "window restore failed", err, "title", desc.Title)
			failures = append(failures, err)
		}
	}
	clampFocus(tab, ts.CurrentIndex)

	return partialRestoreError(failures)
}

func clampFocus(tab *app.Tab, index int) {
	if tab.Len() == 0 {
		return
	}
	if index < 0 || index >= tab.Len() {
		index = tab.Len() - 1
	}
	tab.SetCurrentIndex(index)
}

// UpdateFromYAML loads a bare session file (no data directory) into mw.
func UpdateFromYAML(ctx context.Context, mw *app.MainWindow, store *providers.Store, path string) error {
	loaded, err := FromYAML(path)
	if err != nil {
		return err
	}
	switch s := loaded.(type) {
	case *AppSession:
		return Restore(ctx, mw, store, s, nil)
	case *TabSession:
		return RestoreTab(ctx, mw, store, s, nil)
	default:
		return ErrInvalidSession
	}
}

// UpdateFromDirectory loads a session directory: session.yaml plus data/
// copies, which override the recorded provenance for their windows.
func UpdateFromDirectory(ctx context.Context, mw *app.MainWindow, store *providers.Store, dir string) error {
	loaded, err := FromYAML(filepath.Join(dir, sessionFileName))
	if err != nil {
		return err
	}
	s, ok := loaded.(*AppSession)
	if !ok {
		return fmt.Errorf("%w: directory sessions must be whole-workspace sessions", ErrInvalidSession)
	}

	overrides, err := dataOverrides(filepath.Join(dir, dataDirName))
	if err != nil {
		return err
	}
	return Restore(ctx, mw, store, s, overrides)
}

// dataOverrides maps stored data files back to their windows by the
// zero-padded index prefix in the file name.
func dataOverrides(dataDir string) (map[int]*workflow.Workflow, error) {
	entries, err := os.ReadDir(dataDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing session data: %w", err)
	}

	overrides := make(map[int]*workflow.Workflow)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), metaSuffix) {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		index, err := strconv.Atoi(prefix)
		if err != nil {
			log.Warn(log.CatSession, "skipping unrecognized data file", "name", entry.Name())
			continue
		}
		overrides[index] = overrideWorkflow(filepath.Join(dataDir, entry.Name()))
	}
	return overrides, nil
}

// UpdateFromZip extracts a session archive and loads it.
func UpdateFromZip(ctx context.Context, mw *app.MainWindow, store *providers.Store, path string) error {
	tmpdir, err := os.MkdirTemp("", "himena-session-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(tmpdir)

	if err := extractZip(path, tmpdir); err != nil {
		return err
	}
	return UpdateFromDirectory(ctx, mw, store, tmpdir)
}

func extractZip(path, dest string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("%w: archive entry %q escapes extraction root", ErrInvalidSession, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extracting %s: %w", f.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		in, err := f.Open()
		if err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		out, err := os.Create(target)
		if err != nil {
			_ = in.Close()
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		if _, err := copyBounded(out, in); err != nil {
			_ = in.Close()
			_ = out.Close()
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		_ = in.Close()
		if err := out.Close(); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

// maxEntrySize caps decompressed entry size to guard against archive bombs.
const maxEntrySize = 1 << 31

func copyBounded(dst io.Writer, src io.Reader) (int64, error) {
	n, err := io.Copy(dst, io.LimitReader(src, maxEntrySize))
	if err == nil && n == maxEntrySize {
		return n, fmt.Errorf("entry exceeds %d bytes", int64(maxEntrySize))
	}
	return n, err
}
