package session

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/himena-app/himena/internal/app"
	"github.com/himena-app/himena/internal/log"
	"github.com/himena-app/himena/internal/providers"
	"github.com/himena-app/himena/internal/workflow"
)

const (
	sessionFileName = "session.yaml"
	dataDirName     = "data"

	// metaSuffix marks reference entries in the data directory: windows whose
	// payload is not stored because it can be rebuilt from the original source
	// or by replaying commands.
	metaSuffix = ".himena-meta"
)

// invalidFilenameChars are replaced when window titles become file names.
var invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

func sanitizeTitle(title string) string {
	return invalidFilenameChars.ReplaceAllString(title, "_")
}

// numDigits returns the zero-pad width for indices up to n-1.
func numDigits(n int) int {
	if n <= 1 {
		return 1
	}
	return len(strconv.Itoa(n - 1))
}

// payloadFileName builds the data file name for the window at global index i:
// a zero-padded index prefix, the sanitized title, and an extension the writer
// registry can act on.
func payloadFileName(i, total int, win *app.Window) (string, error) {
	m := win.Model()
	title := win.Title()
	if title == "" {
		title = "Untitled"
	}

	ext := filepath.Ext(title)
	if ext == "" || !contains(m.Extensions, ext) {
		ext = m.ExtensionDefault
		if ext == "" {
			if len(m.Extensions) == 0 {
				return "", fmt.Errorf("window %q: no file extension to save with: %w", title, ErrNotRestorable)
			}
			ext = m.Extensions[0]
		}
		title += ext
	}
	return fmt.Sprintf("%0*d_%s", numDigits(total), i, sanitizeTitle(title)), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DumpYAML saves the workspace as a bare session file. Every window must be
// restorable without stored copies: file-backed, or calculable per opts.
func DumpYAML(mw *app.MainWindow, path string, opts Options) error {
	s, err := FromMainWindow(mw, opts, true)
	if err != nil {
		return err
	}
	data, err := marshalTagged(kindMain, s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	log.Info(log.CatSession, "saved session", "path", path, "tabs", len(s.Tabs))
	return nil
}

// DumpTabYAML saves a single tab as a session file.
func DumpTabYAML(tab *app.Tab, path string, opts Options) error {
	s, err := FromTab(tab, opts, true)
	if err != nil {
		return err
	}
	data, err := marshalTagged(kindTab, s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// DumpDirectory saves the workspace as a directory: session.yaml plus a data/
// directory holding copies of windows that cannot be restored any other way
// (all windows, when opts.SaveCopies is set).
func DumpDirectory(mw *app.MainWindow, dir string, store *providers.Store, opts Options) error {
	dataDir := filepath.Join(dir, dataDirName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	total := 0
	mw.EachWindow(func(*app.Tab, *app.Window) { total++ })

	index := 0
	var dumpErr error
	mw.EachWindow(func(_ *app.Tab, win *app.Window) {
		i := index
		index++
		if dumpErr != nil {
			return
		}

		_, _, fileBacked := win.ReadFrom()
		calculable := opts.calculable(win.Model().Workflow)
		if !opts.SaveCopies && (fileBacked || calculable) {
			if err := writeMarker(dataDir, i, total, win, calculable); err != nil {
				dumpErr = err
			}
			return
		}

		name, err := payloadFileName(i, total, win)
		if err != nil {
			dumpErr = err
			return
		}
		dst := filepath.Join(dataDir, name)
		if err := store.Write(win.Model(), dst, ""); err != nil {
			dumpErr = fmt.Errorf("storing %q: %w", win.Title(), err)
			return
		}
		win.SavedTo(dst, "")
	})
	if dumpErr != nil {
		return dumpErr
	}

	s, err := FromMainWindow(mw, opts, false)
	if err != nil {
		return err
	}
	data, err := marshalTagged(kindMain, s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, sessionFileName), data, 0o644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	log.Info(log.CatSession, "saved session directory", "dir", dir)
	return nil
}

// DumpZip saves the workspace as a stand-alone zip archive:
//
//	my.session.zip/
//	  ├── session.yaml
//	  └── data/
//	        ├── 0_table.csv
//	        └── 1_notes.txt
func DumpZip(mw *app.MainWindow, path string, store *providers.Store, opts Options) error {
	tmpdir, err := os.MkdirTemp("", "himena-session-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(tmpdir)

	if err := DumpDirectory(mw, tmpdir, store, opts); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	zw := zip.NewWriter(f)

	addFile := func(src, name string) error {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = io.Copy(out, in)
		return err
	}

	if err := addFile(filepath.Join(tmpdir, sessionFileName), sessionFileName); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return fmt.Errorf("archiving session file: %w", err)
	}
	entries, err := os.ReadDir(filepath.Join(tmpdir, dataDirName))
	if err != nil {
		_ = zw.Close()
		_ = f.Close()
		return fmt.Errorf("listing data files: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(tmpdir, dataDirName, entry.Name())
		if err := addFile(src, dataDirName+"/"+entry.Name()); err != nil {
			_ = zw.Close()
			_ = f.Close()
			return fmt.Errorf("archiving %s: %w", entry.Name(), err)
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	log.Info(log.CatSession, "saved session archive", "path", path)
	return nil
}

// markerDoc is the content of a reference entry.
type markerDoc struct {
	Title      string   `yaml:"title"`
	ModelType  string   `yaml:"model_type"`
	Paths      []string `yaml:"paths,omitempty"`
	Plugin     string   `yaml:"plugin,omitempty"`
	Calculated bool     `yaml:"calculated,omitempty"`
}

// writeMarker records where a non-copied window's data lives, so a session
// directory stays self-describing even for reference windows.
func writeMarker(dataDir string, i, total int, win *app.Window, calculable bool) error {
	title := win.Title()
	if title == "" {
		title = "Untitled"
	}
	doc := markerDoc{Title: title, ModelType: win.Model().Type, Calculated: calculable}
	if paths, plugin, ok := win.ReadFrom(); ok {
		doc.Paths = paths
		doc.Plugin = plugin
		doc.Calculated = false
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("describing %q: %w", title, err)
	}
	name := fmt.Sprintf("%0*d_%s%s", numDigits(total), i, sanitizeTitle(title), metaSuffix)
	if err := os.WriteFile(filepath.Join(dataDir, name), data, 0o644); err != nil {
		return fmt.Errorf("describing %q: %w", title, err)
	}
	return nil
}

// overrideWorkflow builds the replacement read for a stored data file.
func overrideWorkflow(path string) *workflow.Workflow {
	return workflow.New(workflow.NewLocalReaderMethod([]string{path}, ""))
}
