package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/himena-app/himena/internal/app"
	"github.com/himena-app/himena/internal/command"
	"github.com/himena-app/himena/internal/config"
	"github.com/himena-app/himena/internal/history"
	"github.com/himena-app/himena/internal/log"
	"github.com/himena-app/himena/internal/providers"
	"github.com/himena-app/himena/internal/session"
	"github.com/himena-app/himena/internal/tracing"
	"github.com/himena-app/himena/internal/workflow"
)

// newWorkspace builds the headless workspace from the active configuration.
func newWorkspace() (*app.MainWindow, *providers.Store) {
	store := providers.NewStore()
	providers.RegisterBuiltins(store)
	if cfg.Cache.Enabled {
		store.EnableCache(time.Duration(cfg.Cache.TTLSeconds) * time.Second)
	}

	commands := command.NewRegistry()
	env := &workflow.Env{Readers: store, Commands: commands}
	return app.NewMainWindow(env), store
}

// initTelemetry sets up logging and tracing from configuration. The returned
// function flushes and closes both.
func initTelemetry() (func(), error) {
	cleanup := func() {}
	if cfg.Log.Enabled {
		path := cfg.Log.Path
		if path == "" {
			path = "himena.log"
		}
		closeLog, err := log.Init(path)
		if err != nil {
			return nil, fmt.Errorf("initializing log: %w", err)
		}
		log.SetMinLevel(cfg.Log.MinLogLevel())
		cleanup = closeLog
	}

	traceFile := cfg.Tracing.FilePath
	if traceFile == "" {
		traceFile = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     traceFile,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	logClose := cleanup
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
		logClose()
	}, nil
}

// openHistory opens the recent-file store, or returns nil when unavailable
// (history is best-effort, never fatal).
func openHistory() *history.Store {
	path := cfg.History.Path
	if path == "" {
		path = config.DefaultHistoryPath()
	}
	if path == "" {
		return nil
	}
	store, err := history.NewStore(path, cfg.History.MaxEntries)
	if err != nil {
		log.ErrorErr(log.CatHistory, "could not open history store", err, "path", path)
		return nil
	}
	return store
}

func recordHistory(h *history.Store, kind, path, plugin string) {
	if h == nil {
		return
	}
	if err := h.Record(kind, path, plugin); err != nil {
		log.ErrorErr(log.CatHistory, "could not record history", err, "path", path)
	}
}

// isSessionPath recognizes session files by suffix.
func isSessionPath(path string) bool {
	return strings.HasSuffix(path, ".session.yaml") ||
		strings.HasSuffix(path, ".session.yml") ||
		strings.HasSuffix(path, ".session.zip")
}

// loadSessionInto loads a session file (yaml or zip) into the workspace.
func loadSessionInto(ctx context.Context, mw *app.MainWindow, store *providers.Store, path string) error {
	if strings.HasSuffix(path, ".zip") {
		return session.UpdateFromZip(ctx, mw, store, path)
	}
	return session.UpdateFromYAML(ctx, mw, store, path)
}

// printWorkspace writes a plain-text summary of tabs and windows.
func printWorkspace(w io.Writer, mw *app.MainWindow) {
	if len(mw.Tabs()) == 0 {
		fmt.Fprintln(w, "workspace is empty")
		return
	}
	for _, tab := range mw.Tabs() {
		fmt.Fprintf(w, "%s (%d window(s))\n", tab.Name(), tab.Len())
		for _, win := range tab.Windows() {
			steps := 0
			if wf := win.Model().Workflow; wf != nil {
				steps = wf.Len()
			}
			fmt.Fprintf(w, "  %-30s %-12s %d step(s)\n", win.Title(), win.Model().Type, steps)
		}
	}
}
