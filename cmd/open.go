package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himena-app/himena/internal/history"
	"github.com/himena-app/himena/internal/log"
	"github.com/himena-app/himena/internal/session"
)

// runOpen is the root command: open each argument into the workspace. Session
// files restore their saved tabs; everything else goes through the reader
// providers into the current tab.
func runOpen(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	shutdown, err := initTelemetry()
	if err != nil {
		return err
	}
	defer shutdown()

	mw, store := newWorkspace()
	defer mw.Close()

	hist := openHistory()
	if hist != nil {
		defer hist.Close()
	}

	plugin, _ := cmd.Flags().GetString("plugin")
	ctx := cmd.Context()

	for _, arg := range args {
		if isSessionPath(arg) {
			err := loadSessionInto(ctx, mw, store, arg)
			switch {
			case errors.Is(err, session.ErrPartialRestore):
				// The surviving windows are loaded; keep opening the rest.
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			case err != nil:
				return fmt.Errorf("loading session %s: %w", arg, err)
			}
			recordHistory(hist, history.KindSession, arg, "")
			continue
		}

		m, err := store.Run(ctx, []string{arg}, plugin)
		if err != nil {
			return fmt.Errorf("opening %s: %w", arg, err)
		}
		tab := mw.CurrentTab()
		if tab == nil {
			tab = mw.AddTab("")
		}
		tab.AddDataModel(m)
		recordHistory(hist, history.KindFile, arg, plugin)
		log.Info(log.CatReader, "opened", "path", arg, "type", m.Type)
	}

	printWorkspace(cmd.OutOrStdout(), mw)
	return nil
}
