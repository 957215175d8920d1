package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himena-app/himena/internal/history"
	"github.com/himena-app/himena/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Save and load workspace sessions",
}

var sessionSaveCmd = &cobra.Command{
	Use:   "save [file...]",
	Short: "Open the given files and save the workspace as a session",
	Long: `Opens each file into a fresh workspace and writes it out as a session.
The output format follows the destination name: .zip produces a portable
archive, .yaml a reference-only session file, anything else a session
directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSessionSave,
}

var sessionLoadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Load a session and print the restored workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionLoad,
}

func init() {
	sessionSaveCmd.Flags().StringP("output", "o", "", "session destination (required)")
	sessionSaveCmd.Flags().StringP("plugin", "p", "",
		"reader plugin to use for the given files")
	_ = sessionSaveCmd.MarkFlagRequired("output")
	sessionSaveCmd.Flags().Bool("save-copies", false,
		"store copies of window data inside the session")
	sessionSaveCmd.Flags().StringSlice("allow-calculate", nil,
		"command ids whose outputs may be recomputed on load")

	sessionCmd.AddCommand(sessionSaveCmd, sessionLoadCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionSave(cmd *cobra.Command, args []string) error {
	shutdown, err := initTelemetry()
	if err != nil {
		return err
	}
	defer shutdown()

	mw, store := newWorkspace()
	defer mw.Close()

	plugin, _ := cmd.Flags().GetString("plugin")
	tab := mw.AddTab("")
	for _, arg := range args {
		m, err := store.Run(cmd.Context(), []string{arg}, plugin)
		if err != nil {
			return fmt.Errorf("opening %s: %w", arg, err)
		}
		tab.AddDataModel(m)
	}

	output, _ := cmd.Flags().GetString("output")
	saveCopies, _ := cmd.Flags().GetBool("save-copies")
	allowCalculate, _ := cmd.Flags().GetStringSlice("allow-calculate")
	opts := session.Options{
		SaveCopies:     saveCopies || cfg.Session.SaveCopies,
		AllowCalculate: append(allowCalculate, cfg.Session.AllowCalculate...),
	}

	switch {
	case strings.HasSuffix(output, ".zip"):
		err = session.DumpZip(mw, output, store, opts)
	case strings.HasSuffix(output, ".yaml"), strings.HasSuffix(output, ".yml"):
		err = session.DumpYAML(mw, output, opts)
	default:
		err = session.DumpDirectory(mw, output, store, opts)
	}
	if err != nil {
		return fmt.Errorf("saving session to %s: %w", output, err)
	}

	if hist := openHistory(); hist != nil {
		recordHistory(hist, history.KindSession, output, "")
		hist.Close()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %d window(s) to %s\n", tab.Len(), output)
	return nil
}

func runSessionLoad(cmd *cobra.Command, args []string) error {
	shutdown, err := initTelemetry()
	if err != nil {
		return err
	}
	defer shutdown()

	mw, store := newWorkspace()
	defer mw.Close()

	path := args[0]
	info, statErr := os.Stat(path)
	switch {
	case statErr == nil && info.IsDir():
		err = session.UpdateFromDirectory(cmd.Context(), mw, store, path)
	case strings.HasSuffix(path, ".zip"):
		err = session.UpdateFromZip(cmd.Context(), mw, store, path)
	default:
		err = session.UpdateFromYAML(cmd.Context(), mw, store, path)
	}
	switch {
	case errors.Is(err, session.ErrPartialRestore):
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	case err != nil:
		return fmt.Errorf("loading session %s: %w", path, err)
	}

	if hist := openHistory(); hist != nil {
		recordHistory(hist, history.KindSession, path, "")
		hist.Close()
	}
	printWorkspace(cmd.OutOrStdout(), mw)
	return nil
}
