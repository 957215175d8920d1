package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himena-app/himena/internal/history"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently opened files and sessions",
	Args:  cobra.NoArgs,
	RunE:  runRecent,
}

func init() {
	recentCmd.Flags().Bool("sessions", false, "list recent sessions instead of files")
	recentCmd.Flags().IntP("limit", "n", 0, "maximum number of entries (0: configured max)")
	rootCmd.AddCommand(recentCmd)
}

func runRecent(cmd *cobra.Command, _ []string) error {
	hist := openHistory()
	if hist == nil {
		return fmt.Errorf("history store is unavailable")
	}
	defer hist.Close()

	kind := history.KindFile
	if sessions, _ := cmd.Flags().GetBool("sessions"); sessions {
		kind = history.KindSession
	}
	limit, _ := cmd.Flags().GetInt("limit")

	entries, err := hist.Recent(kind, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no recent %s entries\n", kind)
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s", e.OpenedAt.Local().Format("2006-01-02 15:04"), e.Path)
		if e.Plugin != "" {
			line += fmt.Sprintf("  (%s)", e.Plugin)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
