package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/himena-app/himena/internal/session"
	"github.com/himena-app/himena/internal/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Inspect provenance graphs",
}

var workflowShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print the provenance graph behind a file or session",
	Long: `For a session file, prints the recorded workflow of every window.
For a data file, opens it and prints the provenance the read produced.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflowShow,
}

func init() {
	workflowCmd.AddCommand(workflowShowCmd)
	rootCmd.AddCommand(workflowCmd)
}

func runWorkflowShow(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	if isSessionPath(path) && !strings.HasSuffix(path, ".zip") {
		loaded, err := session.FromYAML(path)
		if err != nil {
			return err
		}
		switch s := loaded.(type) {
		case *session.AppSession:
			for _, tab := range s.Tabs {
				fmt.Fprintf(out, "tab %q\n", tab.Name)
				printTabWorkflows(out, tab)
			}
		case *session.TabSession:
			printTabWorkflows(out, *s)
		}
		return nil
	}

	_, store := newWorkspace()
	m, err := store.Run(cmd.Context(), []string{path}, "")
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	printWorkflow(out, m.Workflow, "")
	return nil
}

func printTabWorkflows(out io.Writer, tab session.TabSession) {
	for _, win := range tab.Windows {
		fmt.Fprintf(out, "  window %q (%s)\n", win.Title, win.ModelType)
		printWorkflow(out, win.Workflow, "    ")
	}
}

// printWorkflow renders the step list with parent references by index.
func printWorkflow(out io.Writer, wf *workflow.Workflow, indent string) {
	if wf == nil || wf.Len() == 0 {
		fmt.Fprintf(out, "%s(no recorded provenance)\n", indent)
		return
	}
	idToIndex := wf.IDToIndexMap()
	for i := 0; i < wf.Len(); i++ {
		step := wf.At(i)
		fmt.Fprintf(out, "%s[%d] %s%s%s\n",
			indent, i, step.Type(), stepDetail(step), parentRefs(step, idToIndex))
	}
}

func stepDetail(step workflow.Step) string {
	switch s := step.(type) {
	case *workflow.LocalReaderMethod:
		detail := " " + strings.Join(s.Paths(), ", ")
		if s.Plugin() != "" {
			detail += fmt.Sprintf(" (plugin %s)", s.Plugin())
		}
		return detail
	case *workflow.RemoteReaderMethod:
		return " " + s.Source()
	case *workflow.CommandExecution:
		detail := " " + s.CommandID()
		for _, p := range s.Parameters() {
			detail += fmt.Sprintf(" %s=<%s>", p.ParamName(), p.ParamType())
		}
		return detail
	case *workflow.UserModification:
		if s.Patch() != "" {
			return " (patch recorded)"
		}
		return ""
	default:
		return ""
	}
}

func parentRefs(step workflow.Step, idToIndex map[uuid.UUID]int) string {
	parents := step.Parents()
	if len(parents) == 0 {
		return ""
	}
	refs := make([]string, 0, len(parents))
	for _, parent := range parents {
		if idx, ok := idToIndex[parent]; ok {
			refs = append(refs, fmt.Sprintf("[%d]", idx))
		} else {
			refs = append(refs, parent.String()[:8])
		}
	}
	return " <- " + strings.Join(refs, " ")
}
