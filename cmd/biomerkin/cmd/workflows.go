package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/biomerkin/biomerkin/internal/core"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List workflows",
	Long: `List workflows with their status and progress.

Workflows are selected by --owner or --status; --filter narrows the
list further with fuzzy matching against the workflow id and input.

Use 'biomerkin status <id>' or 'biomerkin results <id>' to inspect a
specific workflow.`,
	RunE: runWorkflows,
}

var (
	workflowsOwner  string
	workflowsStatus string
	workflowsFilter string
	workflowsJSON   bool
)

func init() {
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.Flags().StringVar(&workflowsOwner, "owner", "", "List workflows for this owner")
	workflowsCmd.Flags().StringVar(&workflowsStatus, "status", "", "List workflows in this status")
	workflowsCmd.Flags().StringVar(&workflowsFilter, "filter", "", "Fuzzy filter by id or input")
	workflowsCmd.Flags().BoolVar(&workflowsJSON, "json", false, "Output as JSON")
}

func runWorkflows(cmd *cobra.Command, _ []string) error {
	if workflowsOwner == "" && workflowsStatus == "" {
		return fmt.Errorf("either --owner or --status is required")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := buildStore(cfg)
	if err != nil {
		return err
	}

	var workflows []*core.Workflow
	if workflowsOwner != "" {
		workflows, err = st.ListByOwner(cmd.Context(), workflowsOwner)
	} else {
		status := core.WorkflowStatus(workflowsStatus)
		if !core.ValidStatus(status) {
			return fmt.Errorf("unknown status %q", workflowsStatus)
		}
		workflows, err = st.ListByStatus(cmd.Context(), status)
	}
	if err != nil {
		return err
	}

	if workflowsFilter != "" {
		workflows = fuzzyFilter(workflows, workflowsFilter)
	}

	if workflowsJSON {
		if workflows == nil {
			workflows = []*core.Workflow{}
		}
		return outputJSON(workflows)
	}

	if len(workflows) == 0 {
		fmt.Println("No workflows found.")
		fmt.Println("Run 'biomerkin run <input>' to start a new workflow.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tCREATED\tINPUT")
	fmt.Fprintln(w, "--\t------\t--------\t-------\t-----")
	for _, wf := range workflows {
		fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\t%s\n",
			wf.ID, wf.Status, wf.ProgressPercent,
			formatWorkflowTime(wf.CreatedAt), truncateInput(wf.InputPayload, 40))
	}
	return w.Flush()
}

// fuzzyFilter keeps workflows whose id or input fuzzily matches the
// pattern, in match-quality order.
func fuzzyFilter(workflows []*core.Workflow, pattern string) []*core.Workflow {
	haystack := make([]string, len(workflows))
	for i, wf := range workflows {
		haystack[i] = string(wf.ID) + " " + wf.InputPayload
	}
	matches := fuzzy.Find(pattern, haystack)
	out := make([]*core.Workflow, 0, len(matches))
	for _, m := range matches {
		out = append(out, workflows[m.Index])
	}
	return out
}

func formatWorkflowTime(t time.Time) string {
	if time.Since(t) < 24*time.Hour {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02")
}

func truncateInput(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
