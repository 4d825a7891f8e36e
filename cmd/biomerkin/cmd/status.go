package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/biomerkin/biomerkin/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status <workflow-id>",
	Short: "Show workflow status",
	Long:  "Display the current state of a workflow including stage progress.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := buildStore(cfg)
	if err != nil {
		return err
	}

	w, err := st.Get(cmd.Context(), core.WorkflowID(args[0]))
	if err != nil {
		return err
	}

	if statusJSON {
		return outputJSON(w)
	}

	fmt.Printf("Workflow ID: %s\n", w.ID)
	fmt.Printf("Status: %s\n", w.Status)
	if w.CurrentStage != "" {
		fmt.Printf("Stage: %s\n", w.CurrentStage)
	}
	fmt.Printf("Progress: %.0f%%\n", w.ProgressPercent)
	if w.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", w.ErrorMessage)
	}
	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	fmt.Fprintln(tw, "-----\t-----")
	fmt.Fprintf(tw, "owner\t%s\n", w.OwnerID)
	fmt.Fprintf(tw, "created\t%s\n", w.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "updated\t%s\n", w.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "version\t%d\n", w.Version)
	return tw.Flush()
}
