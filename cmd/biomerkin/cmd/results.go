package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/service"
)

var resultsCmd = &cobra.Command{
	Use:   "results <workflow-id>",
	Short: "Show workflow results",
	Long: `Display the aggregated results of a completed workflow.

Results are only available once every stage has finished; for an
in-flight or failed workflow use 'biomerkin status' instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runResults,
}

var resultsJSON bool

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "Output as JSON")
}

func runResults(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := buildStore(cfg)
	if err != nil {
		return err
	}

	id := core.WorkflowID(args[0])
	w, err := st.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	stageResults, err := st.ListStageResults(cmd.Context(), id)
	if err != nil {
		return err
	}

	results, err := service.AggregateResults(w, stageResults)
	if err != nil {
		return err
	}

	if resultsJSON {
		return outputJSON(results)
	}

	fmt.Printf("Workflow %s completed at %s\n", results.WorkflowID,
		results.CompletedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()

	var report core.ConsensusReport
	if err := json.Unmarshal(results.Stages[core.StageDecision], &report); err == nil {
		fmt.Println("Decision report")
		fmt.Printf("  confidence: %s\n", report.ConfidenceLabel)
		fmt.Printf("  models: %v\n", report.ModelsUsed)
		fmt.Println()
		fmt.Println(report.ExecutiveSummary)
		fmt.Println()
	}

	fmt.Println("Use --json for the full per-stage payloads")
	return nil
}
