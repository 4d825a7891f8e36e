package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/events"
)

var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Run a complete analysis workflow",
	Long: `Execute a complete analysis workflow through all five stages and
print the outcome. The input sequence or payload can be provided as an
argument or via --file flag.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWorkflowCmd,
}

var (
	runFile  string
	runOwner string
	runJSON  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Read input from file")
	runCmd.Flags().StringVar(&runOwner, "owner", "", "Owner id recorded on the workflow")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output final results as JSON")
}

func runWorkflowCmd(cmd *cobra.Command, args []string) error {
	input, err := getInput(args, runFile)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	bus := events.New(100)
	defer bus.Close()

	coordinator, err := buildCoordinator(cfg, bus, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := coordinator.Run(ctx, input, runOwner, nil)
	if err != nil {
		return err
	}

	if w.Status == core.WorkflowStatusFailed {
		fmt.Printf("Workflow %s failed at stage %s: %s\n", w.ID, w.CurrentStage, w.ErrorMessage)
		return fmt.Errorf("workflow failed")
	}

	results, err := coordinator.GetResults(ctx, w.ID)
	if err != nil {
		return err
	}

	if runJSON {
		return outputJSON(results)
	}

	fmt.Printf("Workflow %s completed\n", w.ID)
	fmt.Println()
	for _, stage := range core.AllStages() {
		payload := results.Stages[stage]
		fmt.Printf("  %-11s %d bytes\n", stage.String()+":", len(payload))
	}
	fmt.Println()
	fmt.Printf("Use 'biomerkin results %s --json' for the full payloads\n", w.ID)
	return nil
}

func getInput(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading input file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) > 0 {
		return args[0], nil
	}
	return "", fmt.Errorf("input required: pass it as an argument or via --file")
}
