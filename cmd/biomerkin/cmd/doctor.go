package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biomerkin/biomerkin/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and dependencies",
	Long:  "Verify that the store, stage agents, and model table are configured and reachable.",
	RunE:  runDoctor,
}

var doctorJSON bool

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output as JSON")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	logger := newLogger(cfg)

	var checks []diagnostics.Check

	if st, err := buildStore(cfg); err != nil {
		checks = append(checks, diagnostics.Check{Name: "store", OK: false, Detail: err.Error()})
	} else {
		checks = append(checks, diagnostics.CheckStore(cmd.Context(), st))
		_ = st.Close()
	}

	if agents, err := buildAgents(cfg, logger); err != nil {
		checks = append(checks, diagnostics.Check{Name: "agents", OK: false, Detail: err.Error()})
	} else {
		checks = append(checks, diagnostics.CheckAgents(agents))
	}

	roleModels := []string{
		cfg.Consensus.PrimaryModel,
		cfg.Consensus.ValidationModel,
		cfg.Consensus.SynthesisModel,
	}
	if models, err := buildModels(cfg, logger); err != nil {
		checks = append(checks, diagnostics.Check{Name: "models", OK: false, Detail: err.Error()})
	} else {
		checks = append(checks, diagnostics.CheckModels(models, roleModels))
	}

	system := diagnostics.CollectSystem()

	if doctorJSON {
		return outputJSON(map[string]interface{}{
			"checks": checks,
			"system": system,
		})
	}

	fmt.Println("Checking configuration...")
	fmt.Println()

	allOK := true
	for _, check := range checks {
		icon := "✓"
		if !check.OK {
			icon = "✗"
			allOK = false
		}
		fmt.Printf("  %s %s", icon, check.Name)
		if check.Detail != "" {
			fmt.Printf(" (%s)", check.Detail)
		}
		fmt.Println()
	}

	fmt.Println()
	fmt.Println("System")
	fmt.Printf("  os: %s/%s\n", system.OS, system.Arch)
	fmt.Printf("  cpu: %s (%d cores)\n", system.CPUModel, system.CPUCores)
	fmt.Printf("  memory: %.0f MB total, %.0f%% used\n",
		system.MemTotalMB, system.MemPercent)
	for _, gpu := range system.GPUs {
		fmt.Printf("  gpu: %s %s\n", gpu.Vendor, gpu.Name)
	}

	if !allOK {
		fmt.Println()
		return fmt.Errorf("some checks failed")
	}
	return nil
}
