package core

import "fmt"

// Stage represents one step in the fixed analysis pipeline.
type Stage string

const (
	// StageGenomics analyzes the raw sequence for mutations and variants.
	StageGenomics Stage = "genomics"

	// StageProteomics maps genomic findings onto protein structure
	// and function.
	StageProteomics Stage = "proteomics"

	// StageLiterature searches published evidence for the identified
	// biomarkers.
	StageLiterature Stage = "literature"

	// StageDrug matches biomarkers against known drug targets and
	// clinical trials.
	StageDrug Stage = "drug"

	// StageDecision synthesizes all upstream results into the final
	// report. It is backed by the multi-model consensus pipeline rather
	// than a single remote agent.
	StageDecision Stage = "decision"
)

// AllStages returns the pipeline stages in execution order.
func AllStages() []Stage {
	return []Stage{StageGenomics, StageProteomics, StageLiterature, StageDrug, StageDecision}
}

// StageOrder returns the numeric order of a stage (0-indexed),
// or -1 for unknown stages.
func StageOrder(s Stage) int {
	for i, stage := range AllStages() {
		if stage == s {
			return i
		}
	}
	return -1
}

// NextStage returns the stage following the given stage.
// Returns empty string after the last stage.
func NextStage(s Stage) Stage {
	stages := AllStages()
	for i, stage := range stages {
		if stage == s && i+1 < len(stages) {
			return stages[i+1]
		}
	}
	return ""
}

// FirstStage returns the entry point of the pipeline.
func FirstStage() Stage {
	return AllStages()[0]
}

// ValidStage checks if a stage name is part of the pipeline.
func ValidStage(s Stage) bool {
	return StageOrder(s) >= 0
}

// ParseStage converts a string to a Stage with validation.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !ValidStage(stage) {
		return "", fmt.Errorf("invalid stage: %s", s)
	}
	return stage, nil
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// RunningStatus returns the workflow status that corresponds to this
// stage being in flight.
func (s Stage) RunningStatus() WorkflowStatus {
	switch s {
	case StageGenomics:
		return WorkflowStatusGenomics
	case StageProteomics:
		return WorkflowStatusProteomics
	case StageLiterature:
		return WorkflowStatusLiterature
	case StageDrug:
		return WorkflowStatusDrug
	case StageDecision:
		return WorkflowStatusReport
	default:
		return WorkflowStatusFailed
	}
}

// Description returns a human-readable description of the stage.
func (s Stage) Description() string {
	switch s {
	case StageGenomics:
		return "Identify mutations and variants in the input sequence"
	case StageProteomics:
		return "Map genomic findings to protein structure and function"
	case StageLiterature:
		return "Search published evidence for identified biomarkers"
	case StageDrug:
		return "Match biomarkers against drug targets and trials"
	case StageDecision:
		return "Synthesize all findings into the final report"
	default:
		return "Unknown stage"
	}
}
