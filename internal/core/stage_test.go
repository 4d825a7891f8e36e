package core

import "testing"

func TestAllStages_Order(t *testing.T) {
	stages := AllStages()
	want := []Stage{StageGenomics, StageProteomics, StageLiterature, StageDrug, StageDecision}

	if len(stages) != len(want) {
		t.Fatalf("AllStages() returned %d stages, want %d", len(stages), len(want))
	}
	for i, s := range want {
		if stages[i] != s {
			t.Errorf("AllStages()[%d] = %s, want %s", i, stages[i], s)
		}
	}
}

func TestNextStage(t *testing.T) {
	tests := []struct {
		name    string
		current Stage
		want    Stage
	}{
		{"genomics to proteomics", StageGenomics, StageProteomics},
		{"proteomics to literature", StageProteomics, StageLiterature},
		{"literature to drug", StageLiterature, StageDrug},
		{"drug to decision", StageDrug, StageDecision},
		{"decision is last", StageDecision, ""},
		{"unknown stage", Stage("bogus"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStage(tt.current); got != tt.want {
				t.Errorf("NextStage(%s) = %q, want %q", tt.current, got, tt.want)
			}
		})
	}
}

func TestStageOrder(t *testing.T) {
	if got := StageOrder(StageGenomics); got != 0 {
		t.Errorf("StageOrder(genomics) = %d, want 0", got)
	}
	if got := StageOrder(StageDecision); got != 4 {
		t.Errorf("StageOrder(decision) = %d, want 4", got)
	}
	if got := StageOrder(Stage("nope")); got != -1 {
		t.Errorf("StageOrder(nope) = %d, want -1", got)
	}
}

func TestParseStage(t *testing.T) {
	if _, err := ParseStage("genomics"); err != nil {
		t.Errorf("ParseStage(genomics) returned error: %v", err)
	}
	if _, err := ParseStage("astrology"); err == nil {
		t.Error("ParseStage(astrology) should return an error")
	}
}

func TestStage_RunningStatus(t *testing.T) {
	tests := []struct {
		stage Stage
		want  WorkflowStatus
	}{
		{StageGenomics, WorkflowStatusGenomics},
		{StageProteomics, WorkflowStatusProteomics},
		{StageLiterature, WorkflowStatusLiterature},
		{StageDrug, WorkflowStatusDrug},
		{StageDecision, WorkflowStatusReport},
	}

	for _, tt := range tests {
		if got := tt.stage.RunningStatus(); got != tt.want {
			t.Errorf("%s.RunningStatus() = %s, want %s", tt.stage, got, tt.want)
		}
	}
}
