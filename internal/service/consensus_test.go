package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/logging"
)

// stubModels fills consensus roles with canned text and injectable
// per-model failures.
type stubModels struct {
	fail    map[string]error
	prompts map[string]string
}

func (s *stubModels) Generate(_ context.Context, modelID, prompt string, _ core.GenerateOptions) (string, error) {
	if s.prompts == nil {
		s.prompts = make(map[string]string)
	}
	s.prompts[modelID] = prompt
	if err := s.fail[modelID]; err != nil {
		return "", err
	}
	return "output from " + modelID, nil
}

func (s *stubModels) Models() []string {
	return []string{"amazon.nova-pro-v1:0", "openai.gpt-oss-120b-1:0", "openai.gpt-oss-20b-1:0"}
}

func newTestPipeline(models core.ModelInvoker) *ConsensusPipeline {
	return NewConsensusPipeline(DefaultConsensusConfig(), models, nil, logging.NewNop())
}

func TestConsensusPipeline_AllRolesSucceed(t *testing.T) {
	models := &stubModels{}
	report, steps, err := newTestPipeline(models).Run(context.Background(), "wf-1", "ATCGATCG")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.ConfidenceLabel != core.ConfidenceHigh {
		t.Errorf("confidence = %q, want %q", report.ConfidenceLabel, core.ConfidenceHigh)
	}
	if len(report.ModelsUsed) != 3 {
		t.Errorf("models_used = %v, want all three", report.ModelsUsed)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	for i, role := range core.AllRoles() {
		if steps[i].Role != role {
			t.Errorf("step %d role = %s, want %s (fixed order)", i, steps[i].Role, role)
		}
		if !steps[i].Succeeded {
			t.Errorf("step %d should have succeeded", i)
		}
	}
	if report.DetailedAnalysis != "output from amazon.nova-pro-v1:0" {
		t.Errorf("detailed analysis = %q, want primary output", report.DetailedAnalysis)
	}
	if report.ExecutiveSummary != "output from openai.gpt-oss-20b-1:0" {
		t.Errorf("executive summary = %q, want synthesis output", report.ExecutiveSummary)
	}
}

func TestConsensusPipeline_PrimaryFailureIsFatal(t *testing.T) {
	models := &stubModels{fail: map[string]error{
		"amazon.nova-pro-v1:0": core.ErrModel(core.CodeModelUnavailable, "primary down"),
	}}

	report, steps, err := newTestPipeline(models).Run(context.Background(), "wf-2", "ATCGATCG")
	if err == nil {
		t.Fatal("Run should fail when the primary role fails")
	}
	if report != nil {
		t.Errorf("report = %v, want nil on primary failure", report)
	}
	if len(steps) != 1 {
		t.Errorf("got %d steps, want 1 (no roles run after primary failure)", len(steps))
	}
}

func TestConsensusPipeline_ValidationFailureDegrades(t *testing.T) {
	models := &stubModels{fail: map[string]error{
		"openai.gpt-oss-120b-1:0": core.ErrModel(core.CodeModelUnavailable, "validation down"),
	}}

	report, steps, err := newTestPipeline(models).Run(context.Background(), "wf-3", "ATCGATCG")
	if err != nil {
		t.Fatalf("Run returned error: %v (validation failures must degrade, not fail)", err)
	}

	if report.ConfidenceLabel != core.ConfidenceDegraded {
		t.Errorf("confidence = %q, want %q", report.ConfidenceLabel, core.ConfidenceDegraded)
	}
	if report.ValidationNotes != validationUnavailableText {
		t.Errorf("validation notes = %q, want explicit placeholder", report.ValidationNotes)
	}
	if len(report.ModelsUsed) != 2 {
		t.Errorf("models_used = %v, want primary and synthesis only", report.ModelsUsed)
	}
	for _, id := range report.ModelsUsed {
		if id == "openai.gpt-oss-120b-1:0" {
			t.Error("models_used must not list the failed validation model")
		}
	}
	if len(steps) != 3 {
		t.Errorf("got %d steps, want 3 (advisory failure does not stop the run)", len(steps))
	}

	// Synthesis still ran, consuming the placeholder in place of the
	// missing validation output.
	synthPrompt := models.prompts["openai.gpt-oss-20b-1:0"]
	if !strings.Contains(synthPrompt, validationUnavailableText) {
		t.Error("synthesis prompt should carry the validation placeholder")
	}
}

func TestConsensusPipeline_SynthesisFailureDegrades(t *testing.T) {
	models := &stubModels{fail: map[string]error{
		"openai.gpt-oss-20b-1:0": core.ErrModel(core.CodeModelAccessDenied, "synthesis denied"),
	}}

	report, _, err := newTestPipeline(models).Run(context.Background(), "wf-4", "ATCGATCG")
	if err != nil {
		t.Fatalf("Run returned error: %v (synthesis failures must degrade, not fail)", err)
	}
	if report.ConfidenceLabel != core.ConfidenceDegraded {
		t.Errorf("confidence = %q, want %q", report.ConfidenceLabel, core.ConfidenceDegraded)
	}
	if report.ExecutiveSummary != synthesisUnavailableText {
		t.Errorf("executive summary = %q, want explicit placeholder", report.ExecutiveSummary)
	}
	if report.ValidationNotes != "output from openai.gpt-oss-120b-1:0" {
		t.Errorf("validation notes = %q, want real validation output", report.ValidationNotes)
	}
}

func TestBuildValidationPrompt_TruncatesInputs(t *testing.T) {
	longInput := strings.Repeat("A", 2*validationInputPrefix)
	longPrimary := strings.Repeat("B", 2*validationPrimaryPrefix)

	prompt := buildValidationPrompt(longInput, longPrimary)

	if strings.Contains(prompt, strings.Repeat("A", validationInputPrefix+1)) {
		t.Error("validation prompt carries more input than its budget")
	}
	if !strings.Contains(prompt, strings.Repeat("A", validationInputPrefix)+"...") {
		t.Error("truncated input should be marked with an ellipsis")
	}
	if strings.Contains(prompt, strings.Repeat("B", validationPrimaryPrefix+1)) {
		t.Error("validation prompt carries more primary output than its budget")
	}
}

func TestBuildSynthesisPrompt_TruncatesInputs(t *testing.T) {
	long := strings.Repeat("X", 2*synthesisPrefix)
	prompt := buildSynthesisPrompt(long, long)

	if strings.Contains(prompt, strings.Repeat("X", synthesisPrefix+1)) {
		t.Error("synthesis prompt carries more upstream output than its budget")
	}
}

func TestTruncate_RuneBoundaries(t *testing.T) {
	// Mixed annotation text: truncating at a byte offset inside a
	// multibyte character would produce invalid UTF-8.
	s := strings.Repeat("β", 10)

	got := truncate(s, 4)
	if got != strings.Repeat("β", 4)+"..." {
		t.Errorf("truncate = %q, want four characters plus ellipsis", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}

	if got := truncate(s, 10); got != s {
		t.Errorf("truncate of exact-length string = %q, want unchanged", got)
	}
}

func TestRoleSettings(t *testing.T) {
	tests := []struct {
		role        core.ConsensusRole
		maxTokens   int
		temperature float64
	}{
		{core.RolePrimary, 2000, 0.3},
		{core.RoleValidation, 1500, 0.4},
		{core.RoleSynthesis, 800, 0.3},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			got := roleSettings(tt.role)
			if got.MaxTokens != tt.maxTokens || got.Temperature != tt.temperature {
				t.Errorf("roleSettings(%s) = %+v, want %d/%g", tt.role, got, tt.maxTokens, tt.temperature)
			}
		})
	}
}
