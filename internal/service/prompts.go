package service

import (
	"fmt"
	"unicode/utf8"

	"github.com/biomerkin/biomerkin/internal/core"
)

// Prompt truncation budgets. Downstream roles never see full upstream
// output; each consumes a bounded prefix so prompt size stays under
// control regardless of how verbose the upstream model was.
const (
	validationInputPrefix   = 500
	validationPrimaryPrefix = 1200
	synthesisPrefix         = 1000
)

// RoleSettings holds the generation parameters for one consensus role.
type RoleSettings struct {
	MaxTokens   int
	Temperature float64
}

// roleSettings returns the fixed per-role generation parameters.
// PRIMARY gets the largest budget and lowest randomness; VALIDATION
// runs slightly warmer to encourage independent judgement; SYNTHESIS
// is short and conservative.
func roleSettings(role core.ConsensusRole) RoleSettings {
	switch role {
	case core.RolePrimary:
		return RoleSettings{MaxTokens: 2000, Temperature: 0.3}
	case core.RoleValidation:
		return RoleSettings{MaxTokens: 1500, Temperature: 0.4}
	case core.RoleSynthesis:
		return RoleSettings{MaxTokens: 800, Temperature: 0.3}
	default:
		return RoleSettings{MaxTokens: 800, Temperature: 0.3}
	}
}

// buildPrimaryPrompt asks for the deep first-pass analysis of the raw
// input.
func buildPrimaryPrompt(input string) string {
	return fmt.Sprintf(`You are an expert genomics analyst. Analyze this genomic sequence data:

Sequence: %s

Provide a comprehensive analysis including:
1. Sequence characteristics and quality
2. Identified mutations or variants
3. Clinical significance
4. Potential health implications
5. Recommended follow-up tests

Be specific and scientific in your analysis.`, input)
}

// buildValidationPrompt asks a second model to review the primary
// analysis against a prefix of the original input.
func buildValidationPrompt(input, primary string) string {
	return fmt.Sprintf(`You are a genomics research expert. Review and validate this genomic analysis:

Original Sequence (first %d chars): %s

Primary Analysis Summary:
%s

Provide:
1. Validation of the primary findings
2. Additional scientific context from literature
3. Alternative interpretations if any
4. Research recommendations
5. Any concerns or limitations

Be thorough and cite relevant scientific concepts.`,
		validationInputPrefix,
		truncate(input, validationInputPrefix),
		truncate(primary, validationPrimaryPrefix))
}

// buildSynthesisPrompt asks for a short decision-oriented summary of
// the two upstream outputs.
func buildSynthesisPrompt(primary, validation string) string {
	return fmt.Sprintf(`Create a unified, actionable summary from these two genomic analyses:

PRIMARY ANALYSIS:
%s

VALIDATION & CONTEXT:
%s

Provide a concise executive summary that:
1. Highlights key findings
2. Presents consensus conclusions
3. Notes any discrepancies
4. Gives clear actionable recommendations

Keep it clear and actionable for clinicians.`,
		truncate(primary, synthesisPrefix),
		truncate(validation, synthesisPrefix))
}

// truncate returns at most n characters of s, marking the cut.
// truncate caps s at n characters. Counting runs over runes so a
// multibyte character is never split mid-sequence.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
