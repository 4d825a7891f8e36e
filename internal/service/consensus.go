package service

import (
	"context"

	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/events"
	"github.com/biomerkin/biomerkin/internal/logging"
)

// Placeholder text substituted when an advisory role fails. The report
// always carries all three sections; a missing model is stated, never
// silently blanked.
const (
	validationUnavailableText = "Validation unavailable: the validation model could not be reached. Primary findings were not independently reviewed."
	synthesisUnavailableText  = "Synthesis unavailable: the synthesis model could not be reached. Refer to the detailed analysis and validation notes directly."
)

// ConsensusConfig names the model filling each role.
type ConsensusConfig struct {
	PrimaryModel    string
	ValidationModel string
	SynthesisModel  string
}

// DefaultConsensusConfig returns the reference model assignment.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		PrimaryModel:    "amazon.nova-pro-v1:0",
		ValidationModel: "openai.gpt-oss-120b-1:0",
		SynthesisModel:  "openai.gpt-oss-20b-1:0",
	}
}

// ConsensusPipeline chains three model roles into one report: a deep
// primary analysis, an independent validation pass, and a short
// synthesis. Roles run strictly in order because each consumes the
// previous output.
type ConsensusPipeline struct {
	config ConsensusConfig
	models core.ModelInvoker
	bus    *events.Bus
	logger *logging.Logger
}

// NewConsensusPipeline creates a consensus pipeline.
func NewConsensusPipeline(config ConsensusConfig, models core.ModelInvoker, bus *events.Bus, logger *logging.Logger) *ConsensusPipeline {
	return &ConsensusPipeline{
		config: config,
		models: models,
		bus:    bus,
		logger: logger,
	}
}

// Run executes the three-role sequence for one workflow input.
//
// The primary role is load-bearing: its failure fails the run. The
// validation and synthesis roles are advisory; their failures degrade
// the report (placeholder section, downgraded confidence label) but do
// not abort it. ModelsUsed lists only the models that actually
// produced output.
func (p *ConsensusPipeline) Run(ctx context.Context, workflowID core.WorkflowID, input string) (*core.ConsensusReport, []core.ConsensusStep, error) {
	var steps []core.ConsensusStep

	primary, err := p.invoke(ctx, workflowID, core.RolePrimary, p.config.PrimaryModel, buildPrimaryPrompt(input))
	steps = append(steps, primary)
	if err != nil {
		return nil, steps, err
	}

	validation, validationErr := p.invoke(ctx, workflowID, core.RoleValidation, p.config.ValidationModel,
		buildValidationPrompt(input, primary.OutputText))
	steps = append(steps, validation)

	validationText := validation.OutputText
	if validationErr != nil {
		validationText = validationUnavailableText
	}

	synthesis, synthesisErr := p.invoke(ctx, workflowID, core.RoleSynthesis, p.config.SynthesisModel,
		buildSynthesisPrompt(primary.OutputText, validationText))
	steps = append(steps, synthesis)

	synthesisText := synthesis.OutputText
	if synthesisErr != nil {
		synthesisText = synthesisUnavailableText
	}

	report := &core.ConsensusReport{
		ExecutiveSummary: synthesisText,
		DetailedAnalysis: primary.OutputText,
		ValidationNotes:  validationText,
		ConfidenceLabel:  core.ConfidenceHigh,
	}
	for _, step := range steps {
		if step.Succeeded {
			report.ModelsUsed = append(report.ModelsUsed, step.ModelID)
		}
	}
	if validationErr != nil || synthesisErr != nil {
		report.ConfidenceLabel = core.ConfidenceDegraded
	}

	return report, steps, nil
}

// invoke runs one role and records the step outcome.
func (p *ConsensusPipeline) invoke(ctx context.Context, workflowID core.WorkflowID, role core.ConsensusRole, modelID, prompt string) (core.ConsensusStep, error) {
	settings := roleSettings(role)
	logger := p.logger.WithWorkflow(string(workflowID)).WithRole(string(role)).WithModel(modelID)

	logger.Debug("invoking consensus role",
		"max_tokens", settings.MaxTokens,
		"temperature", settings.Temperature,
		"prompt_length", len(prompt),
	)

	text, err := p.models.Generate(ctx, modelID, prompt, core.GenerateOptions{
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	})

	step := core.ConsensusStep{
		Role:       role,
		ModelID:    modelID,
		OutputText: text,
		Succeeded:  err == nil,
	}
	if p.bus != nil {
		p.bus.Publish(events.NewConsensusStepEvent(string(workflowID), string(role), modelID, err == nil))
	}

	if err != nil {
		logger.Warn("consensus role failed", "error", err)
		return step, err
	}
	logger.Debug("consensus role succeeded", "output_length", len(text))
	return step, nil
}
