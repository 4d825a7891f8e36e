package config

// Default model table mirrors the deployed runtime: one Nova-format
// model and two OpenAI-format models.
const (
	DefaultPrimaryModel    = "amazon.nova-pro-v1:0"
	DefaultValidationModel = "openai.gpt-oss-120b-1:0"
	DefaultSynthesisModel  = "openai.gpt-oss-20b-1:0"
)

// setDefaults configures default values on the loader's viper instance.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("server.host", "localhost")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.read_timeout", "15s")
	l.v.SetDefault("server.write_timeout", "30s")
	l.v.SetDefault("server.shutdown_timeout", "10s")

	l.v.SetDefault("store.backend", "sqlite")
	l.v.SetDefault("store.path", ".biomerkin/state.db")

	// Stage calls are modeled as slow, potentially LLM-backed operations.
	l.v.SetDefault("pipeline.stage_timeout", "5m")
	l.v.SetDefault("pipeline.min_input_length", 8)

	l.v.SetDefault("agents.mode", "static")

	l.v.SetDefault("models.endpoint", "")
	l.v.SetDefault("models.timeout", "2m")
	l.v.SetDefault("models.table", map[string]interface{}{
		DefaultPrimaryModel:    map[string]interface{}{"format": "nova", "name": "Amazon Nova Pro"},
		DefaultValidationModel: map[string]interface{}{"format": "openai", "name": "OpenAI GPT-OSS 120B"},
		DefaultSynthesisModel:  map[string]interface{}{"format": "openai", "name": "OpenAI GPT-OSS 20B"},
	})

	l.v.SetDefault("consensus.primary_model", DefaultPrimaryModel)
	l.v.SetDefault("consensus.validation_model", DefaultValidationModel)
	l.v.SetDefault("consensus.synthesis_model", DefaultSynthesisModel)
}
