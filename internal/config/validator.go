package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateServer(&cfg.Server)
	v.validateStore(&cfg.Store)
	v.validatePipeline(&cfg.Pipeline)
	v.validateAgents(&cfg.Agents)
	v.validateModels(&cfg.Models)
	v.validateConsensus(cfg)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
	v.validateDuration("server.read_timeout", cfg.ReadTimeout)
	v.validateDuration("server.write_timeout", cfg.WriteTimeout)
	v.validateDuration("server.shutdown_timeout", cfg.ShutdownTimeout)
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	switch cfg.Backend {
	case "sqlite", "json", "memory":
	default:
		v.addError("store.backend", cfg.Backend, "must be one of sqlite, json, memory")
	}
	if cfg.Backend != "memory" && cfg.Path == "" {
		v.addError("store.path", cfg.Path, "required for persistent backends")
	}
}

func (v *Validator) validatePipeline(cfg *PipelineConfig) {
	v.validateDuration("pipeline.stage_timeout", cfg.StageTimeout)
	if cfg.MinInputLength < 1 {
		v.addError("pipeline.min_input_length", cfg.MinInputLength, "must be positive")
	}
}

func (v *Validator) validateAgents(cfg *AgentsConfig) {
	switch cfg.Mode {
	case "http", "static":
	default:
		v.addError("agents.mode", cfg.Mode, "must be one of http, static")
	}
	if cfg.Mode == "http" {
		for name, stage := range cfg.Stages {
			if stage.Endpoint == "" {
				v.addError("agents.stages."+name+".endpoint", stage.Endpoint, "required in http mode")
			}
			if stage.Timeout != "" {
				v.validateDuration("agents.stages."+name+".timeout", stage.Timeout)
			}
		}
	}
}

func (v *Validator) validateModels(cfg *ModelsConfig) {
	v.validateDuration("models.timeout", cfg.Timeout)
	for id, m := range cfg.Table {
		switch m.Format {
		case "nova", "openai":
		default:
			v.addError("models.table."+id+".format", m.Format, "must be one of nova, openai")
		}
	}
}

func (v *Validator) validateConsensus(cfg *Config) {
	for field, id := range map[string]string{
		"consensus.primary_model":    cfg.Consensus.PrimaryModel,
		"consensus.validation_model": cfg.Consensus.ValidationModel,
		"consensus.synthesis_model":  cfg.Consensus.SynthesisModel,
	} {
		if id == "" {
			v.addError(field, id, "required")
			continue
		}
		if _, ok := cfg.Models.Table[id]; !ok {
			v.addError(field, id, "not present in models.table")
		}
	}
}

func (v *Validator) validateDuration(field, value string) {
	if value == "" {
		v.addError(field, value, "required")
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		v.addError(field, value, "must be a duration like 30s or 5m")
		return
	}
	if d <= 0 {
		v.addError(field, value, "must be positive")
	}
}
