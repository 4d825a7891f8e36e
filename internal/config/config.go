package config

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Models    ModelsConfig    `mapstructure:"models"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     string `mapstructure:"read_timeout"`
	WriteTimeout    string `mapstructure:"write_timeout"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

// StoreConfig configures workflow state persistence.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // sqlite, json, memory
	Path    string `mapstructure:"path"`
}

// PipelineConfig configures workflow execution.
type PipelineConfig struct {
	StageTimeout   string `mapstructure:"stage_timeout"`
	MinInputLength int    `mapstructure:"min_input_length"`
}

// AgentsConfig configures the remote analysis stages.
type AgentsConfig struct {
	Mode   string                 `mapstructure:"mode"` // http, static
	Stages map[string]StageConfig `mapstructure:"stages"`
}

// StageConfig configures a single remote stage endpoint.
type StageConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Timeout  string `mapstructure:"timeout"`
}

// ModelsConfig configures the model runtime.
type ModelsConfig struct {
	Endpoint string                 `mapstructure:"endpoint"`
	APIKey   string                 `mapstructure:"api_key"`
	Timeout  string                 `mapstructure:"timeout"`
	Table    map[string]ModelConfig `mapstructure:"table"`
}

// ModelConfig describes one entry in the model dispatch table.
type ModelConfig struct {
	Format string `mapstructure:"format"` // nova, openai
	Name   string `mapstructure:"name"`
}

// ConsensusConfig configures the three-role consensus pipeline.
type ConsensusConfig struct {
	PrimaryModel    string `mapstructure:"primary_model"`
	ValidationModel string `mapstructure:"validation_model"`
	SynthesisModel  string `mapstructure:"synthesis_model"`
}
