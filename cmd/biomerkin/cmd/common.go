package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/biomerkin/biomerkin/internal/adapters/agent"
	"github.com/biomerkin/biomerkin/internal/adapters/model"
	"github.com/biomerkin/biomerkin/internal/adapters/store"
	"github.com/biomerkin/biomerkin/internal/config"
	"github.com/biomerkin/biomerkin/internal/core"
	"github.com/biomerkin/biomerkin/internal/events"
	"github.com/biomerkin/biomerkin/internal/logging"
	"github.com/biomerkin/biomerkin/internal/service"
)

// loadConfig builds a loader on top of the shared viper instance so
// CLI flag bindings take precedence over file and env values.
func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

func buildStore(cfg *config.Config) (core.WorkflowStore, error) {
	s, err := store.New(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("creating %s store: %w", cfg.Store.Backend, err)
	}
	return s, nil
}

func buildAgents(cfg *config.Config, logger *logging.Logger) (core.StageInvoker, error) {
	if cfg.Agents.Mode == "static" {
		return agent.NewUniformRegistry(agent.NewStaticClient(), core.AllStages())
	}

	endpoints := make(map[core.Stage]string, len(cfg.Agents.Stages))
	stages := make([]core.Stage, 0, len(cfg.Agents.Stages))
	for name, sc := range cfg.Agents.Stages {
		stage, err := core.ParseStage(name)
		if err != nil {
			return nil, err
		}
		endpoints[stage] = sc.Endpoint
		stages = append(stages, stage)
	}

	var opts []agent.HTTPClientOption
	if cfg.Pipeline.StageTimeout != "" {
		d, err := parseDuration("pipeline.stage_timeout", cfg.Pipeline.StageTimeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, agent.WithTimeout(d))
	}

	client, err := agent.NewHTTPClient(endpoints, logger, opts...)
	if err != nil {
		return nil, err
	}
	return agent.NewUniformRegistry(client, stages)
}

func buildModels(cfg *config.Config, logger *logging.Logger) (core.ModelInvoker, error) {
	if cfg.Models.Endpoint == "" {
		return nil, fmt.Errorf("models.endpoint is not configured; set it in the config file or BIOMERKIN_MODELS_ENDPOINT")
	}

	specs := make([]model.Spec, 0, len(cfg.Models.Table))
	for id, mc := range cfg.Models.Table {
		specs = append(specs, model.Spec{
			ID:     id,
			Name:   mc.Name,
			Format: model.Format(mc.Format),
		})
	}
	table, err := model.NewTable(specs)
	if err != nil {
		return nil, err
	}

	opts := []model.RuntimeClientOption{}
	if cfg.Models.APIKey != "" {
		opts = append(opts, model.WithAPIKey(cfg.Models.APIKey))
	}
	if cfg.Models.Timeout != "" {
		d, err := parseDuration("models.timeout", cfg.Models.Timeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, model.WithInvokeTimeout(d))
	}

	return model.NewRuntimeClient(cfg.Models.Endpoint, table, logger, opts...)
}

// buildCoordinator wires the full pipeline: store, stage agents, the
// consensus pipeline for the decision stage, and the event bus.
func buildCoordinator(cfg *config.Config, bus *events.Bus, logger *logging.Logger) (*service.Coordinator, error) {
	st, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	agents, err := buildAgents(cfg, logger)
	if err != nil {
		return nil, err
	}

	models, err := buildModels(cfg, logger)
	if err != nil {
		return nil, err
	}

	consensusCfg := service.ConsensusConfig{
		PrimaryModel:    cfg.Consensus.PrimaryModel,
		ValidationModel: cfg.Consensus.ValidationModel,
		SynthesisModel:  cfg.Consensus.SynthesisModel,
	}
	consensus := service.NewConsensusPipeline(consensusCfg, models, bus, logger)

	coordCfg := service.DefaultCoordinatorConfig()
	if cfg.Pipeline.MinInputLength > 0 {
		coordCfg.MinInputLength = cfg.Pipeline.MinInputLength
	}
	if cfg.Pipeline.StageTimeout != "" {
		d, err := parseDuration("pipeline.stage_timeout", cfg.Pipeline.StageTimeout)
		if err != nil {
			return nil, err
		}
		coordCfg.StageTimeout = d
	}

	return service.NewCoordinator(coordCfg, st, agents, consensus, bus, logger), nil
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	return d, nil
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
