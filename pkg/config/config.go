// Package config defines the typed configuration surface for the essay
// deliberation system and loads it through a layered file+env pipeline.
package config

import "fmt"

// RunMode selects whether evaluators call a real language-model backend or
// the deterministic mock evaluator.
type RunMode string

const (
	RunModeProduction   RunMode = "production"
	RunModeMockTraining RunMode = "mock_training"
)

// Config is the complete configuration surface.
type Config struct {
	RunMode        RunMode           `yaml:"run_mode" koanf:"run_mode" validate:"required,oneof=production mock_training"`
	Agents         []AgentConfig     `yaml:"agents" koanf:"agents" validate:"required,min=1,dive"`
	GlobalSettings GlobalSettings    `yaml:"global_settings" koanf:"global_settings"`
	Training       TrainingConfig    `yaml:"training" koanf:"training" validate:"required"`
	Simulation     *SimulationConfig `yaml:"simulation,omitempty" koanf:"simulation"`
	Generator      GeneratorConfig   `yaml:"generator" koanf:"generator"`
	Corpus         CorpusConfig      `yaml:"corpus" koanf:"corpus"`
	Checkpoint     CheckpointConfig  `yaml:"checkpoint" koanf:"checkpoint"`
	Metrics        MetricsConfig     `yaml:"metrics" koanf:"metrics"`
	Rubrics        RubricsConfig     `yaml:"rubrics" koanf:"rubrics"`
	Logging        LoggingConfig     `yaml:"logging" koanf:"logging"`
}

// AgentConfig describes one role-bound evaluator.
type AgentConfig struct {
	Name                 string  `yaml:"name" koanf:"name" validate:"required"`
	SystemPromptTemplate string  `yaml:"system_prompt_template" koanf:"system_prompt_template" validate:"required"`
	Temperature          float64 `yaml:"temperature,omitempty" koanf:"temperature" validate:"gte=0,lte=2"`
}

// GlobalSettings holds the round cutoff and the target scoring range.
type GlobalSettings struct {
	MaxRounds  int        `yaml:"max_rounds" koanf:"max_rounds" validate:"gte=1"`
	ScoreRange [2]float64 `yaml:"score_range" koanf:"score_range"`
}

// TrainingConfig configures the Controller's training step and the harness's
// episode loop.
type TrainingConfig struct {
	LearningRate    float64 `yaml:"learning_rate" koanf:"learning_rate" validate:"gt=0"`
	Gamma           float64 `yaml:"gamma" koanf:"gamma" validate:"gte=0,lte=1"`
	BufferSize      int     `yaml:"buffer_size" koanf:"buffer_size" validate:"gt=0"`
	BatchSize       int     `yaml:"batch_size" koanf:"batch_size" validate:"gt=0"`
	TotalEpisodes   int     `yaml:"total_episodes" koanf:"total_episodes" validate:"gt=0"`
	EpsilonStart    float64 `yaml:"epsilon_start" koanf:"epsilon_start" validate:"gte=0,lte=1"`
	EpsilonEnd      float64 `yaml:"epsilon_end" koanf:"epsilon_end" validate:"gte=0,lte=1"`
	EpsilonDecay    float64 `yaml:"epsilon_decay" koanf:"epsilon_decay" validate:"gt=0"`
	WarmupSteps     int     `yaml:"warmup_steps,omitempty" koanf:"warmup_steps" validate:"gte=0"`
	CheckpointEvery int     `yaml:"checkpoint_every" koanf:"checkpoint_every" validate:"gte=0"`
}

// SimulationConfig parameterizes the Mock Evaluator. Required when
// RunMode == RunModeMockTraining.
type SimulationConfig struct {
	ConvergenceRate  float64 `yaml:"convergence_rate" koanf:"convergence_rate" validate:"gte=0,lte=1"`
	NoiseLevel       float64 `yaml:"noise_level" koanf:"noise_level" validate:"gte=0"`
	ConvergenceSpeed float64 `yaml:"convergence_speed" koanf:"convergence_speed" validate:"gte=0,lte=1"`
}

// GeneratorConfig selects and configures the language-model backend used by
// production Evaluators, dispatched through the generators registry.
type GeneratorConfig struct {
	Type      string         `yaml:"type" koanf:"type"`
	Model     string         `yaml:"model" koanf:"model"`
	APIKeyEnv string         `yaml:"api_key_env,omitempty" koanf:"api_key_env"`
	Options   map[string]any `yaml:"options,omitempty" koanf:"options"`
}

// CorpusConfig locates the ASAP-style essay corpus and its metadata.
type CorpusConfig struct {
	TSVPath      string `yaml:"tsv_path" koanf:"tsv_path"`
	MetadataPath string `yaml:"metadata_path" koanf:"metadata_path"`
}

// CheckpointConfig locates the Controller's checkpoint file.
type CheckpointConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// MetricsConfig locates the per-episode CSV metrics log and, optionally, the
// Prometheus scrape address for the live counters.
type MetricsConfig struct {
	Path            string `yaml:"path" koanf:"path"`
	PrometheusAddr  string `yaml:"prometheus_addr,omitempty" koanf:"prometheus_addr"`
}

// RubricsConfig locates the rubric-file directory.
type RubricsConfig struct {
	Dir string `yaml:"dir" koanf:"dir"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format" validate:"omitempty,oneof=json text"`
}

// Validate checks cross-field invariants the struct tags cannot express.
func (c *Config) Validate() error {
	if c.GlobalSettings.ScoreRange[0] >= c.GlobalSettings.ScoreRange[1] {
		return fmt.Errorf("global_settings.score_range must have min < max, got: %v", c.GlobalSettings.ScoreRange)
	}

	if c.Training.EpsilonEnd > c.Training.EpsilonStart {
		return fmt.Errorf("training.epsilon_end (%f) must be <= training.epsilon_start (%f)", c.Training.EpsilonEnd, c.Training.EpsilonStart)
	}

	if c.Training.BatchSize > c.Training.BufferSize {
		return fmt.Errorf("training.batch_size (%d) must be <= training.buffer_size (%d)", c.Training.BatchSize, c.Training.BufferSize)
	}

	if c.RunMode == RunModeMockTraining && c.Simulation == nil {
		return fmt.Errorf("simulation config is required when run_mode is %q", RunModeMockTraining)
	}

	if c.RunMode == RunModeProduction && c.Generator.Type == "" {
		return fmt.Errorf("generator.type is required when run_mode is %q", RunModeProduction)
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name: %s", a.Name)
		}
		seen[a.Name] = true
	}

	return nil
}
