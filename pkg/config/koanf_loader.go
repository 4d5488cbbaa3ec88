package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the environment variable prefix recognized by Load.
const envPrefix = "ESSAYDQN_"

// Load loads configuration using Koanf with precedence:
// Environment Variables > Config File > struct zero values.
//
// Double-underscore nesting is preserved:
// ESSAYDQN_TRAINING__LEARNING_RATE -> training.learning_rate
// ESSAYDQN_RUN_MODE -> run_mode
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.Replace(s, "__", ".", -1)
		s = strings.ToLower(s)
		return s
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
	}); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	applyDefaults(&cfg)

	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in the global defaults: max_rounds=6,
// score_range=[0,5].
func applyDefaults(cfg *Config) {
	if cfg.GlobalSettings.MaxRounds == 0 {
		cfg.GlobalSettings.MaxRounds = 6
	}
	if cfg.GlobalSettings.ScoreRange == [2]float64{} {
		cfg.GlobalSettings.ScoreRange = [2]float64{0, 5}
	}
}
