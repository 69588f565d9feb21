// Package config loads runtime configuration: connection settings from the
// environment, analysis knobs from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/meridian-research/colloquy/internal/chains"
	"github.com/meridian-research/colloquy/internal/discovery"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string

	Analysis Analysis
}

// Analysis holds the per-run knobs, loadable from a YAML file so researchers
// can version their coding setup alongside their data.
type Analysis struct {
	Concurrency int              `yaml:"concurrency"`
	Chains      ChainsConfig     `yaml:"chains"`
	Discovery   discovery.Config `yaml:"discovery"`
}

type ChainsConfig struct {
	MinHops        int     `yaml:"min_hops"`
	MinSpeakers    int     `yaml:"min_speakers"`
	RetentionFloor float64 `yaml:"retention_floor"`
	ReportingFloor float64 `yaml:"reporting_floor"`
}

// ChainConfig converts the YAML shape into the chainer's config, applying
// defaults for unset values.
func (a Analysis) ChainConfig() chains.Config {
	cfg := chains.DefaultConfig()
	if a.Chains.MinHops > 0 {
		cfg.MinHops = a.Chains.MinHops
	}
	if a.Chains.MinSpeakers > 0 {
		cfg.MinSpeakers = a.Chains.MinSpeakers
	}
	if a.Chains.RetentionFloor > 0 {
		cfg.RetentionFloor = a.Chains.RetentionFloor
	}
	if a.Chains.ReportingFloor > 0 {
		cfg.ReportingFloor = a.Chains.ReportingFloor
	}
	return cfg
}

func Load() Config {
	return Config{
		Port:            envInt("COLLOQUY_PORT", 8760),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("COLLOQUY_MODEL", "claude-sonnet-4-20250514"),
		Analysis:        DefaultAnalysis(),
	}
}

func DefaultAnalysis() Analysis {
	return Analysis{
		Concurrency: 5,
		Discovery: discovery.Config{
			Codes:    discovery.CategoryConfig{Approach: discovery.ApproachOpen},
			Speakers: discovery.CategoryConfig{Approach: discovery.ApproachOpen},
			Entities: discovery.CategoryConfig{Approach: discovery.ApproachOpen},
		},
	}
}

// LoadAnalysis reads the analysis YAML file, layering it over defaults.
func LoadAnalysis(path string) (Analysis, error) {
	a := DefaultAnalysis()

	data, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("read analysis config: %w", err)
	}
	if err := yaml.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("parse analysis config: %w", err)
	}

	if err := validateAnalysis(a); err != nil {
		return a, err
	}
	return a, nil
}

func validateAnalysis(a Analysis) error {
	for _, c := range []struct {
		name string
		cfg  discovery.CategoryConfig
	}{
		{"codes", a.Discovery.Codes},
		{"speakers", a.Discovery.Speakers},
		{"entities", a.Discovery.Entities},
	} {
		switch c.cfg.Approach {
		case discovery.ApproachOpen, discovery.ApproachClosed, discovery.ApproachMixed:
		case "":
			// Unset falls back to open at the controller.
		default:
			return fmt.Errorf("%s: unknown approach %q", c.name, c.cfg.Approach)
		}
		if (c.cfg.Approach == discovery.ApproachClosed || c.cfg.Approach == discovery.ApproachMixed) && c.cfg.Definitions == "" {
			return fmt.Errorf("%s: approach %q requires definitions", c.name, c.cfg.Approach)
		}
	}

	if a.Chains.RetentionFloor < 0 || a.Chains.RetentionFloor > 1 {
		return fmt.Errorf("chains.retention_floor %v out of range", a.Chains.RetentionFloor)
	}
	if a.Chains.ReportingFloor < 0 || a.Chains.ReportingFloor > 1 {
		return fmt.Errorf("chains.reporting_floor %v out of range", a.Chains.ReportingFloor)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
