package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v3"

	"tourplan/internal/plan"
)

// Duration accepts "12h" style values in YAML, which yaml.v3 does not do
// for time.Duration on its own.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config carries everything the API server needs at startup. Values come
// from an optional YAML file; environment variables win over the file so
// container deployments can override without editing it.
type Config struct {
	Port        int    `yaml:"port"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	// CapacityFile points at a CSV of week/zone/skill capacities loaded
	// into the store on boot. Empty means no seed.
	CapacityFile string `yaml:"capacityFile"`

	Thresholds ThresholdConfig     `yaml:"thresholds"`
	Scoring    plan.ScoringWeights `yaml:"scoring"`

	Webhooks WebhookConfig `yaml:"webhooks"`
}

type ThresholdConfig struct {
	MaxDailyDuty       Duration `yaml:"maxDailyDuty"`
	MinDailyDuty       Duration `yaml:"minDailyDuty"`
	ExpiryHorizonWeeks int      `yaml:"expiryHorizonWeeks"`
}

// Plan converts to the planning core's threshold type.
func (t ThresholdConfig) Plan() plan.Thresholds {
	return plan.Thresholds{
		MaxDailyDuty:       time.Duration(t.MaxDailyDuty),
		MinDailyDuty:       time.Duration(t.MinDailyDuty),
		ExpiryHorizonWeeks: t.ExpiryHorizonWeeks,
	}
}

type WebhookConfig struct {
	MaxAttempts int `yaml:"maxAttempts"`
	BatchSize   int `yaml:"batchSize"`
	IntervalSec int `yaml:"intervalSec"`
}

func Default() Config {
	th := plan.DefaultThresholds()
	return Config{
		Port: 8080,
		Thresholds: ThresholdConfig{
			MaxDailyDuty:       Duration(th.MaxDailyDuty),
			MinDailyDuty:       Duration(th.MinDailyDuty),
			ExpiryHorizonWeeks: th.ExpiryHorizonWeeks,
		},
		Scoring:  plan.DefaultScoringWeights(),
		Webhooks: WebhookConfig{MaxAttempts: 8, BatchSize: 50, IntervalSec: 2},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides. A missing file falls back to defaults so the
// server can boot with nothing but environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("CAPACITY_FILE"); v != "" {
		cfg.CapacityFile = v
	}
	if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Webhooks.MaxAttempts = n
		}
	}
}
