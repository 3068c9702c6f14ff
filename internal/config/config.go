package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/jwaldner/optionlab/pricing"
)

// DefaultPath is read when no explicit config file is given
const DefaultPath = "config.yaml"

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// ServerConfig represents the HTTP pricing API settings
type ServerConfig struct {
	Port         string `yaml:"port"`
	RoundPlaces  int32  `yaml:"round_places"`
	MaxGridCells int    `yaml:"max_grid_cells"`
}

// EngineConfig represents batch execution settings
type EngineConfig struct {
	ExecutionMode string `yaml:"execution_mode"` // auto, parallel, sequential
	MaxWorkers    int    `yaml:"max_workers"`    // 0 = number of CPUs
}

// PricingConfig holds the model knobs callers fall back to
type PricingConfig struct {
	BinomialSteps  int    `yaml:"binomial_steps"`
	Simulations    int    `yaml:"simulations"`
	SeedMode       string `yaml:"seed_mode"` // random or fixed
	Seed           uint64 `yaml:"seed"`
	MaxSteps       int    `yaml:"max_steps"`
	MaxSimulations int    `yaml:"max_simulations"`
}

// TreasuryConfig represents the risk-free rate source
type TreasuryConfig struct {
	BaseURL      string        `yaml:"base_url"`
	FallbackRate float64       `yaml:"fallback_rate"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
}

// ConvergenceConfig drives the convergence study
type ConvergenceConfig struct {
	Steps       []int    `yaml:"steps"`
	Seeds       []uint64 `yaml:"seeds"`
	Simulations int      `yaml:"simulations"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Engine      EngineConfig      `yaml:"engine"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Treasury    TreasuryConfig    `yaml:"treasury"`
	Convergence ConvergenceConfig `yaml:"convergence"`
}

// FixedSeed reports whether simulations should run in reproducible mode
func (p PricingConfig) FixedSeed() bool {
	return strings.EqualFold(p.SeedMode, "fixed")
}

// SeedPolicy maps seed_mode onto the simulation seed policy
func (p PricingConfig) SeedPolicy() pricing.SeedPolicy {
	if p.FixedSeed() {
		return pricing.FixedSeed(p.Seed)
	}
	return pricing.RandomSeed()
}

// Options turns the configured defaults into per-call pricing knobs
func (p PricingConfig) Options() pricing.Options {
	return pricing.Options{
		Steps: p.BinomialSteps,
		Simulation: pricing.SimulationConfig{
			Paths: p.Simulations,
			Seed:  p.SeedPolicy(),
		},
	}
}

// Default returns the built-in configuration before env and file overrides
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			RoundPlaces:  4,
			MaxGridCells: 400,
		},
		Logging: LoggingConfig{
			LogLevel: "info",
			LogFile:  "optionlab.log",
		},
		Engine: EngineConfig{
			ExecutionMode: "auto",
		},
		Pricing: PricingConfig{
			BinomialSteps:  100,
			Simulations:    10000,
			SeedMode:       "random",
			Seed:           42,
			MaxSteps:       20000,
			MaxSimulations: 10000000,
		},
		Treasury: TreasuryConfig{
			BaseURL:      "https://api.fiscaldata.treasury.gov/services/api/fiscal_service",
			FallbackRate: 0.04,
			Timeout:      10 * time.Second,
			Retries:      2,
		},
		Convergence: ConvergenceConfig{
			Steps:       []int{10, 50, 100, 500, 1000},
			Seeds:       []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			Simulations: 100000,
		},
	}
}

// Load builds the configuration from defaults, .env, environment variables
// and config.yaml. A missing or unreadable config.yaml is ignored.
func Load() *Config {
	cfg, err := LoadFrom(DefaultPath)
	if err != nil {
		cfg = Default()
		applyEnv(cfg)
	}
	return cfg
}

// LoadFrom is Load with an explicit YAML file. A missing file is not an
// error; a malformed one is.
func LoadFrom(path string) (*Config, error) {
	// .env only fills variables that are not already set
	_ = godotenv.Load()

	cfg := Default()
	applyEnv(cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrapf(err, "read config %s", path)
		default:
			if err := applyYAML(cfg, data); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a run cannot start without
func (c *Config) Validate() error {
	switch strings.ToLower(c.Engine.ExecutionMode) {
	case "auto", "parallel", "sequential":
	default:
		return errors.Errorf("engine.execution_mode must be auto, parallel or sequential, got %q", c.Engine.ExecutionMode)
	}
	switch strings.ToLower(c.Pricing.SeedMode) {
	case "random", "fixed":
	default:
		return errors.Errorf("pricing.seed_mode must be random or fixed, got %q", c.Pricing.SeedMode)
	}
	if c.Pricing.BinomialSteps < 1 {
		return errors.Errorf("pricing.binomial_steps must be at least 1, got %d", c.Pricing.BinomialSteps)
	}
	if c.Server.RoundPlaces < 0 {
		return errors.Errorf("server.round_places must not be negative, got %d", c.Server.RoundPlaces)
	}
	if c.Pricing.Simulations < 1 {
		return errors.Errorf("pricing.simulations must be at least 1, got %d", c.Pricing.Simulations)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Logging.LogLevel = getEnv("LOG_LEVEL", cfg.Logging.LogLevel)
	cfg.Logging.LogFile = getEnv("LOG_FILE", cfg.Logging.LogFile)
	cfg.Engine.ExecutionMode = getEnv("ENGINE_EXECUTION_MODE", cfg.Engine.ExecutionMode)
	cfg.Engine.MaxWorkers = getEnvInt("ENGINE_MAX_WORKERS", cfg.Engine.MaxWorkers)
	cfg.Pricing.BinomialSteps = getEnvInt("PRICING_BINOMIAL_STEPS", cfg.Pricing.BinomialSteps)
	cfg.Pricing.Simulations = getEnvInt("PRICING_SIMULATIONS", cfg.Pricing.Simulations)
	cfg.Pricing.SeedMode = getEnv("PRICING_SEED_MODE", cfg.Pricing.SeedMode)
	cfg.Pricing.Seed = getEnvUint64("PRICING_SEED", cfg.Pricing.Seed)
	cfg.Treasury.BaseURL = getEnv("TREASURY_BASE_URL", cfg.Treasury.BaseURL)
	cfg.Treasury.FallbackRate = getEnvFloat("TREASURY_FALLBACK_RATE", cfg.Treasury.FallbackRate)
}

// applyYAML overlays the keys present in the file. Keys set to zero in the
// file override the defaults; absent keys keep them.
func applyYAML(cfg *Config, data []byte) error {
	merged := *cfg
	if err := yaml.UnmarshalStrict(data, &merged); err != nil {
		return err
	}
	*cfg = merged
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
