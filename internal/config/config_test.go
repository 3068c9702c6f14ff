package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Pricing.BinomialSteps)
	assert.Equal(t, 10000, cfg.Pricing.Simulations)
	assert.False(t, cfg.Pricing.FixedSeed())
	assert.Equal(t, "auto", cfg.Engine.ExecutionMode)
	assert.Equal(t, 0.04, cfg.Treasury.FallbackRate)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PRICING_BINOMIAL_STEPS", "250")
	t.Setenv("PRICING_SEED_MODE", "fixed")
	t.Setenv("PRICING_SEED", "7")
	t.Setenv("PORT", "9090")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Pricing.BinomialSteps)
	assert.True(t, cfg.Pricing.FixedSeed())
	assert.Equal(t, uint64(7), cfg.Pricing.Seed)
	assert.Equal(t, "9090", cfg.Server.Port)

	seed, fixed := cfg.Pricing.SeedPolicy().Fixed()
	assert.True(t, fixed)
	assert.Equal(t, uint64(7), seed)
}

func TestEnvOverride_IgnoresGarbage(t *testing.T) {
	t.Setenv("PRICING_SIMULATIONS", "lots")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.Pricing.Simulations)
}

func TestYAMLOverlay(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "7000"
  round_places: 2
engine:
  execution_mode: sequential
pricing:
  binomial_steps: 500
  simulations: 250000
  seed_mode: fixed
  seed: 42
treasury:
  timeout: 3s
convergence:
  steps: [10, 20]
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, int32(2), cfg.Server.RoundPlaces)
	assert.Equal(t, 400, cfg.Server.MaxGridCells)
	assert.Equal(t, "sequential", cfg.Engine.ExecutionMode)
	assert.Equal(t, 500, cfg.Pricing.BinomialSteps)
	assert.Equal(t, 3*time.Second, cfg.Treasury.Timeout)
	assert.Equal(t, []int{10, 20}, cfg.Convergence.Steps)

	opts := cfg.Pricing.Options()
	assert.Equal(t, 500, opts.Steps)
	assert.Equal(t, 250000, opts.Simulation.Paths)
	seed, fixed := opts.Simulation.Seed.Fixed()
	assert.True(t, fixed)
	assert.Equal(t, uint64(42), seed)
}

func TestYAMLOverlay_ZeroValues(t *testing.T) {
	path := writeConfig(t, `
server:
  round_places: 0
engine:
  max_workers: 0
pricing:
  seed_mode: fixed
  seed: 0
treasury:
  fallback_rate: 0
  retries: 0
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, int32(0), cfg.Server.RoundPlaces)
	assert.Equal(t, 0.0, cfg.Treasury.FallbackRate)
	assert.Equal(t, 0, cfg.Treasury.Retries)
	seed, fixed := cfg.Pricing.SeedPolicy().Fixed()
	assert.True(t, fixed)
	assert.Equal(t, uint64(0), seed)

	// absent keys keep their defaults
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Treasury.Timeout)
	assert.Equal(t, 100, cfg.Pricing.BinomialSteps)
}

func TestYAMLOverlay_Errors(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, "pricing: [not, a, map]"))
	assert.Error(t, err)

	_, err = LoadFrom(writeConfig(t, "pricing:\n  unknown_knob: 3\n"))
	assert.Error(t, err)

	_, err = LoadFrom(writeConfig(t, "pricing:\n  seed_mode: sometimes\n"))
	assert.Error(t, err)

	_, err = LoadFrom(writeConfig(t, "pricing:\n  binomial_steps: -4\n"))
	assert.Error(t, err)

	_, err = LoadFrom(writeConfig(t, "server:\n  round_places: -1\n"))
	assert.Error(t, err)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Pricing.BinomialSteps)
}

func TestLoad_NeverFails(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(DefaultPath, []byte("engine:\n  execution_mode: warp\n"), 0o644))

	cfg := Load()
	assert.Equal(t, "auto", cfg.Engine.ExecutionMode)
}
