package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/backend"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crew.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CREW_UNIVERSAL_ACTIVATION", "CREW_MODE", "CREW_FALLBACK", "CREW_MAX_ATTEMPTS",
		"CREW_TIMEOUT", "CREW_DB", "CREW_MEMORY_DRIVER", "OPENAI_API_KEY",
		"OPENAI_MODEL", "CODEC_ADDR", "CREW_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.AgentConfig().MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.AgentConfig().Timeout)
	assert.Equal(t, crew.ModeParallel, cfg.OrchestratorConfig().Mode)
	assert.True(t, cfg.OrchestratorConfig().UniversalActivation)
	assert.Equal(t, 0.7, cfg.ConsensusConfig().SimilarityThreshold)
	assert.Equal(t, 0.3, cfg.DetectorConfig().Threshold)
	assert.Equal(t, "openai:gpt-4o-mini", cfg.Routes().Default)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
activation:
  mode: sequential
  fallback_enabled: false
processor:
  timeout: 2s
  max_attempts: 5
consensus:
  similarity_threshold: 0.6
memory:
  driver: badger
  path: /tmp/crew-badger
backends:
  default: "scripted:{persona}"
  by_category:
    technical: codec:engineering
  by_persona:
    quark: scripted:quark
  scripts:
    quark:
      content: Profit first.
      confidence: 0.4
personas:
  - id: guinan
    name: Guinan
    expertise: [listening, history]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, crew.ModeSequential, cfg.OrchestratorConfig().Mode)
	assert.False(t, cfg.Activation.FallbackEnabled)
	assert.True(t, cfg.Activation.UniversalActivation, "unset keys keep their defaults")
	assert.Equal(t, 2*time.Second, cfg.Processor.Timeout)
	assert.Equal(t, 5, cfg.AgentConfig().MaxAttempts)
	assert.Equal(t, 0.6, cfg.ConsensusConfig().SimilarityThreshold)
	assert.Equal(t, "badger", cfg.Memory.Driver)

	routes := cfg.Routes()
	assert.Equal(t, "scripted:{persona}", routes.Default)
	assert.Equal(t, "codec:engineering", routes.ByCategory[backend.CategoryTechnical])
	assert.Equal(t, "scripted:quark", routes.ByPersona[crew.Quark])
	assert.Equal(t, backend.Script{Content: "Profit first.", Confidence: 0.4}, cfg.Backends.Scripts["quark"])

	roster, err := cfg.Roster()
	require.NoError(t, err)
	assert.Equal(t, crew.DefaultRoster().Len()+1, roster.Len())
	guinan, ok := roster.Get("guinan")
	require.True(t, ok)
	assert.Equal(t, []string{"listening", "history"}, guinan.Expertise)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "activation:\n  mode: sequential\n")
	t.Setenv("CREW_MODE", "parallel")
	t.Setenv("CREW_UNIVERSAL_ACTIVATION", "false")
	t.Setenv("CREW_MAX_ATTEMPTS", "4")
	t.Setenv("CREW_TIMEOUT", "750ms")
	t.Setenv("CREW_MEMORY_DRIVER", "none")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CODEC_ADDR", "localhost:50051")
	t.Setenv("CREW_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "parallel", cfg.Activation.Mode)
	assert.False(t, cfg.Activation.UniversalActivation)
	assert.Equal(t, 4, cfg.Processor.MaxAttempts)
	assert.Equal(t, 750*time.Millisecond, cfg.Processor.Timeout)
	assert.Equal(t, "none", cfg.Memory.Driver)
	assert.Equal(t, "sk-test", cfg.OpenAIConfig().APIKey)
	assert.Equal(t, "localhost:50051", cfg.Backends.CodecAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_BadEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREW_MAX_ATTEMPTS", "many")
	_, err := Load("")
	assert.ErrorContains(t, err, "CREW_MAX_ATTEMPTS")
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "activation: [unterminated"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown mode":        func(c *Config) { c.Activation.Mode = "round-robin" },
		"zero timeout":        func(c *Config) { c.Processor.Timeout = 0 },
		"zero attempts":       func(c *Config) { c.Processor.MaxAttempts = 0 },
		"threshold above one": func(c *Config) { c.Consensus.SimilarityThreshold = 1.5 },
		"weights off":         func(c *Config) { c.Detector.ConfidenceWeight = 0.5 },
		"unknown driver":      func(c *Config) { c.Memory.Driver = "postgres" },
		"missing db path":     func(c *Config) { c.Memory.Path = "" },
		"bad category":        func(c *Config) { c.Backends.ByCategory = map[string]string{"musical": "openai"} },
		"bad codec addr":      func(c *Config) { c.Backends.CodecAddr = "not an address" },
		"bad log level":       func(c *Config) { c.Logging.Level = "loud" },
		"persona without id":  func(c *Config) { c.Personas = []PersonaConfig{{Name: "Nobody"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestValidate_NoneDriverNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Memory = MemoryConfig{Driver: "none"}
	assert.NoError(t, cfg.Validate())
}
