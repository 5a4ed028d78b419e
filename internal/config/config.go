// Package config loads the crew configuration from YAML, applies
// environment overrides and validates the result.
package config

// #region imports
import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/backend"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/consensus"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/hallucination"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/logging"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/memory"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/orchestrator"
)

// #endregion

// #region types

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full crew configuration.
type Config struct {
	Activation ActivationConfig `yaml:"activation"`
	Processor  ProcessorConfig  `yaml:"processor"`
	Consensus  ConsensusConfig  `yaml:"consensus"`
	Detector   DetectorConfig   `yaml:"detector"`
	Memory     MemoryConfig     `yaml:"memory"`
	Backends   BackendsConfig   `yaml:"backends"`
	Logging    logging.Config   `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	// Personas are added to the default roster, replacing any with the same id.
	Personas []PersonaConfig `yaml:"personas" validate:"dive"`
}

// ActivationConfig controls whether and how the crew is activated.
type ActivationConfig struct {
	UniversalActivation bool   `yaml:"universal_activation"`
	Mode                string `yaml:"mode" validate:"oneof=parallel sequential"`
	FallbackEnabled     bool   `yaml:"fallback_enabled"`
	MaxConcurrency      int    `yaml:"max_concurrency" validate:"gte=0"`
}

// ProcessorConfig bounds a single persona's invocation. MaxAttempts counts
// every attempt, the first included.
type ProcessorConfig struct {
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxAttempts      int           `yaml:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay        time.Duration `yaml:"base_delay" validate:"gte=0"`
	MaxContentLength int           `yaml:"max_content_length" validate:"gte=0"`
	JitterBound      float64       `yaml:"jitter_bound" validate:"gte=0,lte=0.5"`
}

// ConsensusConfig sets the clustering threshold.
type ConsensusConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"gt=0,lte=1"`
}

// DetectorConfig weights must sum to 1.
type DetectorConfig struct {
	Threshold        float64 `yaml:"threshold" validate:"gte=0,lte=1"`
	SemanticWeight   float64 `yaml:"semantic_weight" validate:"gte=0,lte=1"`
	FactualWeight    float64 `yaml:"factual_weight" validate:"gte=0,lte=1"`
	ConfidenceWeight float64 `yaml:"confidence_weight" validate:"gte=0,lte=1"`
}

// MemoryConfig selects where cycle records are kept.
type MemoryConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite badger none"`
	Path   string `yaml:"path" validate:"required_unless=Driver none"`
}

// BackendsConfig maps personas to backends. Route values are backend ids
// such as "openai:gpt-4o" and may contain the {persona} placeholder.
type BackendsConfig struct {
	Default    string                    `yaml:"default" validate:"required"`
	ByCategory map[string]string         `yaml:"by_category" validate:"dive,keys,oneof=technical creative strategic factual conversational,endkeys,required"`
	ByPersona  map[string]string         `yaml:"by_persona" validate:"dive,keys,required,endkeys,required"`
	OpenAI     OpenAIConfig              `yaml:"openai"`
	CodecAddr  string                    `yaml:"codec_addr" validate:"omitempty,hostname_port"`
	Scripts    map[string]backend.Script `yaml:"scripts"`
}

// OpenAIConfig configures the openai backend.
type OpenAIConfig struct {
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url" validate:"omitempty,url"`
	Model        string  `yaml:"model" validate:"required"`
	SystemPrompt string  `yaml:"system_prompt"`
	MaxTokens    int     `yaml:"max_tokens" validate:"gte=0"`
	Temperature  float32 `yaml:"temperature" validate:"gte=0,lte=2"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// PersonaConfig declares a persona to add to the roster.
type PersonaConfig struct {
	ID          string   `yaml:"id" validate:"required"`
	Name        string   `yaml:"name" validate:"required"`
	Description string   `yaml:"description"`
	Expertise   []string `yaml:"expertise"`
}

// #endregion

// #region defaults

// Default returns the configuration used when no file is present.
func Default() Config {
	ac := agent.DefaultConfig()
	oc := orchestrator.DefaultConfig()
	dc := hallucination.DefaultConfig()
	oa := backend.DefaultOpenAIConfig()
	return Config{
		Activation: ActivationConfig{
			UniversalActivation: oc.UniversalActivation,
			Mode:                string(oc.Mode),
			FallbackEnabled:     oc.FallbackEnabled,
			MaxConcurrency:      oc.MaxConcurrency,
		},
		Processor: ProcessorConfig{
			Timeout:          ac.Timeout,
			MaxAttempts:      ac.MaxAttempts,
			BaseDelay:        ac.BaseDelay,
			MaxContentLength: ac.MaxContentLength,
			JitterBound:      ac.JitterBound,
		},
		Consensus: ConsensusConfig{SimilarityThreshold: consensus.DefaultConfig().SimilarityThreshold},
		Detector: DetectorConfig{
			Threshold:        dc.Threshold,
			SemanticWeight:   dc.SemanticWeight,
			FactualWeight:    dc.FactualWeight,
			ConfidenceWeight: dc.ConfidenceWeight,
		},
		Memory: MemoryConfig{Driver: memory.DriverSQLite, Path: "crew_memory.db"},
		Backends: BackendsConfig{
			Default: backend.PrefixOpenAI + ":" + oa.DefaultModel,
			OpenAI: OpenAIConfig{
				BaseURL:      oa.BaseURL,
				Model:        oa.DefaultModel,
				SystemPrompt: oa.SystemPrompt,
				MaxTokens:    oa.MaxTokens,
				Temperature:  oa.Temperature,
			},
		},
		Logging: logging.Config{Level: "info"},
	}
}

// #endregion

// #region load

// Load reads path over the defaults, applies environment overrides and
// validates. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file.
func (c *Config) applyEnvOverrides() error {
	var errs []error
	c.Activation.UniversalActivation = envBool("CREW_UNIVERSAL_ACTIVATION", c.Activation.UniversalActivation, &errs)
	c.Activation.Mode = envOr("CREW_MODE", c.Activation.Mode)
	c.Activation.FallbackEnabled = envBool("CREW_FALLBACK", c.Activation.FallbackEnabled, &errs)
	c.Processor.MaxAttempts = envInt("CREW_MAX_ATTEMPTS", c.Processor.MaxAttempts, &errs)
	c.Processor.Timeout = envDuration("CREW_TIMEOUT", c.Processor.Timeout, &errs)
	c.Memory.Driver = envOr("CREW_MEMORY_DRIVER", c.Memory.Driver)
	c.Memory.Path = envOr("CREW_DB", c.Memory.Path)
	c.Backends.OpenAI.APIKey = envOr("OPENAI_API_KEY", c.Backends.OpenAI.APIKey)
	c.Backends.OpenAI.Model = envOr("OPENAI_MODEL", c.Backends.OpenAI.Model)
	c.Backends.CodecAddr = envOr("CODEC_ADDR", c.Backends.CodecAddr)
	c.Logging.Level = envOr("CREW_LOG_LEVEL", c.Logging.Level)
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func envInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

// #endregion

// #region validate

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateDetectorWeights, DetectorConfig{})
}

const weightTolerance = 1e-6

func validateDetectorWeights(sl validator.StructLevel) {
	d := sl.Current().Interface().(DetectorConfig)
	sum := d.SemanticWeight + d.FactualWeight + d.ConfidenceWeight
	if math.Abs(sum-1) > weightTolerance {
		sl.ReportError(d.ConfidenceWeight, "ConfidenceWeight", "confidence_weight", "weightsum", "")
	}
}

// Validate checks field constraints and that the persona overrides form a
// valid roster.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Roster(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// #endregion

// #region converters

// AgentConfig returns the persona processor settings.
func (c Config) AgentConfig() agent.Config {
	return agent.Config{
		Timeout:          c.Processor.Timeout,
		MaxAttempts:      c.Processor.MaxAttempts,
		BaseDelay:        c.Processor.BaseDelay,
		MaxContentLength: c.Processor.MaxContentLength,
		JitterBound:      c.Processor.JitterBound,
	}
}

// OrchestratorConfig returns the activation settings.
func (c Config) OrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		UniversalActivation: c.Activation.UniversalActivation,
		Mode:                crew.ActivationMode(c.Activation.Mode),
		FallbackEnabled:     c.Activation.FallbackEnabled,
		MaxConcurrency:      c.Activation.MaxConcurrency,
	}
}

// ConsensusConfig returns the consensus builder settings.
func (c Config) ConsensusConfig() consensus.Config {
	return consensus.Config{SimilarityThreshold: c.Consensus.SimilarityThreshold}
}

// DetectorConfig returns the hallucination detector settings.
func (c Config) DetectorConfig() hallucination.Config {
	return hallucination.Config{
		Threshold:        c.Detector.Threshold,
		SemanticWeight:   c.Detector.SemanticWeight,
		FactualWeight:    c.Detector.FactualWeight,
		ConfidenceWeight: c.Detector.ConfidenceWeight,
	}
}

// OpenAIConfig returns the openai invoker settings.
func (c Config) OpenAIConfig() backend.OpenAIConfig {
	o := c.Backends.OpenAI
	return backend.OpenAIConfig{
		APIKey:       o.APIKey,
		BaseURL:      o.BaseURL,
		DefaultModel: o.Model,
		SystemPrompt: o.SystemPrompt,
		MaxTokens:    o.MaxTokens,
		Temperature:  o.Temperature,
	}
}

// Routes returns the backend routing table for the selector.
func (c Config) Routes() backend.Routes {
	r := backend.Routes{Default: c.Backends.Default}
	if len(c.Backends.ByCategory) > 0 {
		r.ByCategory = make(map[backend.Category]string, len(c.Backends.ByCategory))
		for cat, id := range c.Backends.ByCategory {
			r.ByCategory[backend.Category(cat)] = id
		}
	}
	if len(c.Backends.ByPersona) > 0 {
		r.ByPersona = make(map[string]string, len(c.Backends.ByPersona))
		for id, route := range c.Backends.ByPersona {
			r.ByPersona[id] = route
		}
	}
	return r
}

// Roster returns the default crew with the configured personas applied in order.
func (c Config) Roster() (crew.Roster, error) {
	r := crew.DefaultRoster()
	for _, pc := range c.Personas {
		next, err := r.With(crew.Persona{
			ID:          pc.ID,
			Name:        pc.Name,
			Description: pc.Description,
			Expertise:   pc.Expertise,
		})
		if err != nil {
			return crew.Roster{}, fmt.Errorf("persona %q: %w", pc.ID, err)
		}
		r = next
	}
	return r, nil
}

// #endregion
