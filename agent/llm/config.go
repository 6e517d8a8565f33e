// Package llm maps pipeline modules and experiment variants onto
// concrete model configurations.
package llm

import (
	"time"

	"github.com/showeasy/concierge/agent/variant"
	"github.com/showeasy/concierge/pkg/openrouter"
)

// Config tunes which models the pipeline modules run on and how the
// reasoning loop is bounded. Unset model names fall back to the base
// OpenRouter model.
type Config struct {
	AgentModel       string  `envconfig:"AGENT_MODEL" split_words:"true"`
	AgentTemperature float32 `envconfig:"AGENT_TEMPERATURE" split_words:"true" default:"0.3"`

	GuardrailModel       string  `envconfig:"GUARDRAIL_MODEL" split_words:"true"`
	GuardrailTemperature float32 `envconfig:"GUARDRAIL_TEMPERATURE" split_words:"true" default:"0"`

	// AltModel backs the challenger arm of the agent experiment.
	AltModel       string  `envconfig:"ALT_MODEL" split_words:"true"`
	AltTemperature float32 `envconfig:"ALT_TEMPERATURE" split_words:"true" default:"0.5"`

	MaxIterations   int           `envconfig:"MAX_ITERATIONS" split_words:"true" default:"10"`
	RepeatThreshold int           `envconfig:"REPEAT_THRESHOLD" split_words:"true" default:"2"`
	ProviderRetries int           `envconfig:"PROVIDER_RETRIES" split_words:"true" default:"2"`
	RetryBackoff    time.Duration `envconfig:"RETRY_BACKOFF" split_words:"true" default:"500ms"`

	StrictPreGate  bool `envconfig:"STRICT_PRE_GATE" split_words:"true" default:"false"`
	StrictPostGate bool `envconfig:"STRICT_POST_GATE" split_words:"true" default:"false"`
}

// GuardrailProvider returns the provider config the gate classifiers
// run on: low temperature, guardrail model when one is set.
func (c Config) GuardrailProvider(base openrouter.Config) openrouter.Config {
	out := base
	if c.GuardrailModel != "" {
		out.Model = c.GuardrailModel
	}
	out.Temperature = c.GuardrailTemperature
	return out
}

// AgentProvider returns the provider config the reasoning loop runs
// on for the given variant. The challenger arm swaps in the alternate
// model when one is configured.
func (c Config) AgentProvider(base openrouter.Config, v variant.Variant) openrouter.Config {
	out := base
	if c.AgentModel != "" {
		out.Model = c.AgentModel
	}
	out.Temperature = c.AgentTemperature
	if v == variant.VariantA && c.AltModel != "" {
		out.Model = c.AltModel
		out.Temperature = c.AltTemperature
	}
	return out
}

// LoopBounds are the ceilings handed to one loop build.
type LoopBounds struct {
	MaxIterations   int
	RepeatThreshold int
	ProviderRetries int
	RetryBackoff    time.Duration
}

// LoopBoundsFor returns the loop ceilings for a variant. The tighter
// arm trades answer depth for latency.
func (c Config) LoopBoundsFor(v variant.Variant) LoopBounds {
	bounds := LoopBounds{
		MaxIterations:   c.MaxIterations,
		RepeatThreshold: c.RepeatThreshold,
		ProviderRetries: c.ProviderRetries,
		RetryBackoff:    c.RetryBackoff,
	}
	if v == variant.VariantB {
		bounds.MaxIterations = min(bounds.MaxIterations, 6)
		bounds.RepeatThreshold = 1
	}
	return bounds
}
