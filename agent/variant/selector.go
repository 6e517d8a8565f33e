// Package variant implements deterministic per-caller experiment
// assignment. Assignment is a pure function of (caller, module, ratios):
// the same caller always lands in the same variant for a module, and
// assignments across modules are uncorrelated.
package variant

import (
	"hash/fnv"
	"strings"
)

type Variant string

const (
	Control  Variant = "control"
	VariantA Variant = "variant_a"
	VariantB Variant = "variant_b"
)

// Module names with swappable configurations.
const (
	ModulePreGuardrails  = "pre_guardrails"
	ModulePostGuardrails = "post_guardrails"
	ModuleAgent          = "agent"
)

// Variants lists every assignable variant, control first.
func Variants() []Variant {
	return []Variant{Control, VariantA, VariantB}
}

// ModuleConfig holds the experiment split for one module. Ratios are
// fractions of the population; the remainder stays on control.
type ModuleConfig struct {
	Enabled bool    `envconfig:"ENABLED" split_words:"true" default:"false"`
	RatioA  float64 `envconfig:"RATIO_A" split_words:"true" default:"0"`
	RatioB  float64 `envconfig:"RATIO_B" split_words:"true" default:"0"`
}

// Config carries the per-module experiment configuration, consumed
// once at service construction.
type Config struct {
	PreGuardrails  ModuleConfig `envconfig:"PRE_GUARDRAILS" split_words:"true"`
	PostGuardrails ModuleConfig `envconfig:"POST_GUARDRAILS" split_words:"true"`
	Agent          ModuleConfig `envconfig:"AGENT" split_words:"true"`
}

// For returns the module config by module name.
func (c Config) For(module string) ModuleConfig {
	switch module {
	case ModulePreGuardrails:
		return c.PreGuardrails
	case ModulePostGuardrails:
		return c.PostGuardrails
	case ModuleAgent:
		return c.Agent
	default:
		return ModuleConfig{}
	}
}

const buckets = 10000

// Assign maps a caller to a variant for one module. Hashing module and
// caller together keeps per-module assignments independent for the
// same caller. Empty caller IDs and disabled modules get control.
func Assign(callerID, module string, cfg ModuleConfig) Variant {
	callerID = strings.TrimSpace(callerID)
	if !cfg.Enabled || callerID == "" {
		return Control
	}

	cutA := int(cfg.RatioA * buckets)
	cutB := cutA + int(cfg.RatioB*buckets)
	if cutB > buckets {
		cutB = buckets
	}

	h := fnv.New32a()
	h.Write([]byte(module))
	h.Write([]byte{':'})
	h.Write([]byte(callerID))
	bucket := int(h.Sum32() % buckets)

	switch {
	case bucket < cutA:
		return VariantA
	case bucket < cutB:
		return VariantB
	default:
		return Control
	}
}
