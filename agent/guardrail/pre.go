package guardrail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
)

// PreGate validates user input before any reasoning runs. Layer 1 is a
// deterministic denylist scan with no model call; layer 2 is a
// generative classification. Pattern hits fail closed, generative
// uncertainty fails open.
type PreGate struct {
	rules  Ruleset
	runner compose.Runnable[map[string]any, preCheckOutput]
	strict bool
}

var _ contractx.PreGate = (*PreGate)(nil)

type preCheckOutput struct {
	IsValid             bool   `json:"is_valid"`
	ViolationType       string `json:"violation_type,omitempty"`
	UserFriendlyMessage string `json:"user_friendly_message,omitempty"`
}

func NewPreGate(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	rules Ruleset,
	strict bool,
) (*PreGate, error) {
	runner, err := compileCheckGraph[preCheckOutput](ctx, chatModel, systemPrompt, "guardrail.pre_check")
	if err != nil {
		return nil, fmt.Errorf("%w: compile pre gate graph: %v", contractx.ErrValidation, err)
	}
	return &PreGate{
		rules:  rules,
		runner: runner,
		strict: strict,
	}, nil
}

func (g *PreGate) Check(ctx context.Context, in contractx.GateInput) (contractx.InputVerdict, error) {
	if verdict, hit := g.patternCheck(in.Message); hit {
		return g.verdict(verdict)
	}

	out, err := g.classify(ctx, in)
	if err != nil {
		// Generative uncertainty never blocks a legitimate user.
		log.Warn().Err(err).Msg("pre-gate classification unavailable, failing open")
		return contractx.InputVerdict{Valid: true}, nil
	}

	if out.IsValid {
		return contractx.InputVerdict{Valid: true}, nil
	}

	cat := parseCategory(out.ViolationType)
	if cat == contractx.ViolationNone {
		// Unknown category from the model: treat as valid.
		return contractx.InputVerdict{Valid: true}, nil
	}

	msg := strings.TrimSpace(out.UserFriendlyMessage)
	if msg == "" {
		msg = g.rules.redirectFor(cat)
	}
	return g.verdict(contractx.InputVerdict{Valid: false, Category: cat, Message: msg})
}

// patternCheck is the layer-1 denylist scan. O(pattern count) string
// containment, zero model calls.
func (g *PreGate) patternCheck(message string) (contractx.InputVerdict, bool) {
	lower := strings.ToLower(message)

	for _, pattern := range g.rules.InjectionPatterns {
		if strings.Contains(lower, pattern) {
			return contractx.InputVerdict{
				Valid:    false,
				Category: contractx.ViolationPromptInjection,
				Message:  g.rules.redirectFor(contractx.ViolationPromptInjection),
			}, true
		}
	}

	for _, keyword := range g.rules.CompetitorKeywords {
		if strings.Contains(lower, keyword) {
			return contractx.InputVerdict{
				Valid:    false,
				Category: contractx.ViolationOutOfScope,
				Message:  g.rules.redirectFor(contractx.ViolationOutOfScope),
			}, true
		}
	}

	return contractx.InputVerdict{}, false
}

func (g *PreGate) classify(ctx context.Context, in contractx.GateInput) (preCheckOutput, error) {
	payload := map[string]any{
		"user_message":          in.Message,
		"previous_conversation": in.Window,
		"page_context":          in.PageContext,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return preCheckOutput{}, fmt.Errorf("%w: marshal pre gate payload: %v", contractx.ErrValidation, err)
	}

	out, err := g.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return preCheckOutput{}, fmt.Errorf("pre gate invoke: %w", err)
	}
	return out, nil
}

// verdict applies the strict-mode switch: violations become typed
// errors instead of advisory verdicts.
func (g *PreGate) verdict(v contractx.InputVerdict) (contractx.InputVerdict, error) {
	if !v.Valid && g.strict {
		return contractx.InputVerdict{}, fmt.Errorf("%w: category=%s", contractx.ErrInputRejected, v.Category)
	}
	return v, nil
}

func parseCategory(raw string) contractx.ViolationCategory {
	switch contractx.ViolationCategory(strings.ToLower(strings.TrimSpace(raw))) {
	case contractx.ViolationPromptInjection:
		return contractx.ViolationPromptInjection
	case contractx.ViolationOutOfScope:
		return contractx.ViolationOutOfScope
	case contractx.ViolationSafety:
		return contractx.ViolationSafety
	case contractx.ViolationPIIRisk:
		return contractx.ViolationPIIRisk
	default:
		return contractx.ViolationNone
	}
}
