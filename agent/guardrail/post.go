package guardrail

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
)

// PostGate reviews a draft answer before delivery. Layer 1 applies
// pattern-based redaction unconditionally; layer 2 is a generative
// compliance check that may rewrite the answer. The gate never returns
// an empty response: the last resort is a fixed safe template.
type PostGate struct {
	rules  Ruleset
	runner compose.Runnable[map[string]any, postCheckOutput]
	strict bool
}

var _ contractx.PostGate = (*PostGate)(nil)

type postCheckOutput struct {
	IsSafe            bool   `json:"is_safe"`
	ViolationType     string `json:"violation_type,omitempty"`
	SanitizedResponse string `json:"sanitized_response,omitempty"`
}

var (
	sqlBlockPattern = regexp.MustCompile("(?is)```sql.*?```")
	sqlStmtPattern  = regexp.MustCompile(`(?is)SELECT.*?FROM[^.;\n]*`)
)

func NewPostGate(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	rules Ruleset,
	strict bool,
) (*PostGate, error) {
	runner, err := compileCheckGraph[postCheckOutput](ctx, chatModel, systemPrompt, "guardrail.post_check")
	if err != nil {
		return nil, fmt.Errorf("%w: compile post gate graph: %v", contractx.ErrValidation, err)
	}
	return &PostGate{
		rules:  rules,
		runner: runner,
		strict: strict,
	}, nil
}

func (g *PostGate) Review(ctx context.Context, draft contractx.OutputDraft) (contractx.OutputVerdict, error) {
	sanitized, redacted := g.Sanitize(draft.Answer)

	if redacted && g.strict {
		return contractx.OutputVerdict{}, fmt.Errorf("%w: category=%s", contractx.ErrOutputUnsafe, contractx.ViolationLeakage)
	}

	out, err := g.check(ctx, draft, sanitized)
	if err != nil {
		// The pattern layer already ran; deliver its result rather than
		// blocking on generative availability.
		log.Warn().Err(err).Msg("post-gate compliance check unavailable, delivering pattern-sanitized answer")
		return g.safeVerdict(sanitized, redacted), nil
	}

	if out.IsSafe {
		response := strings.TrimSpace(out.SanitizedResponse)
		if response == "" {
			response = sanitized
		}
		return g.safeVerdict(response, redacted), nil
	}

	if g.strict {
		return contractx.OutputVerdict{}, fmt.Errorf("%w: category=%s", contractx.ErrOutputUnsafe, out.ViolationType)
	}

	response := strings.TrimSpace(out.SanitizedResponse)
	if response == "" {
		response = g.FallbackReply()
	}
	return contractx.OutputVerdict{
		Safe:     false,
		Category: parsePostCategory(out.ViolationType),
		Response: response,
	}, nil
}

// Sanitize applies the unconditional pattern layer: competitor
// substitution and leakage redaction. It is idempotent.
func (g *PostGate) Sanitize(answer string) (string, bool) {
	sanitized := answer
	redacted := false

	lower := strings.ToLower(sanitized)
	for _, competitor := range g.rules.CompetitorKeywords {
		if strings.Contains(lower, competitor) {
			redacted = true
			pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(competitor))
			sanitized = pattern.ReplaceAllString(sanitized, competitorPlaceholder)
			lower = strings.ToLower(sanitized)
		}
	}

	for _, pattern := range g.rules.LeakagePatterns {
		if pattern.MatchString(sanitized) {
			redacted = true
			sanitized = sqlBlockPattern.ReplaceAllString(sanitized, "[query details]")
			sanitized = sqlStmtPattern.ReplaceAllString(sanitized, "[database query]")
		}
	}

	if strings.TrimSpace(sanitized) == "" {
		return g.FallbackReply(), redacted
	}
	return sanitized, redacted
}

// FallbackReply is the fixed safe template used when no compliant
// answer can be produced.
func (g *PostGate) FallbackReply() string {
	return fmt.Sprintf(
		"I wasn't able to put together a complete answer for that just now. "+
			"Please try rephrasing, or reach our support team at %s and they'll help you directly.",
		g.rules.SupportContact,
	)
}

func (g *PostGate) check(ctx context.Context, draft contractx.OutputDraft, sanitized string) (postCheckOutput, error) {
	payload := map[string]any{
		"agent_response":       sanitized,
		"user_query":           draft.Query,
		"response_intent":      draft.IntentHint,
		"max_discount_percent": g.rules.MaxDiscountPercent,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return postCheckOutput{}, fmt.Errorf("%w: marshal post gate payload: %v", contractx.ErrValidation, err)
	}

	out, err := g.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return postCheckOutput{}, fmt.Errorf("post gate invoke: %w", err)
	}
	return out, nil
}

func (g *PostGate) safeVerdict(response string, redacted bool) contractx.OutputVerdict {
	v := contractx.OutputVerdict{Safe: true, Response: response}
	if redacted {
		v.Safe = false
		v.Category = contractx.ViolationLeakage
	}
	if strings.TrimSpace(v.Response) == "" {
		v.Response = g.FallbackReply()
	}
	return v
}

func parsePostCategory(raw string) contractx.ViolationCategory {
	switch contractx.ViolationCategory(strings.ToLower(strings.TrimSpace(raw))) {
	case contractx.ViolationPricing:
		return contractx.ViolationPricing
	case contractx.ViolationLeakage:
		return contractx.ViolationLeakage
	case contractx.ViolationOutOfScope:
		return contractx.ViolationOutOfScope
	case contractx.ViolationSafety:
		return contractx.ViolationSafety
	default:
		return contractx.ViolationSafety
	}
}
