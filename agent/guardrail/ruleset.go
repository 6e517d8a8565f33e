package guardrail

import (
	"regexp"

	contractx "github.com/showeasy/concierge/agent/contract"
)

// Ruleset is the static policy surface both gates evaluate against.
// It is configuration, never mutated at request time.
type Ruleset struct {
	// InjectionPatterns are matched by containment against lowercased
	// input; a hit is a precise, cheap fail-closed decision.
	InjectionPatterns []string
	// CompetitorKeywords flag out-of-scope input and are redacted from
	// output.
	CompetitorKeywords []string
	// LeakagePatterns match output that resembles system internals.
	LeakagePatterns []*regexp.Regexp

	// RedirectMessages are the user-facing replies per violation
	// category when the pre-gate rejects input.
	RedirectMessages map[contractx.ViolationCategory]string

	// MaxDiscountPercent is the authorized discount ceiling; answers
	// claiming more are a pricing-integrity violation.
	MaxDiscountPercent int

	// SupportContact is appended to fallback replies.
	SupportContact string
}

const competitorPlaceholder = "[external platform]"

// DefaultRuleset returns the production policy.
func DefaultRuleset() Ruleset {
	return Ruleset{
		InjectionPatterns: []string{
			"ignore previous instructions",
			"ignore all previous",
			"forget everything",
			"system prompt",
			"you are now",
			"act as a",
			"pretend you are",
			"roleplay as",
			"your instructions are",
			"disregard all",
			"new instructions:",
			"admin mode",
			"developer mode",
			"jailbreak",
		},
		CompetitorKeywords: []string{
			"eventbrite",
			"ticketmaster",
			"stubhub",
			"seatgeek",
			"vivid seats",
			"ticketek",
			"axs.com",
			"ticketfly",
		},
		LeakagePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)SELECT\s+.*\s+FROM`),
			regexp.MustCompile("(?i)```sql"),
			regexp.MustCompile(`(?i)database schema`),
			regexp.MustCompile(`(?i)system prompt`),
			regexp.MustCompile(`(?i)api[_\s]?key`),
			regexp.MustCompile(`(?i)token:`),
			regexp.MustCompile(`(?i)password:`),
			regexp.MustCompile(`(?i)secret:`),
			regexp.MustCompile(`(?i)connection string`),
		},
		RedirectMessages: map[contractx.ViolationCategory]string{
			contractx.ViolationPromptInjection: "I'm here to help you discover events and manage your tickets! Let me know what you're looking for.",
			contractx.ViolationOutOfScope:      "I specialize in helping you find events on our platform! What kind of events are you interested in?",
			contractx.ViolationSafety:          "I can't help with that, but I'd love to help you find events, tickets, or membership info!",
			contractx.ViolationPIIRisk:         "For your privacy, please avoid sharing sensitive personal details here. How can I help with events or tickets?",
		},
		MaxDiscountPercent: 20,
		SupportContact:     "info@showeasy.ai",
	}
}

// StrictRuleset extends the default policy with a wider injection net.
// Used by experiment variants that trade recall for precision.
func StrictRuleset() Ruleset {
	rs := DefaultRuleset()
	rs.InjectionPatterns = append(rs.InjectionPatterns,
		"reveal your",
		"show your instructions",
		"repeat the words above",
		"output your configuration",
	)
	return rs
}

// redirectFor resolves a category to its redirect message, falling
// back to the out-of-scope wording for categories without one.
func (r Ruleset) redirectFor(cat contractx.ViolationCategory) string {
	if msg, ok := r.RedirectMessages[cat]; ok {
		return msg
	}
	return r.RedirectMessages[contractx.ViolationOutOfScope]
}
