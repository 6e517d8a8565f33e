package guardrail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
)

func newPostGate(t *testing.T, fake *fakeChatModel, strict bool) *PostGate {
	t.Helper()
	gate, err := NewPostGate(context.Background(), fake, "post prompt", DefaultRuleset(), strict)
	if err != nil {
		t.Fatalf("NewPostGate() error = %v", err)
	}
	return gate
}

func TestPostGateSanitizeReplacesCompetitors(t *testing.T) {
	t.Parallel()

	gate := newPostGate(t, &fakeChatModel{}, false)

	sanitized, redacted := gate.Sanitize("You could also check Eventbrite or StubHub for that show.")
	if !redacted {
		t.Fatal("expected redaction flag")
	}
	if strings.Contains(strings.ToLower(sanitized), "eventbrite") ||
		strings.Contains(strings.ToLower(sanitized), "stubhub") {
		t.Fatalf("competitor names survived sanitization: %q", sanitized)
	}
	if !strings.Contains(sanitized, "[external platform]") {
		t.Fatalf("expected placeholder in %q", sanitized)
	}
}

func TestPostGateSanitizeRedactsSQL(t *testing.T) {
	t.Parallel()

	gate := newPostGate(t, &fakeChatModel{}, false)

	sanitized, redacted := gate.Sanitize("Here is the query: SELECT id, name FROM events WHERE city = 'LA'")
	if !redacted {
		t.Fatal("expected redaction flag")
	}
	if strings.Contains(strings.ToUpper(sanitized), "SELECT") {
		t.Fatalf("SQL survived sanitization: %q", sanitized)
	}
}

func TestPostGateSanitizeIsIdempotent(t *testing.T) {
	t.Parallel()

	gate := newPostGate(t, &fakeChatModel{}, false)

	once, _ := gate.Sanitize("Ticketmaster lists it too. SELECT * FROM events;")
	twice, _ := gate.Sanitize(once)
	if once != twice {
		t.Fatalf("sanitize not idempotent:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestPostGateNeverReturnsEmpty(t *testing.T) {
	t.Parallel()

	// The model flags the answer unsafe and offers no rewrite; the gate
	// must fall back to the safe template.
	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"is_safe":false,"violation_type":"pricing_integrity","sanitized_response":""}`},
		},
	}
	gate := newPostGate(t, fake, false)

	verdict, err := gate.Review(context.Background(), contractx.OutputDraft{
		Answer: "We will give you 90% off every ticket forever!",
		Query:  "any discounts?",
	})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if strings.TrimSpace(verdict.Response) == "" {
		t.Fatal("post-gate returned an empty response")
	}
	if verdict.Safe {
		t.Fatal("expected unsafe verdict")
	}
	if verdict.Category != contractx.ViolationPricing {
		t.Fatalf("category = %s, want pricing_integrity", verdict.Category)
	}
	if !strings.Contains(verdict.Response, "info@showeasy.ai") {
		t.Fatalf("fallback should reference support contact, got %q", verdict.Response)
	}
}

func TestPostGateUsesModelRewrite(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"is_safe":false,"violation_type":"pricing_integrity","sanitized_response":"Premium members save 20% on all tickets."}`},
		},
	}
	gate := newPostGate(t, fake, false)

	verdict, err := gate.Review(context.Background(), contractx.OutputDraft{
		Answer: "Members save 75% on everything!",
		Query:  "member discount?",
	})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if verdict.Response != "Premium members save 20% on all tickets." {
		t.Fatalf("unexpected response: %q", verdict.Response)
	}
}

func TestPostGateDeliversOnModelError(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("provider down")}
	gate := newPostGate(t, fake, false)

	verdict, err := gate.Review(context.Background(), contractx.OutputDraft{
		Answer: "The jazz festival runs Friday through Sunday.",
		Query:  "when is the jazz festival?",
	})
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if verdict.Response != "The jazz festival runs Friday through Sunday." {
		t.Fatalf("unexpected response: %q", verdict.Response)
	}
	if !verdict.Safe {
		t.Fatal("clean answer should stay safe when the compliance model is down")
	}
}

func TestPostGateStrictModeReturnsTypedError(t *testing.T) {
	t.Parallel()

	gate := newPostGate(t, &fakeChatModel{}, true)

	_, err := gate.Review(context.Background(), contractx.OutputDraft{
		Answer: "Our database schema has a users table.",
	})
	if !errors.Is(err, contractx.ErrOutputUnsafe) {
		t.Fatalf("Review() error = %v, want ErrOutputUnsafe", err)
	}
}
