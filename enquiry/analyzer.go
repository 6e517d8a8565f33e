// Package enquiry handles the organizer side of booking enquiries:
// recording replies and turning them into customer-ready messages.
package enquiry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/showeasy/concierge/agent/contract"
)

// Outcome classifies what the organizer's reply means for the
// customer.
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeDeclined Outcome = "declined"
	OutcomeUnclear  Outcome = "unclear"
)

// Analysis is the structured reading of one organizer reply.
type Analysis struct {
	Outcome         Outcome `json:"outcome"`
	CustomerMessage string  `json:"customer_message"`
}

// Analyzer reads an organizer's raw reply and drafts the message the
// customer sees, through a direct completion outside the chat graphs.
type Analyzer struct {
	client       *openaisdk.Client
	model        string
	systemPrompt string
}

func NewAnalyzer(client *openaisdk.Client, model, systemPrompt string) *Analyzer {
	return &Analyzer{client: client, model: model, systemPrompt: systemPrompt}
}

// ReplyInput is the context the analyzer works from.
type ReplyInput struct {
	EventName       string
	CustomerMessage string
	OrganizerReply  string
}

func (a *Analyzer) Analyze(ctx context.Context, in ReplyInput) (Analysis, error) {
	if a.client == nil {
		return Analysis{}, fmt.Errorf("%w: analyzer has no client", contractx.ErrValidation)
	}

	payload, err := json.Marshal(map[string]string{
		"event_name":        in.EventName,
		"customer_question": in.CustomerMessage,
		"organizer_reply":   in.OrganizerReply,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("encode reply input: %w", err)
	}

	resp, err := a.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(a.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(a.systemPrompt),
			openaisdk.UserMessage(string(payload)),
		},
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: analyze reply: %v", contractx.ErrProviderFailure, err)
	}
	if len(resp.Choices) == 0 {
		return Analysis{}, fmt.Errorf("%w: analyze reply: empty completion", contractx.ErrProviderFailure)
	}

	analysis, err := parseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return Analysis{}, err
	}
	return analysis, nil
}

// parseAnalysis tolerates fenced or prefixed JSON, which chat models
// produce even when told not to.
func parseAnalysis(content string) (Analysis, error) {
	trimmed := strings.TrimSpace(content)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(trimmed), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("%w: decode analysis: %v", contractx.ErrSchemaViolation, err)
	}
	switch analysis.Outcome {
	case OutcomeAnswered, OutcomeDeclined, OutcomeUnclear:
	default:
		analysis.Outcome = OutcomeUnclear
	}
	if strings.TrimSpace(analysis.CustomerMessage) == "" {
		return Analysis{}, fmt.Errorf("%w: analysis has no customer message", contractx.ErrSchemaViolation)
	}
	return analysis, nil
}
