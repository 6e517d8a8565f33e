package nodes

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/agent/memory"
	"github.com/showeasy/concierge/agent/variant"
)

// maxMessageLen caps inbound messages before any model sees them.
const maxMessageLen = 4000

// ValidateRequest normalizes the inbound request, rejects unusable
// ones, and pins this caller's experiment arms for the rest of the
// request.
func ValidateRequest(req contractx.ChatRequest, experiments variant.Config) (*State, error) {
	message := strings.TrimSpace(req.Message)
	sessionID := strings.TrimSpace(req.SessionID)
	userID := strings.TrimSpace(req.UserID)

	if message == "" {
		return nil, fmt.Errorf("%w: empty message", contractx.ErrValidation)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", contractx.ErrValidation)
	}
	if len(message) > maxMessageLen {
		message = truncateRunes(message, maxMessageLen)
	}

	callerID := userID
	if callerID == "" {
		callerID = sessionID
	}
	assignments := make(map[string]variant.Variant, 3)
	for _, module := range []string{variant.ModulePreGuardrails, variant.ModulePostGuardrails, variant.ModuleAgent} {
		assignments[module] = variant.Assign(callerID, module, experiments.For(module))
	}

	return &State{
		SessionID:   sessionID,
		UserID:      userID,
		Message:     message,
		PageContext: strings.TrimSpace(req.PageContext),
		Assignments: assignments,
	}, nil
}

// ReadMemory loads the session window and the user's long-term digest
// before any gating, so the pre-gate sees conversational context.
func ReadMemory(ctx context.Context, st *State, fanin *memory.Fanin) (*State, error) {
	bundle, err := fanin.BuildContext(ctx, st.SessionID, st.UserID, st.Message)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}
	st.Bundle = bundle
	return st, nil
}

// PreCheck screens the message before the reasoning loop runs.
func PreCheck(ctx context.Context, st *State, gates map[variant.Variant]contractx.PreGate) (*State, error) {
	gate := gates[st.variantFor(variant.ModulePreGuardrails)]
	if gate == nil {
		gate = gates[variant.Control]
	}
	verdict, err := gate.Check(ctx, contractx.GateInput{
		Message:     st.Message,
		Window:      st.Bundle.Window,
		PageContext: st.PageContext,
	})
	if err != nil {
		return nil, err
	}
	st.Verdict = verdict
	return st, nil
}

// RunAgent executes the reasoning loop for an accepted message.
func RunAgent(ctx context.Context, st *State, agents map[variant.Variant]contractx.Agent) (*State, error) {
	agent := agents[st.variantFor(variant.ModuleAgent)]
	if agent == nil {
		agent = agents[variant.Control]
	}
	ctx = contractx.WithRequestMeta(ctx, contractx.RequestMeta{
		SessionID: st.SessionID,
		UserID:    st.UserID,
	})
	resp, err := agent.Run(ctx, contractx.AgentRequest{
		Message:     st.Message,
		Window:      st.Bundle.Window,
		Digest:      st.Bundle.Digest,
		PageContext: st.PageContext,
	})
	if err != nil {
		return nil, err
	}
	st.AgentResponse = resp
	return st, nil
}

// PostCheck reviews the draft answer and settles the deliverable
// reply.
func PostCheck(ctx context.Context, st *State, gates map[variant.Variant]contractx.PostGate) (*State, error) {
	gate := gates[st.variantFor(variant.ModulePostGuardrails)]
	if gate == nil {
		gate = gates[variant.Control]
	}
	verdict, err := gate.Review(ctx, contractx.OutputDraft{
		Answer:     st.AgentResponse.Answer,
		Query:      st.Message,
		IntentHint: st.AgentResponse.IntentHint,
	})
	if err != nil {
		return nil, err
	}
	if !verdict.Safe {
		log.Info().Str("category", string(verdict.Category)).Msg("answer sanitized before delivery")
	}
	st.FinalReply = verdict.Response
	return st, nil
}

// Redirect turns a pre-gate rejection into the user-facing reply. The
// reasoning loop never runs on this path.
func Redirect(st *State) (*State, error) {
	log.Info().Str("category", string(st.Verdict.Category)).Msg("message redirected by pre-gate")
	st.FinalReply = st.Verdict.Message
	return st, nil
}

// WriteMemory persists the finished exchange once gating has settled
// the reply; write-back never blocks or fails the response.
func WriteMemory(ctx context.Context, st *State, fanin *memory.Fanin) (*State, error) {
	fanin.WriteBack(ctx, st.SessionID, st.UserID,
		contractx.ConversationTurn{Role: contractx.RoleUser, Content: st.Message},
		contractx.ConversationTurn{Role: contractx.RoleAssistant, Content: st.FinalReply},
	)
	return st, nil
}

// truncateRunes cuts s to at most max bytes, backing up so the cut
// never lands inside a multi-byte rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// FinalizeReply shapes the boundary response.
func FinalizeReply(st *State) (contractx.ChatReply, error) {
	if strings.TrimSpace(st.FinalReply) == "" {
		return contractx.ChatReply{}, fmt.Errorf("%w: empty final reply", contractx.ErrValidation)
	}
	return contractx.ChatReply{Answer: st.FinalReply}, nil
}
