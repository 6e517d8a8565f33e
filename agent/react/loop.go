// Package react runs the bounded reason-act-observe loop: the model
// picks a tool, the registry executes it, the observation feeds the
// next step, until the model answers or a ceiling trips.
package react

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
)

// Gateway is the tool surface the loop drives: execution plus the
// descriptors bound to the model.
type Gateway interface {
	contractx.ToolGateway
	Infos() []*schema.ToolInfo
}

type Config struct {
	// MaxIterations is the hard ceiling on reasoning steps.
	MaxIterations int
	// RepeatThreshold is how many identical tool calls are tolerated
	// before the loop is declared stalled.
	RepeatThreshold int
	// ProviderRetries is how many times a failed model call is retried
	// before the execution fails.
	ProviderRetries int
	RetryBackoff    time.Duration
	// SupportContact lands in degraded answers so the user always has
	// a next step.
	SupportContact string
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	if c.RepeatThreshold <= 0 {
		c.RepeatThreshold = 2
	}
	if c.ProviderRetries < 0 {
		c.ProviderRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.SupportContact == "" {
		c.SupportContact = "info@showeasy.ai"
	}
	return c
}

// Loop is one configured reasoning loop. It is stateless across runs;
// all per-execution state lives in Run.
type Loop struct {
	model    model.ToolCallingChatModel
	tools    Gateway
	template einoprompt.ChatTemplate
	cfg      Config
}

var _ contractx.Agent = (*Loop)(nil)

func New(chatModel model.ToolCallingChatModel, tools Gateway, systemPrompt string, cfg Config) (*Loop, error) {
	bound, err := chatModel.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	template := einoprompt.FromMessages(schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{user_message}"),
	)
	return &Loop{
		model:    bound,
		tools:    tools,
		template: template,
		cfg:      cfg.withDefaults(),
	}, nil
}

// Run executes the loop for one request. The returned response carries
// a non-empty answer for every terminal state except LoopFailed.
func (l *Loop) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	messages, err := l.template.Format(ctx, map[string]any{
		"memory_digest": orNone(req.Digest),
		"page_context":  orNone(req.PageContext),
		"history":       historyMessages(req.Window),
		"user_message":  req.Message,
	})
	if err != nil {
		return contractx.AgentResponse{Terminal: contractx.LoopFailed}, fmt.Errorf("format prompt: %w", err)
	}

	writeBudget := make(map[string]bool, 1)
	for _, name := range l.tools.WriteTools() {
		writeBudget[name] = false
	}
	repeats := make(map[string]int)
	var steps contractx.Trajectory
	var lastFinding string

	for i := 0; i < l.cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			log.Warn().Int("iteration", i).Msg("deadline hit at iteration boundary")
			return l.degraded(contractx.LoopStalled, steps, lastFinding), nil
		}

		msg, err := l.generate(ctx, messages)
		if err != nil {
			// A deadline firing mid-call is a caller timeout, not a
			// provider fault; it exits the same way as the boundary check.
			if ctx.Err() != nil {
				log.Warn().Int("iteration", i).Msg("deadline hit during model call")
				return l.degraded(contractx.LoopStalled, steps, lastFinding), nil
			}
			return contractx.AgentResponse{Steps: steps, Terminal: contractx.LoopFailed},
				fmt.Errorf("%w: %v", contractx.ErrProviderFailure, err)
		}

		if len(msg.ToolCalls) == 0 {
			answer := strings.TrimSpace(msg.Content)
			if answer == "" {
				return l.degraded(contractx.LoopStalled, steps, lastFinding), nil
			}
			return contractx.AgentResponse{
				Answer:     answer,
				IntentHint: intentHint(steps),
				Steps:      steps,
				Terminal:   contractx.LoopFinished,
			}, nil
		}

		call := msg.ToolCalls[0]
		args, argsErr := decodeArgs(call.Function.Arguments)
		signature := callSignature(call.Function.Name, args)
		repeats[signature]++
		if repeats[signature] > l.cfg.RepeatThreshold {
			log.Warn().Str("tool", call.Function.Name).Msg("repeated identical tool call, stalling loop")
			return l.degraded(contractx.LoopStalled, steps, lastFinding), nil
		}

		messages = append(messages, msg)

		observation := l.observe(ctx, call.Function.Name, args, argsErr, writeBudget, &lastFinding)
		if repeats[signature] == l.cfg.RepeatThreshold {
			observation += "\nYou already made this exact call. Do not repeat it; answer with what you know or try a different tool."
		}

		steps = append(steps, contractx.TrajectoryStep{
			Thought:     strings.TrimSpace(msg.Content),
			Tool:        call.Function.Name,
			Args:        args,
			Observation: observation,
		})
		messages = append(messages, schema.ToolMessage(observation, call.ID))
	}

	log.Warn().Int("max_iterations", l.cfg.MaxIterations).Msg("iteration ceiling reached")
	return l.degraded(contractx.LoopLimitReached, steps, lastFinding), nil
}

// observe runs one tool call and renders its outcome as the next
// observation. Tool-level failures never abort the loop; they are fed
// back so the model can adjust.
func (l *Loop) observe(ctx context.Context, name string, args map[string]any, argsErr error, writeBudget map[string]bool, lastFinding *string) string {
	if argsErr != nil {
		return fmt.Sprintf("invalid arguments for %s: %v", name, argsErr)
	}
	if used, isWrite := writeBudget[name]; isWrite && used {
		return fmt.Sprintf("%s already ran in this turn; tell the user it is done instead of calling it again", name)
	}

	result, err := l.tools.Execute(ctx, contractx.ToolRequest{Tool: name, Args: args})
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("tool execution failed")
		return fmt.Sprintf("tool error: %v", err)
	}
	if _, isWrite := writeBudget[name]; isWrite {
		writeBudget[name] = true
	}

	observation := renderFields(result.Fields)
	if name != "thinking" && result.Fields["status"] == "ok" {
		*lastFinding = observation
	}
	return observation
}

// degraded builds the best-effort answer for stalled, deadline, and
// ceiling exits. It is never empty.
func (l *Loop) degraded(terminal contractx.TerminalState, steps contractx.Trajectory, lastFinding string) contractx.AgentResponse {
	answer := "I wasn't able to fully answer that just now. Please try rephrasing, or reach us at " + l.cfg.SupportContact + " and we'll follow up."
	if lastFinding != "" {
		answer = "I couldn't finish working through that, but here is what I found:\n" + lastFinding
	}
	return contractx.AgentResponse{
		Answer:     answer,
		IntentHint: intentHint(steps),
		Steps:      steps,
		Terminal:   terminal,
	}
}

func (l *Loop) generate(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	var lastErr error
	for attempt := 0; attempt <= l.cfg.ProviderRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}
		msg, err := l.model.Generate(ctx, messages)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("model call failed")
	}
	return nil, lastErr
}

func decodeArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	return args, nil
}

// callSignature canonicalizes a tool call for repeat detection;
// json.Marshal sorts map keys, so equal argument sets collide.
func callSignature(name string, args map[string]any) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		return name
	}
	return name + ":" + string(encoded)
}

func renderFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "no result"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, fields[k])
	}
	return strings.TrimSpace(b.String())
}

func historyMessages(window contractx.TurnWindow) []*schema.Message {
	messages := make([]*schema.Message, 0, len(window))
	for _, turn := range window {
		switch turn.Role {
		case contractx.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(turn.Content))
		}
	}
	return messages
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

var intentByTool = map[string]string{
	"search_event":     "Search Event",
	"membership_info":  "Membership Inquiry",
	"ticket_info":      "Ticket Inquiry",
	"booking_enquiry":  "Ticket Purchase Help",
	"document_summary": "General Question",
	"document_detail":  "General Question",
	"general_help":     "General Question",
}

// intentHint names the kind of request the execution served, derived
// from the last substantive tool used.
func intentHint(steps contractx.Trajectory) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if hint, ok := intentByTool[steps[i].Tool]; ok {
			return hint
		}
	}
	return "General Question"
}
