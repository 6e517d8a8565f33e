// Package orchestrator assembles the chat pipeline: memory fan-in,
// pre-gate, bounded reasoning loop, post-gate, and memory write-back,
// compiled into one graph per service instance.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/agent/guardrail"
	"github.com/showeasy/concierge/agent/llm"
	"github.com/showeasy/concierge/agent/memory"
	promptx "github.com/showeasy/concierge/agent/prompt"
	"github.com/showeasy/concierge/agent/react"
	"github.com/showeasy/concierge/agent/variant"
	"github.com/showeasy/concierge/pkg/openrouter"
)

// Deps are the collaborators a Service is built from.
type Deps struct {
	Provider    openrouter.Config
	LLM         llm.Config
	Experiments variant.Config
	Prompts     promptx.PromptSet
	Tools       react.Gateway
	Fanin       *memory.Fanin
}

// Service runs chat requests through the compiled pipeline graph.
// Gates and loops are pre-built per experiment arm at construction so
// request handling never builds models.
type Service struct {
	runner      compose.Runnable[contractx.ChatRequest, contractx.ChatReply]
	fanin       *memory.Fanin
	experiments variant.Config
	preGates    map[variant.Variant]contractx.PreGate
	postGates   map[variant.Variant]contractx.PostGate
	agents      map[variant.Variant]contractx.Agent
}

func NewService(ctx context.Context, deps Deps) (*Service, error) {
	s := &Service{
		fanin:       deps.Fanin,
		experiments: deps.Experiments,
		preGates:    make(map[variant.Variant]contractx.PreGate),
		postGates:   make(map[variant.Variant]contractx.PostGate),
		agents:      make(map[variant.Variant]contractx.Agent),
	}

	guardProvider := deps.LLM.GuardrailProvider(deps.Provider)
	guardModel, err := guardProvider.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("build guardrail model: %w", err)
	}

	for _, v := range variant.Variants() {
		rules := guardrail.DefaultRuleset()
		if v == variant.VariantB {
			rules = guardrail.StrictRuleset()
		}

		pre, err := guardrail.NewPreGate(ctx, guardModel, deps.Prompts.PreGuardrail, rules, deps.LLM.StrictPreGate)
		if err != nil {
			return nil, fmt.Errorf("build pre gate %s: %w", v, err)
		}
		s.preGates[v] = pre

		post, err := guardrail.NewPostGate(ctx, guardModel, deps.Prompts.PostGuardrail, rules, deps.LLM.StrictPostGate)
		if err != nil {
			return nil, fmt.Errorf("build post gate %s: %w", v, err)
		}
		s.postGates[v] = post

		agentProvider := deps.LLM.AgentProvider(deps.Provider, v)
		agentModel, err := agentProvider.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("build agent model %s: %w", v, err)
		}
		bounds := deps.LLM.LoopBoundsFor(v)
		loop, err := react.New(agentModel, deps.Tools, deps.Prompts.Agent, react.Config{
			MaxIterations:   bounds.MaxIterations,
			RepeatThreshold: bounds.RepeatThreshold,
			ProviderRetries: bounds.ProviderRetries,
			RetryBackoff:    bounds.RetryBackoff,
			SupportContact:  rules.SupportContact,
		})
		if err != nil {
			return nil, fmt.Errorf("build loop %s: %w", v, err)
		}
		s.agents[v] = loop

		log.Debug().
			Str("variant", string(v)).
			Str("agent_model", agentProvider.Model).
			Int("max_iterations", bounds.MaxIterations).
			Msg("pipeline arm ready")
	}

	runner, err := s.compileChatGraph(ctx)
	if err != nil {
		return nil, err
	}
	s.runner = runner
	return s, nil
}

// Chat handles one inbound message end to end.
func (s *Service) Chat(ctx context.Context, req contractx.ChatRequest) (contractx.ChatReply, error) {
	reply, err := s.runner.Invoke(ctx, req)
	if err != nil {
		return contractx.ChatReply{}, err
	}
	return reply, nil
}

// Close drains pending memory write-backs.
func (s *Service) Close() {
	if s.fanin != nil {
		s.fanin.Close()
	}
}
