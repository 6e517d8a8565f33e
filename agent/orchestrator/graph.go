package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/showeasy/concierge/agent/contract"
	nodex "github.com/showeasy/concierge/agent/nodes"
)

func (s *Service) compileChatGraph(ctx context.Context) (compose.Runnable[contractx.ChatRequest, contractx.ChatReply], error) {
	graph := compose.NewGraph[contractx.ChatRequest, contractx.ChatReply]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in contractx.ChatRequest) (*nodex.State, error) {
			return nodex.ValidateRequest(in, s.experiments)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("read_memory",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.State) (*nodex.State, error) {
			return nodex.ReadMemory(ctx, in, s.fanin)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node read_memory: %w", err)
	}

	if err := graph.AddLambdaNode("pre_gate",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.State) (*nodex.State, error) {
			return nodex.PreCheck(ctx, in, s.preGates)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node pre_gate: %w", err)
	}

	if err := graph.AddLambdaNode("run_agent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.State) (*nodex.State, error) {
			return nodex.RunAgent(ctx, in, s.agents)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_agent: %w", err)
	}

	if err := graph.AddLambdaNode("post_gate",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.State) (*nodex.State, error) {
			return nodex.PostCheck(ctx, in, s.postGates)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node post_gate: %w", err)
	}

	if err := graph.AddLambdaNode("redirect",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.State) (*nodex.State, error) {
			return nodex.Redirect(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node redirect: %w", err)
	}

	if err := graph.AddLambdaNode("write_memory",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.State) (*nodex.State, error) {
			return nodex.WriteMemory(ctx, in, s.fanin)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node write_memory: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.State) (contractx.ChatReply, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.State) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: chat graph state is nil", contractx.ErrValidation)
			}
			if in.Verdict.Valid {
				return "run_agent", nil
			}
			return "redirect", nil
		},
		map[string]bool{
			"run_agent": true,
			"redirect":  true,
		},
	)
	if err := graph.AddBranch("pre_gate", branch); err != nil {
		return nil, fmt.Errorf("add chat graph branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "read_memory"},
		{"read_memory", "pre_gate"},
		{"run_agent", "post_gate"},
		{"post_gate", "write_memory"},
		{"redirect", "write_memory"},
		{"write_memory", "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("concierge.chat"))
	if err != nil {
		return nil, fmt.Errorf("compile chat graph: %w", err)
	}
	return runner, nil
}
