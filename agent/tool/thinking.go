package tool

import (
	"context"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
)

// The thinking tool gives the model a place to reason out loud without
// touching any backend. The note is echoed back as the observation.
func newThinkingTool() *Tool {
	return &Tool{
		Name: "thinking",
		Info: &schema.ToolInfo{
			Name: "thinking",
			Desc: "Write down intermediate reasoning before deciding the next step. Has no side effects.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"note": {
					Type:     schema.String,
					Desc:     "the reasoning to record",
					Required: true,
				},
			}),
		},
		ArgsSchema: `{
			"type": "object",
			"properties": {
				"note": {"type": "string", "minLength": 1}
			},
			"required": ["note"]
		}`,
		Invoke: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			return contractx.ToolResult{Fields: map[string]any{
				"status": "ok",
				"note":   stringArg(args, "note"),
			}}, nil
		},
	}
}
