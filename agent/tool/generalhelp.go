package tool

import (
	"context"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
)

var helpAnswers = map[string]string{
	"account":   "Manage your account from the profile page in the app or website: update email, password, and notification preferences. Deleting an account removes stored personal data within 30 days.",
	"organizer": "Organizers list events through the 'List your event' form on the website. The partnerships team reviews submissions and sets up the organizer dashboard, usually within two business days.",
	"contact":   "You can reach ShowEasy by email at info@showeasy.ai or through this chat. There is no phone support; email is answered within one business day.",
	"travel":    "During checkout you can add travel bundles: nearby hotel rooms and airport transfers arranged alongside your tickets. Bundle availability depends on the event's city.",
	"general":   "ShowEasy is a one-stop event platform for discovering events, buying tickets, and planning travel around them. Ask me about events, tickets, membership, or anything on the site.",
}

func newGeneralHelpTool() *Tool {
	return &Tool{
		Name: "general_help",
		Info: &schema.ToolInfo{
			Name: "general_help",
			Desc: "Answer general platform questions that no other tool covers: accounts, organizer onboarding, contact channels, travel bundles.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"category": {
					Type: schema.String,
					Desc: "one of account, organizer, contact, travel, general",
				},
			}),
		},
		ArgsSchema: `{
			"type": "object",
			"properties": {
				"category": {"type": "string"}
			}
		}`,
		Invoke: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			category := stringArg(args, "category")
			answer, ok := helpAnswers[category]
			if !ok {
				category = "general"
				answer = helpAnswers[category]
			}
			return contractx.ToolResult{Fields: map[string]any{
				"status":   "ok",
				"category": category,
				"answer":   answer,
			}}, nil
		},
	}
}
