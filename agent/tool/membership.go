package tool

import (
	"context"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
)

var membershipAnswers = map[string]string{
	"tiers":    "ShowEasy membership has three tiers: Blue (everyone starts here), Silver (2,000 points in a rolling year), and Gold (8,000 points). Tier status is reviewed monthly and kept for at least 12 months once reached.",
	"points":   "You earn 1 point per 100 THB spent on tickets. Points expire 24 months after they are earned and count toward Silver and Gold tier status.",
	"benefits": "Silver gives a 5% member discount and 24-hour presale access. Gold gives a 10% discount, 48-hour presale access, free ticket reissue, and lounge entry at partner venues. Member discounts never exceed 20% and usually cannot be combined with organizer promo codes.",
	"upgrade":  "Tiers upgrade automatically once your rolling-year points cross the threshold: 2,000 for Silver, 8,000 for Gold. There is no paid upgrade.",
	"general":  "ShowEasy membership is free. You earn points on every ticket purchase and unlock discounts, presale access, and perks as you move from Blue to Silver to Gold.",
}

func newMembershipInfoTool() *Tool {
	return &Tool{
		Name: "membership_info",
		Info: &schema.ToolInfo{
			Name: "membership_info",
			Desc: "Answer membership program questions: tiers, points, benefits, upgrades.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"topic": {
					Type: schema.String,
					Desc: "one of tiers, points, benefits, upgrade, general",
				},
			}),
		},
		ArgsSchema: `{
			"type": "object",
			"properties": {
				"topic": {"type": "string"}
			}
		}`,
		Invoke: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			topic := stringArg(args, "topic")
			answer, ok := membershipAnswers[topic]
			if !ok {
				topic = "general"
				answer = membershipAnswers[topic]
			}
			return contractx.ToolResult{Fields: map[string]any{
				"status": "ok",
				"topic":  topic,
				"answer": answer,
			}}, nil
		},
	}
}
