package tool

import (
	"context"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
)

var ticketAnswers = map[string]string{
	"delivery": "E-tickets arrive by email within minutes of payment and also appear under My Tickets in the app. The QR code on the e-ticket is scanned at the venue entrance.",
	"refund":   "Refund windows and fees are set per event by the organizer and shown on the event page before purchase. If an organizer cancels an event, ticket holders are refunded in full within 14 business days.",
	"transfer": "Name changes and ticket transfers are allowed when the organizer has enabled them, up to 48 hours before the event starts. Check the event page or ask me for a specific event.",
	"lost":     "Lost e-tickets can be resent from the app at no charge. Gold members can also reissue a ticket with a changed attendee name for free.",
	"payment":  "We accept credit card, PromptPay, and bank transfer. Failed or duplicate charges are escalated to the support team and resolved within one business day.",
	"general":  "Tickets on ShowEasy are electronic. Purchase online, receive the e-ticket by email and in the app, and show its QR code at the entrance. Refund and transfer rules depend on the event's organizer policy.",
}

func newTicketInfoTool() *Tool {
	return &Tool{
		Name: "ticket_info",
		Info: &schema.ToolInfo{
			Name: "ticket_info",
			Desc: "Answer ticketing policy questions: delivery, refund, transfer, lost tickets, payment methods.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query_type": {
					Type: schema.String,
					Desc: "one of delivery, refund, transfer, lost, payment, general",
				},
			}),
		},
		ArgsSchema: `{
			"type": "object",
			"properties": {
				"query_type": {"type": "string"}
			}
		}`,
		Invoke: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			queryType := stringArg(args, "query_type")
			answer, ok := ticketAnswers[queryType]
			if !ok {
				queryType = "general"
				answer = ticketAnswers[queryType]
			}
			return contractx.ToolResult{Fields: map[string]any{
				"status":     "ok",
				"query_type": queryType,
				"answer":     answer,
			}}, nil
		},
	}
}
