package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/store"
)

// EventSearcher is the slice of the event store the search tool needs.
type EventSearcher interface {
	SearchEvents(ctx context.Context, f store.EventFilter) ([]store.Event, error)
}

func newSearchEventTool(events EventSearcher, baseURL string) *Tool {
	return &Tool{
		Name: "search_event",
		Info: &schema.ToolInfo{
			Name: "search_event",
			Desc: "Search published ShowEasy events by keyword, city, date, or category. Returns up to five matches with names, dates, and links.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "free-text keywords, e.g. an artist or event name",
					Required: true,
				},
				"location": {
					Type: schema.String,
					Desc: "city name, e.g. Bangkok",
				},
				"date": {
					Type: schema.String,
					Desc: "date or month, e.g. 2026-09-12 or 2026-09",
				},
				"category": {
					Type: schema.String,
					Desc: "event category, e.g. concert, expo, conference, sports",
				},
			}),
		},
		ArgsSchema: `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "minLength": 1},
				"location": {"type": "string"},
				"date": {"type": "string"},
				"category": {"type": "string"}
			},
			"required": ["query"]
		}`,
		Invoke: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			filter := store.EventFilter{
				Query:    stringArg(args, "query"),
				Location: stringArg(args, "location"),
				Date:     stringArg(args, "date"),
				Category: stringArg(args, "category"),
				Limit:    5,
			}
			matches, err := events.SearchEvents(ctx, filter)
			if err != nil {
				return contractx.ToolResult{}, fmt.Errorf("search events: %w", err)
			}
			if len(matches) == 0 {
				return contractx.ToolResult{Fields: map[string]any{
					"status":  "ok",
					"count":   0,
					"message": "no events matched; suggest the user broaden the search or browse the events page",
				}}, nil
			}

			var b strings.Builder
			for _, ev := range matches {
				fmt.Fprintf(&b, "- %s | %s | %s | %s/events/%s?utm_source=concierge\n",
					ev.Name, ev.StartAt.Format("2006-01-02"), ev.City,
					strings.TrimRight(baseURL, "/"), ev.Slug)
			}
			return contractx.ToolResult{Fields: map[string]any{
				"status": "ok",
				"count":  len(matches),
				"events": strings.TrimSpace(b.String()),
			}}, nil
		},
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}
