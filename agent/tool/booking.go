package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/notify"
	"github.com/showeasy/concierge/store"
)

// EnquiryBackend is the storage slice behind the booking_enquiry tool.
type EnquiryBackend interface {
	ResolveEvent(ctx context.Context, eventID int64, eventName string) (store.Event, store.Organizer, error)
	CreateEnquiry(ctx context.Context, enq *store.BookingEnquiry) error
	MarkEnquirySent(ctx context.Context, id int64) error
}

// MerchantNotifier delivers a recorded enquiry to the event organizer.
type MerchantNotifier interface {
	SendEnquiry(ctx context.Context, msg notify.EnquiryMessage) error
}

func newBookingEnquiryTool(backend EnquiryBackend, notifier MerchantNotifier) *Tool {
	return &Tool{
		Name:  "booking_enquiry",
		Write: true,
		Info: &schema.ToolInfo{
			Name: "booking_enquiry",
			Desc: "Record a booking enquiry and forward it to the event's organizer. Use only after the user has explicitly confirmed they want the organizer contacted and has given a contact email. Requires the user's question, a contact email, and either an event_id or event_name.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"message": {
					Type:     schema.String,
					Desc:     "the user's question for the organizer, in the user's words",
					Required: true,
				},
				"contact_email": {
					Type:     schema.String,
					Desc:     "email address the user wants the reply sent to",
					Required: true,
				},
				"event_id": {
					Type: schema.Integer,
					Desc: "numeric event ID if known",
				},
				"event_name": {
					Type: schema.String,
					Desc: "event or organizer name if the ID is not known",
				},
				"quantity": {
					Type: schema.Integer,
					Desc: "number of tickets the user is asking about",
				},
				"contact_phone": {
					Type: schema.String,
					Desc: "phone number for the reply, if the user offered one",
				},
				"enquiry_type": {
					Type: schema.String,
					Desc: "one of group_booking, availability, pricing, accessibility, other",
				},
			}),
		},
		ArgsSchema: `{
			"type": "object",
			"properties": {
				"message": {"type": "string", "minLength": 1},
				"contact_email": {"type": "string", "minLength": 3},
				"event_id": {"type": "integer"},
				"event_name": {"type": "string"},
				"quantity": {"type": "integer", "minimum": 1},
				"contact_phone": {"type": "string"},
				"enquiry_type": {"type": "string"}
			},
			"required": ["message", "contact_email"]
		}`,
		Invoke: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			eventID := intArg(args, "event_id")
			eventName := stringArg(args, "event_name")
			if eventID == 0 && eventName == "" {
				return contractx.ToolResult{Fields: map[string]any{
					"status":  "error",
					"message": "need an event_id or event_name to route the enquiry; ask the user which event they mean",
				}}, nil
			}

			event, organizer, err := backend.ResolveEvent(ctx, eventID, eventName)
			if err != nil {
				if store.IsNotFound(err) {
					return contractx.ToolResult{Fields: map[string]any{
						"status":  "error",
						"message": "no matching event found; confirm the event name with the user or search first",
					}}, nil
				}
				return contractx.ToolResult{}, fmt.Errorf("resolve event: %w", err)
			}

			meta := contractx.RequestMetaFrom(ctx)
			enq := &store.BookingEnquiry{
				EventID:      event.ID,
				OrganizerID:  organizer.ID,
				UserID:       meta.UserID,
				SessionID:    meta.SessionID,
				Message:      stringArg(args, "message"),
				Quantity:     intArg(args, "quantity"),
				EnquiryType:  stringArg(args, "enquiry_type"),
				ContactEmail: stringArg(args, "contact_email"),
				ContactPhone: stringArg(args, "contact_phone"),
			}
			if err := backend.CreateEnquiry(ctx, enq); err != nil {
				return contractx.ToolResult{}, fmt.Errorf("create enquiry: %w", err)
			}

			err = notifier.SendEnquiry(ctx, notify.EnquiryMessage{
				EnquiryID:      enq.ID,
				EventName:      event.Name,
				OrganizerName:  organizer.Name,
				OrganizerEmail: organizer.Email,
				CustomerEmail:  enq.ContactEmail,
				Message:        enq.Message,
				Quantity:       enq.Quantity,
			})
			if err != nil {
				// Recorded but undelivered; the organizer dashboard
				// still shows pending enquiries.
				return contractx.ToolResult{Fields: map[string]any{
					"status":     "ok",
					"enquiry_id": enq.ID,
					"event":      event.Name,
					"message":    "enquiry recorded; delivery to the organizer is delayed and will be retried",
				}}, nil
			}
			if err := backend.MarkEnquirySent(ctx, enq.ID); err != nil {
				return contractx.ToolResult{}, fmt.Errorf("mark enquiry sent: %w", err)
			}

			return contractx.ToolResult{Fields: map[string]any{
				"status":     "ok",
				"enquiry_id": enq.ID,
				"event":      event.Name,
				"message":    fmt.Sprintf("enquiry sent to %s; they usually reply within one business day", organizer.Name),
			}}, nil
		},
	}
}

func intArg(args map[string]any, key string) int64 {
	switch v := args[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
