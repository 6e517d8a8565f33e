package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogChannel writes the enquiry to the structured log. It backs local
// development and doubles as an audit trail in deployments where email
// is the primary channel.
type LogChannel struct{}

func (LogChannel) Name() string { return "log" }

func (LogChannel) Deliver(_ context.Context, msg EnquiryMessage) error {
	log.Info().
		Int64("enquiry_id", msg.EnquiryID).
		Str("event", msg.EventName).
		Str("organizer", msg.OrganizerName).
		Str("organizer_email", msg.OrganizerEmail).
		Int64("quantity", msg.Quantity).
		Str("message", msg.Message).
		Msg("booking enquiry")
	return nil
}
