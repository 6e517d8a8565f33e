// Package notify delivers booking enquiries to organizers over one or
// more channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// EnquiryMessage is the payload delivered to an organizer when a
// customer files a booking enquiry.
type EnquiryMessage struct {
	EnquiryID      int64
	EventName      string
	OrganizerName  string
	OrganizerEmail string
	CustomerEmail  string
	Message        string
	Quantity       int64
}

// Channel delivers one enquiry over one transport.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg EnquiryMessage) error
}

// Fanout tries every channel and succeeds when at least one delivery
// lands; per-channel failures are logged, not fatal.
type Fanout struct {
	channels []Channel
}

func NewFanout(channels ...Channel) *Fanout {
	return &Fanout{channels: channels}
}

func (f *Fanout) SendEnquiry(ctx context.Context, msg EnquiryMessage) error {
	if len(f.channels) == 0 {
		return errors.New("notify: no channels configured")
	}

	var delivered int
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Deliver(ctx, msg); err != nil {
			log.Warn().
				Err(err).
				Str("channel", ch.Name()).
				Int64("enquiry_id", msg.EnquiryID).
				Msg("enquiry delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("notify: all channels failed: %w", errors.Join(errs...))
	}
	return nil
}
