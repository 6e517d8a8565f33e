package enquiry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/store"
)

// Replies is the storage slice the reply flow needs.
type Replies interface {
	GetEnquiry(ctx context.Context, id int64) (store.BookingEnquiry, store.Event, store.Organizer, error)
	RecordReply(ctx context.Context, id int64, reply string) error
}

// Service processes organizer replies to booking enquiries.
type Service struct {
	replies  Replies
	analyzer *Analyzer
	history  contractx.TurnHistory
}

func NewService(replies Replies, analyzer *Analyzer, history contractx.TurnHistory) *Service {
	return &Service{replies: replies, analyzer: analyzer, history: history}
}

// Reply is the outcome handed back to the transport layer.
type Reply struct {
	EnquiryID       int64
	Outcome         Outcome
	CustomerMessage string
}

// HandleReply records the organizer's answer, drafts the customer
// message, and appends it to the customer's session so the next chat
// turn sees it.
func (s *Service) HandleReply(ctx context.Context, enquiryID int64, replyText string) (Reply, error) {
	replyText = strings.TrimSpace(replyText)
	if replyText == "" {
		return Reply{}, fmt.Errorf("%w: empty reply", contractx.ErrValidation)
	}

	enq, event, _, err := s.replies.GetEnquiry(ctx, enquiryID)
	if err != nil {
		return Reply{}, err
	}
	if enq.Status == store.EnquiryReplied {
		return Reply{}, fmt.Errorf("%w: enquiry %d already replied", contractx.ErrValidation, enquiryID)
	}

	analysis, err := s.analyzer.Analyze(ctx, ReplyInput{
		EventName:       event.Name,
		CustomerMessage: enq.Message,
		OrganizerReply:  replyText,
	})
	if err != nil {
		// The raw reply still reaches the customer when drafting
		// fails; a verbatim answer beats a lost one.
		log.Warn().Err(err).Int64("enquiry_id", enquiryID).Msg("reply analysis failed, forwarding verbatim")
		analysis = Analysis{
			Outcome:         OutcomeUnclear,
			CustomerMessage: fmt.Sprintf("The organizer of %s replied to your enquiry: %s", event.Name, replyText),
		}
	}

	if err := s.replies.RecordReply(ctx, enquiryID, replyText); err != nil {
		return Reply{}, err
	}

	if enq.SessionID != "" {
		err := s.history.Append(ctx, enq.SessionID, contractx.ConversationTurn{
			Role:    contractx.RoleAssistant,
			Content: analysis.CustomerMessage,
		})
		if err != nil {
			log.Warn().Err(err).Str("session_id", enq.SessionID).Msg("could not append reply to session")
		}
	}

	return Reply{
		EnquiryID:       enquiryID,
		Outcome:         analysis.Outcome,
		CustomerMessage: analysis.CustomerMessage,
	}, nil
}
