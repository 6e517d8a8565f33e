package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type EmailConfig struct {
	Host     string `envconfig:"HOST"`
	Port     int    `envconfig:"PORT" default:"587"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	From     string `envconfig:"FROM" default:"enquiries@showeasy.ai"`
}

// Enabled reports whether enough config is present to send mail.
func (c EmailConfig) Enabled() bool { return c.Host != "" }

// EmailChannel sends the enquiry to the organizer's address over SMTP.
type EmailChannel struct {
	cfg  EmailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailChannel(cfg EmailConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg, send: smtp.SendMail}
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Deliver(_ context.Context, msg EnquiryMessage) error {
	if msg.OrganizerEmail == "" {
		return fmt.Errorf("enquiry %d has no organizer email", msg.EnquiryID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: ShowEasy Enquiries <%s>\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.OrganizerEmail)
	fmt.Fprintf(&b, "Subject: Booking enquiry #%d for %s\r\n", msg.EnquiryID, msg.EventName)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", msg.OrganizerName)
	fmt.Fprintf(&b, "A customer asked about %s:\r\n\r\n%s\r\n", msg.EventName, msg.Message)
	if msg.Quantity > 0 {
		fmt.Fprintf(&b, "\r\nTickets wanted: %d\r\n", msg.Quantity)
	}
	if msg.CustomerEmail != "" {
		fmt.Fprintf(&b, "Reply-to customer: %s\r\n", msg.CustomerEmail)
	}
	fmt.Fprintf(&b, "\r\nReply from your organizer dashboard, enquiry #%d.\r\n", msg.EnquiryID)

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	if err := e.send(addr, auth, e.cfg.From, []string{msg.OrganizerEmail}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
