// Package services – TranscriptService
//
// TranscriptService renders a room's history as plain text and hands it to
// an outgoing mail transport.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// MailSender delivers a plain-text message and returns its Message-ID.
type MailSender interface {
	Send(ctx context.Context, to []string, subject, body string) (string, error)
}

// HistoryReader returns a room's full log, oldest first.
type HistoryReader interface {
	History(ctx context.Context, roomID string) ([]domain.Message, error)
}

var validate = validator.New()

// TranscriptService forwards room transcripts by email.
type TranscriptService struct {
	Rooms    HistoryReader
	Mailer   MailSender
	Location *time.Location
}

// Forward mails roomID's transcript to to. A blank subject gets a default.
func (s *TranscriptService) Forward(ctx context.Context, roomID, to, subject string) (string, error) {
	ctx, span := otel.Tracer("services/TranscriptService").Start(ctx, "Forward",
		trace.WithAttributes(attribute.String("room.id", roomID)),
	)
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return "", ErrRoomRequired
	}
	to = strings.TrimSpace(to)
	if err := validate.Var(to, "required,email"); err != nil {
		return "", ErrInvalidRecipient
	}
	if s.Mailer == nil {
		return "", ErrMailerDisabled
	}

	msgs, err := s.Rooms.History(ctx, roomID)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(subject) == "" {
		subject = "Chat transcript - Room " + roomID
	}
	return s.Mailer.Send(ctx, []string{to}, subject, RenderTranscript(roomID, msgs, s.Location))
}

// RenderTranscript formats msgs as "Sender | Time | Message" lines.
func RenderTranscript(roomID string, msgs []domain.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Chat Transcript - Room %s\n", roomID)
	b.WriteString("Generated by Khisima AI Agent.\n\n")
	if len(msgs) == 0 {
		b.WriteString("No messages\n")
		return b.String()
	}
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s | %s | %s\n",
			senderLabel(m.Role),
			m.CreatedAt.In(loc).Format("Jan 2, 2006, 3:04:05 PM"),
			m.Text,
		)
	}
	return b.String()
}

func senderLabel(r domain.Role) string {
	switch r {
	case domain.RoleAdmin:
		return "Admin"
	case domain.RoleVisitor:
		return "User"
	case domain.RoleSystem:
		return "System"
	default:
		return "Agent"
	}
}
