// Package mailer delivers plain-text email over SMTP. Port 465 uses implicit
// TLS; any other port upgrades with STARTTLS when the server offers it.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-agent-backend/internal/config"
)

// ErrNoRecipients is returned when Send is called without addresses.
var ErrNoRecipients = errors.New("mailer: no recipients")

const implicitTLSPort = 465

// submitFunc hands a composed message to the server.
type submitFunc func(ctx context.Context, m *SMTPMailer, msg *mail.Msg) error

// SMTPMailer implements services.MailSender.
type SMTPMailer struct {
	Host string
	Port int
	User string
	Pass string
	From string

	// Timeout bounds a whole delivery when ctx has no deadline.
	Timeout time.Duration

	now    func() time.Time
	submit submitFunc
}

// New returns a mailer for cfg, or nil when cfg is not enabled.
func New(cfg config.EmailConfig) *SMTPMailer {
	if !cfg.Enabled() {
		return nil
	}
	return &SMTPMailer{
		Host:    cfg.Host,
		Port:    cfg.Port,
		User:    cfg.User,
		Pass:    cfg.Pass,
		From:    cfg.From,
		Timeout: 30 * time.Second,
		now:     time.Now,
		submit:  deliver,
	}
}

// Send composes and delivers a text/plain message, returning its Message-ID.
func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) (string, error) {
	ctx, span := otel.Tracer("mailer/SMTPMailer").Start(ctx, "Send",
		trace.WithAttributes(attribute.Int("mail.recipients", len(to))),
	)
	defer span.End()

	if len(to) == 0 {
		return "", ErrNoRecipients
	}

	if _, ok := ctx.Deadline(); !ok && m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	msg, id, err := compose(m.From, to, subject, body, m.clock())
	if err != nil {
		return "", err
	}
	if err := m.submit(ctx, m, msg); err != nil {
		span.RecordError(err)
		return "", err
	}
	log.Debug().Str("message_id", id).Int("recipients", len(to)).Msg("mail sent")
	return id, nil
}

func (m *SMTPMailer) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// compose builds the message and returns it with its "<uuid@domain>"
// Message-ID, the domain taken from the sender address.
func compose(from string, to []string, subject, body string, at time.Time) (*mail.Msg, string, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, "", fmt.Errorf("mailer: bad from address: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return nil, "", fmt.Errorf("mailer: bad recipient: %w", err)
	}

	local := uuid.NewString() + "@" + senderDomain(msg)
	msg.SetMessageIDWithValue(local)
	msg.SetDateWithValue(at)
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, "<" + local + ">", nil
}

func senderDomain(msg *mail.Msg) string {
	if from := msg.GetFrom(); len(from) > 0 {
		addr := from[0].Address
		if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
			return addr[i+1:]
		}
	}
	return "localhost"
}

// clientOptions selects implicit TLS on 465 and opportunistic STARTTLS
// elsewhere. PLAIN auth is only offered when a user is configured.
func (m *SMTPMailer) clientOptions(ctx context.Context) []mail.Option {
	opts := []mail.Option{mail.WithPort(m.Port)}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 {
			opts = append(opts, mail.WithTimeout(left))
		}
	}
	if m.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.User),
			mail.WithPassword(m.Pass),
		)
	}
	return opts
}

// deliver runs one SMTP session against m's server.
func deliver(ctx context.Context, m *SMTPMailer, msg *mail.Msg) error {
	c, err := mail.NewClient(m.Host, m.clientOptions(ctx)...)
	if err != nil {
		return fmt.Errorf("mailer: client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
