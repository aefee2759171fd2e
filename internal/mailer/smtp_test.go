package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/tbourn/go-agent-backend/internal/config"
)

func TestNew_DisabledWithoutCredentials(t *testing.T) {
	if m := New(config.EmailConfig{Host: "smtp.example.com", Port: 465}); m != nil {
		t.Fatalf("expected nil mailer without credentials")
	}
	m := New(config.EmailConfig{Host: "smtp.example.com", Port: 587, User: "bot@example.com", Pass: "x", From: "bot@example.com"})
	if m == nil || m.Host != "smtp.example.com" || m.Port != 587 || m.submit == nil {
		t.Fatalf("unexpected mailer: %+v", m)
	}
}

func TestCompose_HeadersAndBody(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, id, err := compose(`"Khisima Agent" <bot@khisima.com>`, []string{"ops@example.com"}, "Transcript – Room r1", "line one\nline two", at)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()
	lowered := strings.ToLower(raw)

	for _, want := range []string{
		`from: "khisima agent" <bot@khisima.com>`,
		"to: <ops@example.com>",
		"subject: =?utf-8?q?",
		"message-id: " + strings.ToLower(id),
		"content-type: text/plain; charset=utf-8",
		"date: sat, 01 mar 2025 10:00:00 +0000",
	} {
		if !strings.Contains(lowered, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
	if !strings.Contains(raw, "line one") || !strings.Contains(raw, "line two") {
		t.Fatalf("body missing:\n%s", raw)
	}
	if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, "@khisima.com>") {
		t.Fatalf("id = %q", id)
	}
}

func TestCompose_RejectsBadAddresses(t *testing.T) {
	if _, _, err := compose("not an address", []string{"ops@example.com"}, "s", "b", time.Now()); err == nil {
		t.Fatalf("expected from error")
	}
	if _, _, err := compose("bot@khisima.com", []string{"nope"}, "s", "b", time.Now()); err == nil {
		t.Fatalf("expected recipient error")
	}
}

func TestClientOptions_PortSelectsTLSMode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	plain := &SMTPMailer{Host: "smtp.example.com", Port: 587}
	implicit := &SMTPMailer{Host: "smtp.example.com", Port: implicitTLSPort, User: "bot", Pass: "x"}

	// port, timeout and TLS policy; implicit TLS adds three auth options.
	if got := len(plain.clientOptions(ctx)); got != 3 {
		t.Fatalf("plain options = %d", got)
	}
	if got := len(implicit.clientOptions(ctx)); got != 6 {
		t.Fatalf("implicit options = %d", got)
	}
	if got := len(plain.clientOptions(context.Background())); got != 2 {
		t.Fatalf("options without deadline = %d", got)
	}
	for _, m := range []*SMTPMailer{plain, implicit} {
		if _, err := mail.NewClient(m.Host, m.clientOptions(ctx)...); err != nil {
			t.Fatalf("NewClient(port %d): %v", m.Port, err)
		}
	}
}

func TestSend_UsesSubmitterAndReturnsID(t *testing.T) {
	var got *mail.Msg
	m := &SMTPMailer{
		From: "Agent <bot@khisima.com>",
		submit: func(_ context.Context, _ *SMTPMailer, msg *mail.Msg) error {
			got = msg
			return nil
		},
	}

	id, err := m.Send(context.Background(), []string{"a@b.co"}, "subj", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.HasSuffix(id, "@khisima.com>") || got == nil {
		t.Fatalf("id=%q msg=%v", id, got)
	}
	if to := got.GetTo(); len(to) != 1 || to[0].Address != "a@b.co" {
		t.Fatalf("to = %v", to)
	}

	if _, err := m.Send(context.Background(), nil, "s", "b"); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}

	boom := errors.New("451 try later")
	m.submit = func(context.Context, *SMTPMailer, *mail.Msg) error { return boom }
	if _, err := m.Send(context.Background(), []string{"a@b.co"}, "s", "b"); !errors.Is(err, boom) {
		t.Fatalf("expected submit error, got %v", err)
	}
}

// fakeSMTP accepts one plain-text session and records the DATA payload.
func fakeSMTP(t *testing.T) (host string, port int, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		reply("220 fake ESMTP")
		var body strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					out <- body.String()
					reply("250 queued")
					continue
				}
				body.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				reply("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, out
}

func TestDeliver_PlainSession(t *testing.T) {
	host, port, data := fakeSMTP(t)
	m := &SMTPMailer{Host: host, Port: port, From: "bot@khisima.com", Timeout: 5 * time.Second, submit: deliver}

	id, err := m.Send(context.Background(), []string{"ops@example.com"}, "Transcript", "Admin | now | hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-data:
		if !strings.Contains(got, "Message-ID: "+id) || !strings.Contains(got, "Admin | now | hi") {
			t.Fatalf("unexpected DATA:\n%s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received DATA")
	}
}
