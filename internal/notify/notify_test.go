package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

type failingSender struct {
	calls int
	err   error
}

func (f *failingSender) Send(context.Context, string, string, string) error {
	f.calls++
	return f.err
}

func TestOTPMessage(t *testing.T) {
	subject, body := OTPMessage("Ada", "Acme", "042137", 10*time.Minute)
	if subject != "Your Workplan login code" {
		t.Fatalf("subject = %q", subject)
	}
	for _, want := range []string{"Hello Ada", "'Acme'", "042137", "10 minutes"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestLogSenderWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := sender.Send(context.Background(), "a@x.com", "hi", "code 123456"); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "a@x.com") || !strings.Contains(out, "123456") {
		t.Fatalf("log output = %q", out)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &failingSender{err: errors.New("connection refused")}
	b := NewBreaker(next, BreakerSettings{MaxFailures: 2, OpenFor: time.Minute}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Send(ctx, "a@x.com", "s", "b"); !errors.Is(err, next.err) {
			t.Fatalf("send %d = %v, want underlying error", i, err)
		}
	}
	if err := b.Send(ctx, "a@x.com", "s", "b"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("send with open breaker = %v, want ErrOpenState", err)
	}
	if next.calls != 2 {
		t.Fatalf("underlying sender called %d times, want 2", next.calls)
	}
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}
}

func TestBreakerPassesSuccess(t *testing.T) {
	next := &failingSender{}
	b := NewBreaker(next, BreakerSettings{}, nil)
	if err := b.Send(context.Background(), "a@x.com", "s", "b"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if b.State() != "closed" {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestNewSMTPSenderValidates(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{}); err == nil {
		t.Fatal("expected error without host")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "mail.example.com"}); err == nil {
		t.Fatal("expected error without from address")
	}
	s, err := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Username: "bot@example.com"})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if s.cfg.Port != "587" || s.cfg.From != "bot@example.com" {
		t.Fatalf("defaults not applied: %+v", s.cfg)
	}
}

func TestSMTPSenderComposesMessage(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Port: "2525", From: "bot@example.com"})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		if a != nil {
			t.Error("auth should be nil without a username")
		}
		return nil
	}

	if err := s.Send(context.Background(), "dev@x.com", "Your code", "line one\nline two"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "mail.example.com:2525" || len(gotTo) != 1 || gotTo[0] != "dev@x.com" {
		t.Fatalf("sendMail(%q, %v)", gotAddr, gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Your code\r\n") || !strings.Contains(gotMsg, "line one\r\nline two") {
		t.Fatalf("message = %q", gotMsg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, "dev@x.com", "s", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("send with cancelled ctx = %v", err)
	}
}

func TestSMTPSenderRejectsHeaderLineBreaks(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "mail.example.com", From: "bot@example.com"})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sendMail called with an unsafe header")
		return nil
	}

	cases := []struct{ to, subject string }{
		{"dev@x.com", "Code\r\nBcc: victim@x.com"},
		{"dev@x.com\nBcc: victim@x.com", "Code"},
	}
	for _, tc := range cases {
		if err := s.Send(context.Background(), tc.to, tc.subject, "body"); !errors.Is(err, errHeaderInjection) {
			t.Fatalf("Send(%q, %q) = %v, want errHeaderInjection", tc.to, tc.subject, err)
		}
	}

	if _, err := NewSMTPSender(SMTPConfig{Host: "mail.example.com", From: "bot@example.com\r\nBcc: x@x.com"}); !errors.Is(err, errHeaderInjection) {
		t.Fatalf("from with line break = %v, want errHeaderInjection", err)
	}
}
