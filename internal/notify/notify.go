// Package notify delivers outbound messages such as one-time password
// emails. Delivery is opaque to callers: a Sender either succeeds or returns
// an error.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sender delivers a message to an email address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a Sender that logs every message at info level.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "sending email",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}

// OTPMessage builds the email that carries a login code.
func OTPMessage(userName, projectName, code string, validFor time.Duration) (subject, body string) {
	subject = "Your Workplan login code"
	body = fmt.Sprintf("Hello %s,\n\n"+
		"Use the following one-time password to access the Workplan project '%s': %s\n"+
		"The code expires in %d minutes.\n\n"+
		"Thanks,\nWorkplan", userName, projectName, code, int(validFor.Minutes()))
	return subject, body
}
