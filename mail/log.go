package mail

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the structured log instead of delivering
// them. Used in development and tests; the verification link lands in the
// server log.
type LogSender struct {
	logger *slog.Logger
}

var _ Sender = (*LogSender)(nil)

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "mail")}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("outbound mail",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return nil
}
