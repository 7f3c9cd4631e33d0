package notify

import (
	"context"

	"github.com/expressmart/identity/pkg/slogx"
)

// LogSender writes notifications to the structured log instead of sending
// mail. Used in development and tests when no SMTP host is configured.
type LogSender struct{}

func NewLogSender() *LogSender { return &LogSender{} }

func (s *LogSender) Send(ctx context.Context, kind Kind, recipients []string, data map[string]any) error {
	subject, _, err := Render(kind, data)
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("notification",
		"kind", string(kind),
		"recipients", recipients,
		"subject", subject,
		"data", data,
	)
	return nil
}
