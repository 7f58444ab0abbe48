package notify

import (
	"context"
	"log/slog"
)

// Notifier fans notifications out to the configured channels: tenant mail
// plus an operator Telegram chat. Channels left unconfigured degrade to
// log-only so non-production environments need no provider credentials.
type Notifier struct {
	mailer    *Mailer
	telegram  *Telegram
	opsChatID int64
	log       *slog.Logger
}

func NewNotifier(mailer *Mailer, telegram *Telegram, opsChatID int64, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{mailer: mailer, telegram: telegram, opsChatID: opsChatID, log: log}
}

// SendMail delivers a tenant-facing email.
func (n *Notifier) SendMail(ctx context.Context, to, subject, html string) error {
	if n.mailer == nil {
		n.log.Info("mail channel unconfigured, dropping message", "to", to, "subject", subject)
		return nil
	}
	return n.mailer.Send(ctx, to, subject, html)
}

// SendAlert posts an operational alert to the ops Telegram chat.
func (n *Notifier) SendAlert(ctx context.Context, text string) error {
	if n.telegram == nil || n.opsChatID == 0 {
		n.log.Warn("alert channel unconfigured", "alert", text)
		return nil
	}
	return n.telegram.SendMessage(ctx, n.opsChatID, text)
}
