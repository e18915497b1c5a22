package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// SMTP settings are injected once at startup; the identity layer resolves
// user ids to deliverable addresses upstream, so recipient here is whatever
// address alias the directory exposes for the owner.
var (
	smtpHost string
	smtpPort string
	from     string
	password string
)

func Configure(host, port, sender, pass string) {
	smtpHost = host
	smtpPort = port
	from = sender
	password = pass
}

// SendQuotaNotification tells a stakeholder group owner that one of their
// guests was turned away because the group's tier quota ran out.
func SendQuotaNotification(log *zerolog.Logger, groupName, guestName, recipient string) error {
	if smtpHost == "" {
		log.Debug().Msg("mailer not configured, skipping notification")
		return nil
	}

	subject := "Guest denied: quota exhausted"
	body := fmt.Sprintf(
		"Hello,\n\nYour guest %q could not be checked in: the allocation for group %q has no remaining capacity.\n"+
			"Raise the allocation cap or revoke a checked-in guest to free a slot.",
		guestName, groupName,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, recipient, subject, body,
	)

	addr := smtpHost + ":" + smtpPort
	auth := smtp.PlainAuth("", from, password, smtpHost)

	if err := smtp.SendMail(addr, auth, from, []string{recipient}, []byte(msg)); err != nil {
		log.Warn().Msgf("failed to send notification to %s: %v", recipient, err)
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Msgf("notification sent to %s (group: %s)", recipient, groupName)
	return nil
}
