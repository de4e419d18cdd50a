package notification

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// EmailNotifier sends alerts over SMTP with STARTTLS (plain auth).
type EmailNotifier struct {
	server   string
	port     int
	user     string
	password string
	to       string
}

// NewEmailNotifier creates an SMTP notifier. to may be a comma-separated
// recipient list.
func NewEmailNotifier(server string, port int, user, password, to string) *EmailNotifier {
	return &EmailNotifier{
		server:   server,
		port:     port,
		user:     user,
		password: password,
		to:       to,
	}
}

func (e *EmailNotifier) Send(ctx context.Context, alert Alert) error {
	recipients := splitRecipients(e.to)
	if len(recipients) == 0 {
		return fmt.Errorf("email: no recipients configured")
	}

	msg := strings.Join([]string{
		"From: " + e.user,
		"To: " + strings.Join(recipients, ", "),
		"Subject: [" + string(alert.Level) + "] " + alert.Title,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		alert.Message,
	}, "\r\n")

	// net/smtp has no context hook; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", e.server, e.port)
	auth := smtp.PlainAuth("", e.user, e.password, e.server)
	if err := smtp.SendMail(addr, auth, e.user, recipients, []byte(msg)); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}

	log.Printf("[email] sent alert to %s: %s", e.to, alert.Title)
	return nil
}

func splitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
