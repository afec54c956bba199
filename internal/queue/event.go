// Package queue carries outbound mail over RabbitMQ: the API process
// publishes MailJob payloads and the mailer process consumes them and
// hands them to SMTP.
package queue

import (
	"time"

	"github.com/iliyamo/storefront-auth/internal/mail"
)

// MailJob is the payload on the mail queue.
type MailJob struct {
	Message    mail.Message `json:"message"`
	EnqueuedAt string       `json:"enqueued_at"`
}

func newMailJob(msg mail.Message) MailJob {
	return MailJob{Message: msg, EnqueuedAt: time.Now().UTC().Format(time.RFC3339)}
}
