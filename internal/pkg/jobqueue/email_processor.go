package jobqueue

import (
	"fmt"
	"strings"

	"bizdir/internal/pkg/mail"
)

// processEmailJob delivers one queued email via SMTP.
func (q *Queue) processEmailJob(job *Job) error {
	payload, err := EmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("email job %s has no recipient", job.ID)
	}
	return mail.SendMail(payload.To, payload.Subject, payload.Body)
}

// EnqueueEmail is a convenience wrapper used by controllers to queue an email
// instead of blocking the request on SMTP.
func (q *Queue) EnqueueEmail(to, subject, body string) (*Job, error) {
	payload := EmailJobPayload{To: to, Subject: subject, Body: body}
	return q.EnqueueJob(JobTypeEmail, payload.ToMap())
}
