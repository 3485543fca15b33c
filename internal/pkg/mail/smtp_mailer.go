package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"bizdir/internal/pkg/env"
)

// SendMail sends an HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// ActivationBody renders the account activation email.
func ActivationBody(username, activationLink string) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>welcome to the directory. Please confirm your email address:</p><p><a href=\"%s\">Activate account</a></p>",
		username, activationLink,
	)
}

// DowngradeDecisionBody renders the notification an owner receives once an
// admin has decided their downgrade request.
func DowngradeDecisionBody(username, businessName, targetPlan, decision string) string {
	if decision == "approved" {
		return fmt.Sprintf(
			"<p>Hi %s,</p><p>your request to move <strong>%s</strong> to the plan <strong>%s</strong> was approved. Any active subscription for the old plan has been cancelled.</p>",
			username, businessName, targetPlan,
		)
	}
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>your request to move <strong>%s</strong> to the plan <strong>%s</strong> was rejected. Your current plan stays unchanged.</p>",
		username, businessName, targetPlan,
	)
}

// ListingStatusBody renders the moderation outcome email for a listing.
func ListingStatusBody(username, businessName, status string) string {
	if status == "approved" {
		return fmt.Sprintf(
			"<p>Hi %s,</p><p>your listing <strong>%s</strong> was approved and is now publicly visible.</p>",
			username, businessName,
		)
	}
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>your listing <strong>%s</strong> was rejected. Please review our content guidelines and resubmit.</p>",
		username, businessName,
	)
}
