package email

import (
	"fmt"

	"github.com/labstack/echo/v4"
	resend "github.com/resend/resend-go/v2"
)

// EmailClient is an interface for sending emails
type EmailClient interface {
	SendAsync(toEmail, subject, htmlBody string)
	SendDeleteRequestAlert(toEmail, requestID, feedbackID, reason string)
}

// ResendEmailClient implements EmailClient using the Resend service
type ResendEmailClient struct {
	client        *resend.Client
	defaultSender string
	logger        echo.Logger
}

// NewResendEmailClient creates a new ResendEmailClient
func NewResendEmailClient(client *resend.Client, defaultSender string, logger echo.Logger) *ResendEmailClient {
	return &ResendEmailClient{
		client:        client,
		defaultSender: defaultSender,
		logger:        logger,
	}
}

// SendAsync sends an email asynchronously
func (c *ResendEmailClient) SendAsync(toEmail, subject, htmlBody string) {
	if c == nil || c.client == nil {
		return
	}
	if c.defaultSender == "" {
		c.logger.Warn("No default sender configured, skipping email.")
		return
	}

	go func() {
		params := &resend.SendEmailRequest{
			From:    c.defaultSender,
			To:      []string{toEmail},
			Subject: subject,
			Html:    htmlBody,
		}
		if _, err := c.client.Emails.Send(params); err != nil {
			c.logger.Warnf("Failed to send email to %s: %v", toEmail, err)
		}
	}()
}

// SendDeleteRequestAlert notifies an admin that a feedback delete
// request is waiting for resolution. Best effort only.
func (c *ResendEmailClient) SendDeleteRequestAlert(toEmail, requestID, feedbackID, reason string) {
	if reason == "" {
		reason = "(no reason given)"
	}
	body := fmt.Sprintf(
		`<p>A new delete request is waiting for review.</p>
<p>Request: <strong>%s</strong><br>
Feedback: <strong>%s</strong><br>
Reason: %s</p>`,
		requestID, feedbackID, reason)

	c.SendAsync(toEmail, "New feedback delete request", body)
}
