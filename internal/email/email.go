package email

import (
	"fmt"
	"html"

	"github.com/labstack/echo/v4"
	resend "github.com/resend/resend-go/v2"
)

// Client delivers an invite's RSVP link to an email address.
type Client interface {
	SendInvite(toEmail, eventTitle, link, text string) (messageID string, err error)
}

// ResendClient implements Client using the Resend service
type ResendClient struct {
	client        *resend.Client
	defaultSender string
	logger        echo.Logger
}

// NewResendClient creates a new ResendClient
func NewResendClient(client *resend.Client, defaultSender string, logger echo.Logger) *ResendClient {
	return &ResendClient{
		client:        client,
		defaultSender: defaultSender,
		logger:        logger,
	}
}

func (c *ResendClient) SendInvite(toEmail, eventTitle, link, text string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("resend client not initialized")
	}

	if c.defaultSender == "" {
		return "", fmt.Errorf("resend default sender not configured")
	}

	title := eventTitle
	if title == "" {
		title = "an event"
	}

	htmlBody := fmt.Sprintf(
		`<p>%s</p><p><a href="%s">Open your RSVP link</a></p>`,
		html.EscapeString(text), html.EscapeString(link),
	)

	params := &resend.SendEmailRequest{
		From:    c.defaultSender,
		To:      []string{toEmail},
		Subject: fmt.Sprintf("You're invited to %s", title),
		Html:    htmlBody,
		Text:    text,
	}

	sent, err := c.client.Emails.Send(params)
	if err != nil {
		c.logger.Errorf("Failed to send invite email to %s: %v", toEmail, err)
		return "", err
	}

	c.logger.Infof("Invite email sent to %s (id: %s)", toEmail, sent.Id)
	return sent.Id, nil
}
