// Package mailer sends transactional email through the Brevo API. Sends are
// fire-and-forget from the domain's point of view; delivery is never awaited
// for correctness.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

type Client struct {
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
	configured bool
	log        *zap.SugaredLogger
}

// NewClient returns a Brevo client. With incomplete credentials the client
// stays unconfigured and sends become logged no-ops.
func NewClient(apiKey, fromEmail, fromName string, log *zap.SugaredLogger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
	if apiKey != "" && fromEmail != "" && fromName != "" {
		c.apiKey = apiKey
		c.fromEmail = fromEmail
		c.fromName = fromName
		c.configured = true
	}
	return c
}

type sendEmailReq struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HtmlContent string              `json:"htmlContent"`
}

// SendInviteEmail notifies a user that they were invited to a chat.
func (c *Client) SendInviteEmail(ctx context.Context, toEmail, senderName, chatName string) {
	subject := fmt.Sprintf("%s invited you to %s", senderName, chatName)
	html := fmt.Sprintf(
		"<p>%s invited you to join the chat <strong>%s</strong>. The chat is ephemeral, join before it expires.</p>",
		senderName, chatName,
	)
	if err := c.send(ctx, toEmail, subject, html); err != nil {
		c.log.Warnw("invite email not sent", "to", toEmail, "error", err)
	}
}

func (c *Client) send(ctx context.Context, toEmail, subject, html string) error {
	if !c.configured {
		c.log.Debugw("mailer not configured, skipping email", "to", toEmail, "subject", subject)
		return nil
	}

	body, err := json.Marshal(sendEmailReq{
		Sender:      map[string]string{"email": c.fromEmail, "name": c.fromName},
		To:          []map[string]string{{"email": toEmail}},
		Subject:     subject,
		HtmlContent: html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}
	return nil
}
