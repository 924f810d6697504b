package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/dukerupert/webinarhub/internal/model"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Postmark-compatible endpoint.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

// NewClient returns a Postmark client. baseURL is the public site address
// used to build links in messages.
func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendRegistrationConfirmation tells a user they are signed up for w.
func (c *Client) SendRegistrationConfirmation(ctx context.Context, toEmail, name string, w *model.Webinar) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	when := w.StartsAt.UTC().Format("Monday, January 2, 2006 at 15:04 MST")
	link := fmt.Sprintf("%s/webinars/%s", c.baseURL, w.ID)

	textBody := fmt.Sprintf("%s,\n\nYou're registered for %q with %s.\n\nIt starts %s and runs %d minutes.\n\nDetails: %s\n",
		greeting, w.Title, w.Host, when, w.DurationMinutes, link)
	htmlBody := fmt.Sprintf(
		`<p>%s,</p><p>You're registered for <strong>%s</strong> with %s.</p><p>It starts %s and runs %d minutes.</p><p><a href="%s">View details</a></p>`,
		html.EscapeString(greeting), html.EscapeString(w.Title), html.EscapeString(w.Host), when, w.DurationMinutes, html.EscapeString(link),
	)

	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "You're registered: " + w.Title,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
