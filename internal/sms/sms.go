package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"
)

// restEndpoint is Vonage's SMS JSON API. The response carries a messages
// array with a per-message status ("0" means accepted) and an error-text.
const restEndpoint = "https://rest.nexmo.com/sms/json"

// Client sends one text message to one recipient. Implementations must be
// safe for concurrent use.
type Client interface {
	Send(ctx context.Context, to, text string) (messageID string, err error)
}

// VonageClient implements Client against the Vonage SMS REST API.
type VonageClient struct {
	apiKey    string
	apiSecret string
	from      string
	http      *http.Client
	logger    echo.Logger
}

// NewVonageClient creates a new VonageClient
func NewVonageClient(apiKey, apiSecret, from string, logger echo.Logger) *VonageClient {
	return &VonageClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		from:      from,
		http:      &http.Client{},
		logger:    logger,
	}
}

func (c *VonageClient) Send(ctx context.Context, to, text string) (string, error) {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("api_secret", c.apiSecret)
	form.Set("from", c.from)
	form.Set("to", to)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, restEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("SMS API request failed with status code: %d", resp.StatusCode)
	}

	// A 200 from the API does not mean the message was accepted; the
	// per-message status inside the body is authoritative.
	status := gjson.GetBytes(body, "messages.0.status").String()
	if status != "0" {
		errText := gjson.GetBytes(body, "messages.0.error-text").String()
		if errText == "" {
			errText = "unknown provider error"
		}
		return "", fmt.Errorf("provider rejected message (status %s): %s", status, errText)
	}

	messageID := gjson.GetBytes(body, "messages.0.message-id").String()
	c.logger.Infof("SMS sent to %s (message-id: %s)", to, messageID)

	return messageID, nil
}
