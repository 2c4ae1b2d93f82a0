// Package messenger talks to the Messenger Platform: webhook payload types,
// the Graph Send API client and helpers for handling deliveries.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGraphURL is the Graph API base used when none is configured.
const DefaultGraphURL = "https://graph.facebook.com/v2.6"

// SendError is returned when the Send API rejects a message.
type SendError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *SendError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("send API error: %s (status: %d, code: %d)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("send API error: %s (status: %d)", e.Message, e.StatusCode)
}

// Client is a Graph Send API client.
type Client struct {
	pageAccessToken string
	graphURL        string
	httpClient      *http.Client
}

// NewClient creates a new Send API client. An empty graphURL selects
// DefaultGraphURL; a zero timeout selects 30 seconds.
func NewClient(pageAccessToken, graphURL string, timeout time.Duration) *Client {
	if graphURL == "" {
		graphURL = DefaultGraphURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		pageAccessToken: pageAccessToken,
		graphURL:        strings.TrimRight(graphURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendRequest is the body of a Send API call.
type SendRequest struct {
	Recipient Party    `json:"recipient"`
	Message   *Message `json:"message"`
}

// SendResponse is the body returned by the Send API.
type SendResponse struct {
	RecipientID string    `json:"recipient_id,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	Error       *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Send delivers msg to the user identified by psid.
func (c *Client) Send(ctx context.Context, psid string, msg *Message) (*SendResponse, error) {
	if psid == "" {
		return nil, errors.New("recipient psid is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	body, err := json.Marshal(SendRequest{Recipient: Party{ID: psid}, Message: msg})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := c.graphURL + "/me/messages?access_token=" + url.QueryEscape(c.pageAccessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", c.redact(err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", c.redact(err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result SendResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if resp.StatusCode >= 300 || result.Error != nil {
		sendErr := &SendError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if result.Error != nil {
			sendErr.Code = result.Error.Code
			sendErr.Message = result.Error.Message
		}
		return nil, sendErr
	}

	return &result, nil
}

// redact strips the access token from the URL that net/http errors carry.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = c.graphURL + "/me/messages"
	}
	return err
}
