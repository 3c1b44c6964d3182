// Package telegram is a minimal Telegram Bot API client covering the two
// calls the radar needs: sendMessage and long-polled getUpdates.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const apiBase = "https://api.telegram.org"

// Client talks to the Bot API for one bot token.
type Client struct {
	client *resty.Client
	chatID string
}

// Update is one inbound update from getUpdates.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

type apiResponse struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description"`
	Result      []Update `json:"result"`
}

// NewClient creates a client for the given bot token and target chat.
func NewClient(token, chatID string) *Client {
	client := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", apiBase, token)).
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)
	return &Client{client: client, chatID: chatID}
}

// SendMessage posts a Markdown-formatted message to the configured chat.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	var out apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":    c.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		SetResult(&out).
		Post("/sendMessage")
	if err != nil {
		return errors.Wrap(err, "telegram sendMessage")
	}
	if resp.IsError() || !out.OK {
		return errors.Errorf("telegram sendMessage: status=%d desc=%s", resp.StatusCode(), out.Description)
	}
	return nil
}

// GetUpdates long-polls for inbound commands. offset is the next update ID to
// fetch; timeout bounds the server-side wait so a hung remote cannot block
// the caller past the request timeout.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var out apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("offset", fmt.Sprintf("%d", offset)).
		SetQueryParam("timeout", fmt.Sprintf("%d", int(timeout.Seconds()))).
		SetResult(&out).
		Get("/getUpdates")
	if err != nil {
		return nil, errors.Wrap(err, "telegram getUpdates")
	}
	if resp.IsError() || !out.OK {
		return nil, errors.Errorf("telegram getUpdates: status=%d desc=%s", resp.StatusCode(), out.Description)
	}
	return out.Result, nil
}
