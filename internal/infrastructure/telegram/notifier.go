package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// Client talks to the Telegram bot API: it posts to the channel and messages operators.
type Client struct {
	apiBase   string
	botToken  string
	channelID string
	client    *http.Client
}

var (
	_ ports.Channel          = (*Client)(nil)
	_ ports.OperatorNotifier = (*Client)(nil)
)

// NewClient registers bot token and channel identifier.
func NewClient(cfg config.TelegramConfig) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	return &Client{
		apiBase:   base,
		botToken:  cfg.BotToken,
		channelID: cfg.ChannelID,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

// Send posts an HTML message to the channel and returns its message id.
func (c *Client) Send(ctx context.Context, text string, disablePreview bool) (int64, error) {
	if c.channelID == "" {
		return 0, fmt.Errorf("telegram channel is not configured")
	}
	return c.sendMessage(ctx, c.channelID, text, "HTML", disablePreview)
}

// Delete removes a previously posted channel message.
func (c *Client) Delete(ctx context.Context, messageID int64) error {
	if c.channelID == "" {
		return fmt.Errorf("telegram channel is not configured")
	}
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    c.channelID,
		"message_id": messageID,
	}, nil)
}

// NotifyOperator sends a plain-text direct message to the operator's chat.
func (c *Client) NotifyOperator(ctx context.Context, operatorID int64, text string) error {
	_, err := c.sendMessage(ctx, strconv.FormatInt(operatorID, 10), text, "", true)
	return err
}

func (c *Client) sendMessage(ctx context.Context, chatID, text, parseMode string, disablePreview bool) (int64, error) {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": disablePreview,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	var msg sentMessage
	err := c.call(ctx, "sendMessage", payload, &msg)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) call(ctx context.Context, method string, payload map[string]any, out any) error {
	if c.botToken == "" || c.client == nil {
		return fmt.Errorf("telegram client misconfigured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil || resp.StatusCode != http.StatusOK || !decoded.OK {
		reason := decoded.Description
		if reason == "" {
			reason = strings.TrimSpace(string(raw))
		}
		return &domain.HTTPStatusError{Service: "telegram " + method, Status: resp.Status, Body: reason}
	}

	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}
