package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Discord rejects embeds with more fields than this.
const maxEmbedFields = 25

type WebhookMessage struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	Timestamp   time.Time `json:"timestamp"`
	Fields      []Field   `json:"fields,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Client posts operator alerts to a Discord webhook. A client without a
// webhook URL silently drops everything.
type Client struct {
	webhookURL string
	source     string
	httpClient *http.Client
}

func NewClient(webhookURL, source string) *Client {
	return &Client{
		webhookURL: webhookURL,
		source:     source,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook is configured
func (c *Client) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

func (c *Client) SendMessage(ctx context.Context, msg WebhookMessage) error {
	if !c.Enabled() {
		return nil
	}
	if msg.Username == "" {
		msg.Username = c.source
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status: %d", resp.StatusCode)
	}

	return nil
}

// SendLogMessage implements logger.AlertSink
func (c *Client) SendLogMessage(level, message string, fields map[string]interface{}) error {
	embed := Embed{
		Title:       fmt.Sprintf("%s %s", c.source, level),
		Description: message,
		Color:       colorForLevel(level),
		Timestamp:   time.Now().UTC(),
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(embed.Fields) == maxEmbedFields {
			break
		}
		embed.Fields = append(embed.Fields, Field{
			Name:   k,
			Value:  fmt.Sprintf("%v", fields[k]),
			Inline: true,
		})
	}

	return c.SendMessage(context.Background(), WebhookMessage{Embeds: []Embed{embed}})
}

func colorForLevel(level string) int {
	switch level {
	case "ERROR":
		return 0xFF0000
	case "FATAL", "PANIC":
		return 0x8B0000
	case "WARN":
		return 0xFFA500
	default:
		return 0x808080
	}
}
