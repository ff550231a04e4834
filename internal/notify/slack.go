// Package notify posts messages to a Slack incoming webhook. Routine
// messages go out as plain text; "down" alerts carry a red attachment so
// they stand out on a phone.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	username     = "Garage Door Monitor"
	normalEmoji  = ":house:"
	urgentEmoji  = ":rotating_light:"
	urgentColor  = "#FF0000"
	sendTimeout  = 10 * time.Second
	urgentFooter = "gd-monitor health check"
)

// Slack sends notifications through an incoming webhook.
type Slack struct {
	webhookURL string
	channel    string
	httpClient *http.Client
}

// message is the webhook payload.
type message struct {
	Channel     string       `json:"channel,omitempty"`
	Text        string       `json:"text,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type attachment struct {
	Fallback  string `json:"fallback,omitempty"`
	Color     string `json:"color,omitempty"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text,omitempty"`
	Footer    string `json:"footer,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`
}

// NewSlack creates a notifier for the given webhook. The channel may be
// empty to use the webhook's default.
func NewSlack(webhookURL, channel string) (*Slack, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL cannot be empty")
	}
	return &Slack{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: &http.Client{Timeout: sendTimeout},
	}, nil
}

// Send posts a routine notification.
func (s *Slack) Send(ctx context.Context, text string) error {
	return s.post(ctx, message{
		Channel:   s.channel,
		Text:      text,
		Username:  username,
		IconEmoji: normalEmoji,
	})
}

// SendDown posts an urgent alert for a failure or overheat condition.
func (s *Slack) SendDown(ctx context.Context, text string) error {
	return s.post(ctx, message{
		Channel:   s.channel,
		Username:  username,
		IconEmoji: urgentEmoji,
		Attachments: []attachment{{
			Fallback:  text,
			Color:     urgentColor,
			Title:     "Garage monitor alert",
			Text:      text,
			Footer:    urgentFooter,
			Timestamp: time.Now().Unix(),
		}},
	})
}

func (s *Slack) post(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected slack response status: %s", resp.Status)
	}
	return nil
}
