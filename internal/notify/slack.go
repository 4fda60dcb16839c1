package notify

import (
	"context"
	"net/http"
)

// Slack posts to an incoming webhook. Webhook is used when the channel
// argument is empty.
type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	return &Slack{
		Webhook: webhook,
		Client:  newClient(),
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Notify(ctx context.Context, channel, message string) error {
	if channel == "" {
		channel = s.Webhook
	}
	return postJSON(ctx, s.Client, "slack", channel, slackPayload{Text: message})
}
