package notify

import (
	"context"
	"net/http"
)

// Discord posts {"content": message} to a webhook. Many other chat services
// accept the same body, so the router uses it as the fallback.
type Discord struct {
	Webhook string
	Client  *http.Client
}

func NewDiscord(webhook string) *Discord {
	return &Discord{
		Webhook: webhook,
		Client:  newClient(),
	}
}

type discordPayload struct {
	Content string `json:"content"`
}

func (d *Discord) Notify(ctx context.Context, channel, message string) error {
	if channel == "" {
		channel = d.Webhook
	}
	return postJSON(ctx, d.Client, "discord", channel, discordPayload{Content: message})
}
