package notify

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNoChannel is returned when neither the target nor the router has a
// destination.
var ErrNoChannel = errors.New("notify: no channel configured")

// Router picks a Notifier from the channel URL. Targets without a channel
// use Default.
type Router struct {
	Default string

	Discord Notifier
	Slack   Notifier
	Form    Notifier
}

func NewRouter(defaultChannel string) *Router {
	return &Router{
		Default: defaultChannel,
		Discord: NewDiscord(""),
		Slack:   NewSlack(""),
		Form:    NewForm(""),
	}
}

func (r *Router) Notify(ctx context.Context, channel, message string) error {
	if channel == "" {
		channel = r.Default
	}
	if channel == "" {
		return ErrNoChannel
	}
	return r.pick(channel).Notify(ctx, channel, message)
}

func (r *Router) pick(channel string) Notifier {
	switch Kind(channel) {
	case "form":
		return r.Form
	case "slack":
		return r.Slack
	default:
		return r.Discord
	}
}

// Kind names the implementation Router would use for channel: "discord",
// "slack", "form" or "webhook" for anything else.
func Kind(channel string) string {
	if strings.HasPrefix(channel, FormScheme) {
		return "form"
	}
	u, err := url.Parse(channel)
	if err != nil {
		return "webhook"
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "discord.com", host == "discordapp.com",
		strings.HasSuffix(host, ".discord.com"), strings.HasSuffix(host, ".discordapp.com"):
		return "discord"
	case host == "hooks.slack.com":
		return "slack"
	default:
		return "webhook"
	}
}

// Redact keeps scheme and host of a webhook URL; the path usually carries
// the secret token.
func Redact(channel string) string {
	u, err := url.Parse(strings.TrimPrefix(channel, FormScheme))
	if err != nil || u.Host == "" {
		if channel == "" {
			return ""
		}
		return "<redacted>"
	}
	return u.Scheme + "://" + u.Host + "/…"
}
