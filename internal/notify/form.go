package notify

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// FormScheme prefixes channels that want a form-encoded POST, for example
// "form+https://api.example.com/notify".
const FormScheme = "form+"

// Form posts message=<text> as application/x-www-form-urlencoded.
type Form struct {
	Endpoint string
	Field    string
	Client   *http.Client
}

func NewForm(endpoint string) *Form {
	return &Form{
		Endpoint: endpoint,
		Field:    "message",
		Client:   newClient(),
	}
}

func (f *Form) Notify(ctx context.Context, channel, message string) error {
	if channel == "" {
		channel = f.Endpoint
	}
	channel = strings.TrimPrefix(channel, FormScheme)
	field := f.Field
	if field == "" {
		field = "message"
	}
	body := url.Values{field: {message}}.Encode()
	return post(ctx, f.Client, "form", channel, "application/x-www-form-urlencoded", strings.NewReader(body))
}
