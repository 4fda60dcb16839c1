// Package notify delivers alert messages to chat webhooks.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
)

// DefaultTimeout bounds one delivery request.
const DefaultTimeout = 10 * time.Second

// Notifier sends one formatted message to a destination. The channel is
// usually a webhook URL; implementations that have a fixed destination
// ignore it.
type Notifier interface {
	Notify(ctx context.Context, channel, message string) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, channel, message string) error

func (f Func) Notify(ctx context.Context, channel, message string) error {
	return f(ctx, channel, message)
}

// Multi sends to every notifier and combines their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, channel, message string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Notify(ctx, channel, message))
	}
	return err
}

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Code, e.Body)
}

func newClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

func postJSON(ctx context.Context, c *http.Client, service, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", service, err)
	}
	return post(ctx, c, service, endpoint, "application/json", bytes.NewReader(body))
}

func post(ctx context.Context, c *http.Client, service, endpoint, contentType string, body io.Reader) error {
	if endpoint == "" {
		return fmt.Errorf("%s: no destination", service)
	}
	if c == nil {
		c = newClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", service, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &StatusError{Service: service, Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
