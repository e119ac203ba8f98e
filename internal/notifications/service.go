package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shiori/internal/config"
	"shiori/internal/events"
)

const userAgent = "Shiori/1.0"

// Service defines the notification surface exposed to the relay and tools.
type Service interface {
	NotifyProgress(ctx context.Context, change events.StatusChange) error
	NotifyCompletion(ctx context.Context, change events.StatusChange) error
	NotifySyncError(ctx context.Context, err error, label string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyProgress(ctx context.Context, change events.StatusChange) error {
	title := strings.TrimSpace(change.Title)
	message := fmt.Sprintf("Episode %d", change.NewProgress)
	if change.TotalUnits > 0 {
		message = fmt.Sprintf("%s of %d", message, change.TotalUnits)
	}
	message = fmt.Sprintf("%s: %s", message, title)
	if change.OldStatus != change.NewStatus {
		message = fmt.Sprintf("%s (%s)", message, change.NewStatus)
	}
	data := payload{
		title:   "Shiori - Progress",
		message: message,
		tags:    []string{"shiori", "progress"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCompletion(ctx context.Context, change events.StatusChange) error {
	title := strings.TrimSpace(change.Title)
	message := fmt.Sprintf("Finished: %s", title)
	if change.RewatchCount > 0 {
		message = fmt.Sprintf("%s (rewatch #%d)", message, change.RewatchCount)
	}
	if change.Score > 0 {
		message = fmt.Sprintf("%s\nScore: %d", message, change.Score)
	}
	data := payload{
		title:    "Shiori - Completed",
		message:  message,
		tags:     []string{"shiori", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncError(ctx context.Context, err error, label string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if label = strings.TrimSpace(label); label != "" {
		builder.WriteString(" with ")
		builder.WriteString(label)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Shiori - Error",
		message:  builder.String(),
		tags:     []string{"shiori", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Shiori - Test",
		message:  "Notification system test",
		tags:     []string{"shiori", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyProgress(context.Context, events.StatusChange) error   { return nil }
func (noopService) NotifyCompletion(context.Context, events.StatusChange) error { return nil }
func (noopService) NotifySyncError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
