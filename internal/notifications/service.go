package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ucmusic/internal/config"
)

const userAgent = "ucmusic/0.1.0"

// Service defines the notification surface used by the watcher and CLI.
type Service interface {
	NotifyTrackConverted(ctx context.Context, title, file string) error
	NotifyCycleSummary(ctx context.Context, converted, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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

func (n *ntfyService) NotifyTrackConverted(ctx context.Context, title, file string) error {
	title = strings.TrimSpace(title)
	file = strings.TrimSpace(file)
	if title == "" {
		title = file
	}
	message := fmt.Sprintf("🎵 Converted: %s", title)
	if file != "" && file != title {
		message = fmt.Sprintf("%s\nFile: %s", message, file)
	}
	data := payload{
		title:   "ucmusic - Track Converted",
		message: message,
		tags:    []string{"ucmusic", "track", "converted"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCycleSummary(ctx context.Context, converted, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "ucmusic - Batch Complete"
	message := fmt.Sprintf("Converted %d tracks in %s", converted, duration)
	if failed > 0 {
		title = "ucmusic - Batch Complete (with errors)"
		message = fmt.Sprintf("Converted %d tracks, %d failed in %s", converted, failed, duration)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"ucmusic", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "ucmusic - Error",
		message:  builder.String(),
		tags:     []string{"ucmusic", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ucmusic - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"ucmusic", "test"},
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

func (noopService) NotifyTrackConverted(context.Context, string, string) error        { return nil }
func (noopService) NotifyCycleSummary(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
