package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"longbox/internal/config"
)

const userAgent = "Longbox/0.1.0"

// Service defines the notification surface exposed to sync and session
// components.
type Service interface {
	NotifySyncFailed(ctx context.Context, collectionName, reason string) error
	NotifySessionCompleted(ctx context.Context, collectionName string, successful, failed int) error
	NotifySessionFailed(ctx context.Context, collectionName, reason string) error
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

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		syncFailures: cfg.Notifications.SyncFailures,
		sessions:     cfg.Notifications.Sessions,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	syncFailures bool
	sessions     bool
}

func (n *ntfyService) NotifySyncFailed(ctx context.Context, collectionName, reason string) error {
	if !n.syncFailures {
		return nil
	}
	collectionName = strings.TrimSpace(collectionName)
	data := payload{
		title:    "Longbox - Sync Failed",
		message:  fmt.Sprintf("Sync failed for %s: %s", collectionName, strings.TrimSpace(reason)),
		tags:     []string{"longbox", "sync", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionCompleted(ctx context.Context, collectionName string, successful, failed int) error {
	if !n.sessions {
		return nil
	}
	collectionName = strings.TrimSpace(collectionName)

	var title, message string
	if failed == 0 {
		title = "Longbox - Recognition Complete"
		message = fmt.Sprintf("Recognized %d issues in %s", successful, collectionName)
	} else {
		title = "Longbox - Recognition Complete (with errors)"
		message = fmt.Sprintf("Recognized %d issues in %s, %d failed", successful, collectionName, failed)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"longbox", "session", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionFailed(ctx context.Context, collectionName, reason string) error {
	if !n.sessions {
		return nil
	}
	collectionName = strings.TrimSpace(collectionName)
	data := payload{
		title:    "Longbox - Recognition Failed",
		message:  fmt.Sprintf("Recognition failed for %s: %s", collectionName, strings.TrimSpace(reason)),
		tags:     []string{"longbox", "session", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Longbox - Test",
		message:  "Notification system test",
		tags:     []string{"longbox", "test"},
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

func (noopService) NotifySyncFailed(context.Context, string, string) error { return nil }

func (noopService) NotifySessionCompleted(context.Context, string, int, int) error { return nil }

func (noopService) NotifySessionFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }

// NewNoop returns a Service that discards every notification.
func NewNoop() Service { return noopService{} }
