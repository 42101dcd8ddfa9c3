// Package notifications sends pipeline events to an ntfy topic. When no
// topic is configured every operation is a silent no-op.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inkwell/internal/config"
)

const userAgent = "Inkwell/0.1.0"

// Service is the notification surface exposed to workflow components.
type Service interface {
	// Publish sends a raw topic/payload event. Used for the
	// glossary-changed broadcast other sessions listen for.
	Publish(ctx context.Context, topic, payload string) error
	NotifyChapterCompleted(ctx context.Context, seriesTitle string, chapterNumber int) error
	NotifyChapterFailed(ctx context.Context, seriesTitle string, chapterNumber int, cause error) error
	NotifyGlossaryUpdated(ctx context.Context, seriesTitle string, termCount int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
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
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		chapters:        cfg.Notifications.Chapters,
		glossaryUpdates: cfg.Notifications.GlossaryUpdates,
		errors:          cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	chapters        bool
	glossaryUpdates bool
	errors          bool
}

func (n *ntfyService) Publish(ctx context.Context, topic, message string) error {
	data := payload{
		title:   "Inkwell - " + topic,
		message: message,
		tags:    []string{"inkwell", topic},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyChapterCompleted(ctx context.Context, seriesTitle string, chapterNumber int) error {
	if !n.chapters {
		return nil
	}
	data := payload{
		title:   "Inkwell - Chapter Complete",
		message: fmt.Sprintf("Translated %s chapter %d", strings.TrimSpace(seriesTitle), chapterNumber),
		tags:    []string{"inkwell", "chapter", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyChapterFailed(ctx context.Context, seriesTitle string, chapterNumber int, cause error) error {
	if !n.chapters {
		return nil
	}
	message := fmt.Sprintf("Translation failed: %s chapter %d", strings.TrimSpace(seriesTitle), chapterNumber)
	if cause != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(cause.Error()))
	}
	data := payload{
		title:    "Inkwell - Chapter Failed",
		message:  message,
		tags:     []string{"inkwell", "chapter", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyGlossaryUpdated(ctx context.Context, seriesTitle string, termCount int) error {
	if !n.glossaryUpdates {
		return nil
	}
	data := payload{
		title:   "Inkwell - Glossary Updated",
		message: fmt.Sprintf("%s: %d glossary terms saved", strings.TrimSpace(seriesTitle), termCount),
		tags:    []string{"inkwell", "glossary", "updated"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
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
		title:    "Inkwell - Error",
		message:  builder.String(),
		tags:     []string{"inkwell", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Inkwell - Test",
		message:  "Notification system test",
		tags:     []string{"inkwell", "test"},
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

func (noopService) Publish(context.Context, string, string) error                 { return nil }
func (noopService) NotifyChapterCompleted(context.Context, string, int) error     { return nil }
func (noopService) NotifyChapterFailed(context.Context, string, int, error) error { return nil }
func (noopService) NotifyGlossaryUpdated(context.Context, string, int) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error              { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
