package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frankie-agent/frankie/internal/config"
	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/notifier"
)

const notifyTimeout = 10 * time.Second

// NotificationService fans task transitions out to the configured notifiers.
// Delivery is fire-and-forget: a failing notifier is logged and never affects
// task state.
type NotificationService struct {
	notifiers []notifier.Notifier
	enabled   map[string]bool // sources; empty means all
}

// NewNotificationService builds notifiers from config via the provider
// registry. Providers with missing required settings are skipped.
func NewNotificationService(cfg config.Notifications) *NotificationService {
	s := &NotificationService{enabled: make(map[string]bool)}
	for _, ev := range cfg.EnabledEvents {
		s.enabled[ev] = true
	}

	if cfg.SlackWebhookURL != "" {
		n, err := notifier.New("slack", map[string]string{"webhook_url": cfg.SlackWebhookURL})
		if err != nil {
			slog.Error("init slack notifier", "error", err)
		} else {
			s.notifiers = append(s.notifiers, n)
		}
	}

	if cfg.DiscordWebhookURL != "" {
		n, err := notifier.New("discord", map[string]string{"webhook_url": cfg.DiscordWebhookURL})
		if err != nil {
			slog.Error("init discord notifier", "error", err)
		} else {
			s.notifiers = append(s.notifiers, n)
		}
	}

	if cfg.SMTPHost != "" && cfg.SMTPTo != "" {
		n, err := notifier.New("email", map[string]string{
			"smtp_host":     cfg.SMTPHost,
			"smtp_port":     cfg.SMTPPort,
			"smtp_from":     cfg.SMTPFrom,
			"smtp_password": cfg.SMTPPassword,
			"smtp_to":       cfg.SMTPTo,
		})
		if err != nil {
			slog.Error("init email notifier", "error", err)
		} else {
			s.notifiers = append(s.notifiers, n)
		}
	}

	return s
}

// TaskTransition notifies about a task entering a review gate, an error, or
// a terminal outcome. Other transitions are internal and stay quiet.
func (s *NotificationService) TaskTransition(t *task.Task) {
	n, ok := buildNotification(t)
	if !ok {
		return
	}
	if len(s.enabled) > 0 && !s.enabled[n.Source] {
		return
	}

	for _, nt := range s.notifiers {
		go func(nt notifier.Notifier) {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := nt.Send(ctx, n); err != nil {
				slog.Error("notification failed", "provider", nt.Name(), "task_id", t.ID, "error", err)
			}
		}(nt)
	}
}

func buildNotification(t *task.Task) (notifier.Notification, bool) {
	n := notifier.Notification{
		TaskID: t.ID,
		Source: "task." + string(t.Status),
	}

	switch t.Status {
	case task.StatusAwaitingReview:
		n.Title = "Review needed"
		n.Message = fmt.Sprintf("Task %s (%s) has a proposed change awaiting review.", t.ID, t.PluginID)
		n.Level = "info"
		if t.TestStatus == task.TestFail {
			n.Message += " Tests failed; approval requires an explicit override."
			n.Level = "warning"
		}
	case task.StatusAwaitingPlanReview:
		n.Title = "Plan ready for review"
		n.Message = fmt.Sprintf("Task %s proposed a plan awaiting approval.", t.ID)
		n.Level = "info"
	case task.StatusAwaitingMilestoneReview:
		n.Title = "Milestone finished"
		n.Message = fmt.Sprintf("Task %s completed a milestone and is waiting for a decision.", t.ID)
		n.Level = "info"
	case task.StatusApplied:
		n.Title = "Change applied"
		n.Message = fmt.Sprintf("Task %s was approved and committed (%s).", t.ID, t.CommitHash)
		n.Level = "success"
	case task.StatusCompleted:
		n.Title = "Task completed"
		n.Message = fmt.Sprintf("Task %s finished all milestones.", t.ID)
		n.Level = "success"
	case task.StatusRejected:
		n.Title = "Task rejected"
		n.Message = fmt.Sprintf("Task %s was rejected; no changes were made.", t.ID)
		n.Level = "info"
	case task.StatusError:
		n.Title = "Task failed"
		n.Message = fmt.Sprintf("Task %s stopped with an error: %s", t.ID, t.ErrorMessage)
		n.Level = "error"
	default:
		return notifier.Notification{}, false
	}
	return n, true
}
