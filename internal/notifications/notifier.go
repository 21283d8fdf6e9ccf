// Package notifications publishes moderation notices and feeds over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"candor/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix       = "notifications:user:"
	moderationChannelPrefix = "moderation:company:"
)

// Notification kinds sent to users.
const (
	TypeStrikeWarning      = "moderation_warning"
	TypePostingRestricted  = "posting_restricted"
	TypeAccountSuspended   = "account_suspended"
	TypeRestrictionLifted  = "restriction_lifted"
	TypeReportEscalated    = "report_escalated"
	TypeNewReport          = "new_report"
	TypeReportStatusChange = "report_status_changed"
)

// Message is the payload delivered on a user channel.
type Message struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ModerationEvent is the payload delivered on a company's moderation feed.
type ModerationEvent struct {
	Type      string         `json:"type"`
	CompanyID string         `json:"company_id"`
	ReportID  string         `json:"report_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notifier publishes into Redis channels. A nil client makes every call a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// ModerationChannel derives the Redis channel name for a company's moderators.
func ModerationChannel(companyID string) string {
	return moderationChannelPrefix + companyID
}

// Notify sends a notification to one user. Callers treat it as fire-and-forget.
func (n *Notifier) Notify(ctx context.Context, userID, kind, title, message string, metadata map[string]any) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Message{
		Type:      kind,
		Title:     title,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.rdb.Publish(ctx, UserChannel(userID), payload).Err(); err != nil {
		observability.NotificationFailures.WithLabelValues("user").Inc()
		return err
	}
	return nil
}

// PublishModerationEvent fans an event out to the moderators of its company.
func (n *Notifier) PublishModerationEvent(ctx context.Context, ev ModerationEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal moderation event: %w", err)
	}
	if err := n.rdb.Publish(ctx, ModerationChannel(ev.CompanyID), payload).Err(); err != nil {
		observability.NotificationFailures.WithLabelValues("moderation").Inc()
		return err
	}
	return nil
}

// StartModerationSubscriber subscribes to every company feed and calls
// onMessage with the company id and raw payload until ctx is done.
func (n *Notifier) StartModerationSubscriber(ctx context.Context, onMessage func(companyID, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, moderationChannelPrefix+"*")
	// Wait for the subscription so publishes right after return are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe moderation feed: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in moderation subscriber", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(strings.TrimPrefix(msg.Channel, moderationChannelPrefix), msg.Payload)
				}()
			}
		}
	}()

	return nil
}
