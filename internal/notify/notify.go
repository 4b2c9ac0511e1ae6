// Package notify is the fire-and-forget notification sink. Emitting never
// returns an error: a failed write is logged and dropped, because no state
// transition may roll back over an undelivered notification.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/stakepact/server/internal/models"
)

// Sink receives notification events. Implementations must not fail the
// caller.
type Sink interface {
	Emit(ctx context.Context, userID, notifType, title, message string, data map[string]string)
}

// creator is the slice of the storage layer the sink needs.
type creator interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// StoreSink persists notifications as rows; delivery transport (push,
// email) is someone else's job.
type StoreSink struct {
	store creator
}

// NewStoreSink creates a sink writing through the given store.
func NewStoreSink(store creator) *StoreSink {
	return &StoreSink{store: store}
}

// Emit writes one notification row, logging and swallowing any failure.
func (s *StoreSink) Emit(ctx context.Context, userID, notifType, title, message string, data map[string]string) {
	var payload string
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			slog.Warn("notify: failed to encode payload", "type", notifType, "error", err)
		} else {
			payload = string(raw)
		}
	}

	n := &models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    payload,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		slog.Warn("notify: failed to persist notification",
			"user_id", userID, "type", notifType, "error", err)
	}
}
