package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/port/messagequeue"
)

// Events publishes domain events. A nil queue disables publishing; failures
// are logged and never fail the operation that raised the event.
type Events struct {
	queue messagequeue.Queue
}

// NewEvents creates an event publisher over q, which may be nil.
func NewEvents(q messagequeue.Queue) *Events {
	return &Events{queue: q}
}

func (e *Events) emit(ctx context.Context, subject string, payload any) {
	if e == nil || e.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event", "subject", subject, "error", err)
		return
	}
	if err := e.queue.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish event failed", "subject", subject, "error", err)
	}
}

// Draft emits a drafts.* event for d.
func (e *Events) Draft(ctx context.Context, subject string, d *draft.Draft) {
	kinds := d.Policy.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	e.emit(ctx, subject, messagequeue.DraftEventPayload{
		DraftID:    d.ID,
		ReviewID:   d.ReviewID,
		Status:     string(d.Status),
		Fallback:   d.Fallback,
		Blocked:    d.Policy.Blocked,
		Violations: names,
	})
}

// Reply emits a replies.* event.
func (e *Events) Reply(ctx context.Context, subject string, p messagequeue.ReplyEventPayload) {
	e.emit(ctx, subject, p)
}

// Synced emits reviews.synced.
func (e *Events) Synced(ctx context.Context, p messagequeue.ReviewsSyncedPayload) {
	e.emit(ctx, messagequeue.SubjectReviewsSynced, p)
}
