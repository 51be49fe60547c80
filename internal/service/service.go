// Package service holds the business rules of the recipe platform. Services
// take the acting user id explicitly and return *models.AppError values.
package service

import (
	"context"
	"log/slog"

	"foodgram/internal/media"
	"foodgram/internal/middleware"
	"foodgram/internal/notifications"
)

// EventPublisher delivers realtime events to a user.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, ev notifications.Event) error
}

// ImageStore persists decoded uploads under the media root.
type ImageStore interface {
	Save(ctx context.Context, kind media.Kind, owner string, img *media.Image) (string, error)
	Remove(rel string) error
}

type nopPublisher struct{}

func (nopPublisher) PublishUser(context.Context, uint, notifications.Event) error { return nil }

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// publish sends ev to every user in ids. Delivery is best effort.
func publish(ctx context.Context, p EventPublisher, ev notifications.Event, ids ...uint) {
	for _, id := range ids {
		if err := p.PublishUser(ctx, id, ev); err != nil {
			middleware.Logger.WarnContext(ctx, "publish notification failed",
				slog.String("type", ev.Type), slog.Uint64("recipient", uint64(id)), slog.Any("error", err))
		}
	}
}

func removeImage(ctx context.Context, store ImageStore, rel string) {
	if rel == "" {
		return
	}
	if err := store.Remove(rel); err != nil {
		middleware.Logger.WarnContext(ctx, "remove image failed", slog.String("path", rel), slog.Any("error", err))
	}
}
