package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/learnweave/backend/internal/clients/redis"
	"github.com/learnweave/backend/internal/platform/logger"
	"github.com/learnweave/backend/internal/sse"
)

// CourseNotifier pushes build progress to the user's SSE channel. With a
// redis bus configured, messages go through the bus so every instance's hub
// sees them; otherwise they go straight to the local hub. Delivery is
// best-effort and never fails the pipeline.
type CourseNotifier struct {
	log *logger.Logger
	hub *sse.Hub
	bus redis.ProgressBus
}

func NewCourseNotifier(baseLog *logger.Logger, hub *sse.Hub, bus redis.ProgressBus) *CourseNotifier {
	return &CourseNotifier{
		log: baseLog.With("service", "CourseNotifier"),
		hub: hub,
		bus: bus,
	}
}

func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s", userID)
}

func (n *CourseNotifier) Notify(ctx context.Context, userID uuid.UUID, event sse.Event, data any) {
	msg := sse.Message{
		Channel: UserChannel(userID),
		Event:   event,
		Data:    data,
	}

	if n.bus != nil {
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.log.Warn("progress publish failed, falling back to local hub",
				"event", event, "error", err)
			n.hub.Broadcast(msg)
		}
		return
	}
	n.hub.Broadcast(msg)
}
