package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/orderdesk/internal/security/middleware"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, actorID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID, ok := ctx.Value(middleware.RequestIDKey{}).(string); ok {
		requestID = reqID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogAuth(ctx context.Context, userID, action, status, details string) {
	al.LogAction(ctx, userID, action, "session", "", status, details)
}

func (al *Logger) LogFranchiseChange(ctx context.Context, actorID, action, franchiseID, status, details string) {
	al.LogAction(ctx, actorID, action, "franchise", franchiseID, status, details)
}

func (al *Logger) LogOrder(ctx context.Context, actorID, orderID, status, details string) {
	al.LogAction(ctx, actorID, "place", "order", orderID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, actorID, reason string) {
	al.LogAction(ctx, actorID, "access_denied", "api", "", "denied", reason)
}
