package eventhandler

import (
	"context"
	"log/slog"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT TRAIL
// ═══════════════════════════════════════════════════════════════════════════

// AuditHandler writes every published event to the structured log.
// Subscribed via SubscribeAll; it is the engine's audit trail.
type AuditHandler struct {
	logger *slog.Logger
}

// NewAuditHandler creates the audit handler.
func NewAuditHandler(logger *slog.Logger) *AuditHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditHandler{logger: logger.With("component", "audit")}
}

// Name implements shared.EventHandler.
func (h *AuditHandler) Name() string {
	return "audit"
}

// Handle logs the event with its full payload.
func (h *AuditHandler) Handle(_ context.Context, event shared.Event) error {
	h.logger.Info("domain event",
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
		"payload", event.Payload(),
	)
	return nil
}
